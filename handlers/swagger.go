package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger serves the API description.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>lexdraft documents - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "lexdraft documents", "version": "v1.0.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } }
  },
  "security": [ { "bearer": [] } ],
  "paths": {
    "/api/v1/me": {
      "get": { "summary": "Current user, role and permissions", "responses": { "200": { "description": "profile" } } }
    },
    "/api/v1/auth/logout": {
      "post": { "summary": "Revoke the presented access token", "responses": { "200": { "description": "logged out" }, "503": { "description": "revocation unavailable" } } }
    },
    "/api/v1/auth/dev-token": {
      "post": { "summary": "Issue an HS256 access token (non-production only)", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"sub":{"type":"string"},"email":{"type":"string"},"name":{"type":"string"}}}}}}, "responses": { "200": { "description": "accessToken and expiresIn" } } }
    },
    "/api/v1/users/{sub}/role": {
      "put": { "summary": "Assign a role (admin)", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"role":{"type":"string","enum":["admin","editor","viewer"]}}}}}}, "responses": { "200": { "description": "role set" }, "404": { "description": "unknown user" } } }
    },
    "/api/v1/documents": {
      "get": { "summary": "List accessible documents", "parameters": [ {"name":"folderId","in":"query","schema":{"type":"string"}} ], "responses": { "200": { "description": "documents, newest first" } } },
      "post": { "summary": "Create a document and its first version", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"title":{"type":"string"},"content":{"type":"string"},"folderId":{"type":"string"},"status":{"type":"string","enum":["draft","published","archived"]}}}}}}, "responses": { "201": { "description": "created" }, "202": { "description": "created, change log incomplete" } } }
    },
    "/api/v1/documents/{id}": {
      "get": { "summary": "Get a document", "responses": { "200": { "description": "document" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Update title, folder, status or metadata", "responses": { "200": { "description": "document" } } },
      "delete": { "summary": "Delete a document (owner or admin)", "responses": { "204": { "description": "deleted" } } }
    },
    "/api/v1/documents/{id}/content": {
      "put": { "summary": "Commit new content as a version", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"content":{"type":"string"},"description":{"type":"string"}}}}}}, "responses": { "200": { "description": "document at the new head" }, "202": { "description": "change log incomplete" }, "409": { "description": "version conflict" } } }
    },
    "/api/v1/documents/{id}/restore": {
      "post": { "summary": "Restore an earlier version as the new head", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"versionId":{"type":"string"}}}}}}, "responses": { "200": { "description": "document at the new head" } } }
    },
    "/api/v1/documents/{id}/permissions": {
      "get": { "summary": "List shares", "responses": { "200": { "description": "permissions" } } },
      "post": { "summary": "Share with users", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"userIds":{"type":"array","items":{"type":"string"}},"permission":{"type":"string","enum":["viewer","editor"]}}}}}}, "responses": { "200": { "description": "permissions" } } }
    },
    "/api/v1/documents/{id}/permissions/{userId}": {
      "delete": { "summary": "Remove a share", "responses": { "204": { "description": "removed" } } }
    },
    "/api/v1/documents/{id}/versions": {
      "get": { "summary": "Version history, newest first", "responses": { "200": { "description": "versions" } } },
      "post": { "summary": "Create a version", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"content":{"type":"string"},"description":{"type":"string"}}}}}}, "responses": { "201": { "description": "version" }, "202": { "description": "version, change log incomplete" }, "409": { "description": "version conflict" } } }
    },
    "/api/v1/documents/{id}/versions/{versionId}": {
      "get": { "summary": "Version with its change records", "responses": { "200": { "description": "version" }, "404": { "description": "not found" } } }
    },
    "/api/v1/documents/{id}/versions/{versionId}/restore": {
      "post": { "summary": "Restore a version", "responses": { "201": { "description": "new head version" } } }
    },
    "/api/v1/documents/{id}/versions/{versionId}/download": {
      "get": { "summary": "Presigned snapshot download URL", "responses": { "200": { "description": "url" }, "501": { "description": "archive disabled" } } }
    },
    "/api/v1/versions/compare": {
      "get": { "summary": "Live diff of two versions", "parameters": [ {"name":"from","in":"query","required":true,"schema":{"type":"string"}}, {"name":"to","in":"query","required":true,"schema":{"type":"string"}} ], "responses": { "200": { "description": "spans and stats" } } }
    },
    "/api/v1/templates": {
      "get": { "summary": "List visible templates", "parameters": [ {"name":"category","in":"query","schema":{"type":"string"}} ], "responses": { "200": { "description": "templates" } } },
      "post": { "summary": "Create a template", "responses": { "201": { "description": "template" } } }
    },
    "/api/v1/templates/search": {
      "get": { "summary": "Search name and description", "parameters": [ {"name":"q","in":"query","required":true,"schema":{"type":"string"}} ], "responses": { "200": { "description": "templates" } } }
    },
    "/api/v1/templates/{id}": {
      "get": { "summary": "Get a template", "responses": { "200": { "description": "template" } } },
      "patch": { "summary": "Update a template; fields are replaced wholesale", "responses": { "200": { "description": "template" } } },
      "delete": { "summary": "Delete a template", "responses": { "204": { "description": "deleted" } } }
    },
    "/api/v1/templates/{id}/duplicate": {
      "post": { "summary": "Private copy of a template", "responses": { "201": { "description": "template" } } }
    },
    "/api/v1/templates/{id}/validate": {
      "post": { "summary": "Validate field values", "responses": { "200": { "description": "violations" } } }
    },
    "/api/v1/templates/{id}/documents": {
      "post": { "summary": "Create a document from a template", "responses": { "201": { "description": "document" }, "422": { "description": "invalid field values" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "security": [], "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "security": [], "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "security": [], "responses": { "200": { "description": "metrics" } } } }
  }
}`

// Package template describes reusable document templates: content with
// {{name}} placeholders plus the typed fields that fill them.
package template

import (
	"errors"
	"time"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/fields"
)

// Rules constrains the raw text entered for a field. Zero values disable a
// rule. Format names one of the predefined patterns (see Formats).
type Rules struct {
	MinLength int    `json:"minLength,omitempty" bson:"min_length,omitempty"`
	MaxLength int    `json:"maxLength,omitempty" bson:"max_length,omitempty"`
	Pattern   string `json:"pattern,omitempty" bson:"pattern,omitempty"`
	Format    string `json:"format,omitempty" bson:"format,omitempty"`
}

type Field struct {
	Name        string        `json:"name" bson:"name"`
	Kind        fields.Kind   `json:"type" bson:"type"`
	Label       string        `json:"label" bson:"label"`
	Placeholder string        `json:"placeholder,omitempty" bson:"placeholder,omitempty"`
	Default     fields.Tagged `json:"defaultValue" bson:"default_value"`
	Options     []string      `json:"options,omitempty" bson:"options,omitempty"`
	Rules       Rules         `json:"validation" bson:"validation"`
	Required    bool          `json:"required" bson:"required"`
	Order       int           `json:"order" bson:"order"`
}

type Template struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	Content     string    `json:"content" bson:"content"`
	Category    string    `json:"category,omitempty" bson:"category,omitempty"`
	CreatedBy   string    `json:"createdBy" bson:"created_by"`
	IsPublic    bool      `json:"isPublic" bson:"is_public"`
	Tags        []string  `json:"tags" bson:"tags"`
	Fields      []Field   `json:"fields" bson:"fields"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

// Filter narrows List. Query matches name or description, ignoring case.
// VisibleTo keeps public templates and those created by that user.
type Filter struct {
	Category  string
	Query     string
	VisibleTo string
}

var (
	ErrNotFound  = errors.New("template not found")
	ErrForbidden = errors.New("template access denied")
	ErrInvalid   = errors.New("invalid template request")
)

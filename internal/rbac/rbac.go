package rbac

import (
	"context"
	"errors"
	"fmt"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// ParseRole maps a stored role name to a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("rbac: unknown role %q", s)
	}
	return r, nil
}

type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

type Resource string

const (
	ResourceDocuments Resource = "documents"
	ResourceTemplates Resource = "templates"
	ResourceUsers     Resource = "users"
	ResourceSettings  Resource = "settings"
)

type Permission struct {
	Action   Action   `json:"action"`
	Resource Resource `json:"resource"`
}

func (p Permission) String() string { return string(p.Action) + ":" + string(p.Resource) }

func P(a Action, r Resource) Permission { return Permission{Action: a, Resource: r} }

var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		P(ActionCreate, ResourceDocuments), P(ActionRead, ResourceDocuments),
		P(ActionUpdate, ResourceDocuments), P(ActionDelete, ResourceDocuments),
		P(ActionCreate, ResourceTemplates), P(ActionRead, ResourceTemplates),
		P(ActionUpdate, ResourceTemplates), P(ActionDelete, ResourceTemplates),
		P(ActionCreate, ResourceUsers), P(ActionRead, ResourceUsers),
		P(ActionUpdate, ResourceUsers), P(ActionDelete, ResourceUsers),
		P(ActionRead, ResourceSettings), P(ActionUpdate, ResourceSettings),
	},
	RoleEditor: {
		P(ActionCreate, ResourceDocuments), P(ActionRead, ResourceDocuments),
		P(ActionUpdate, ResourceDocuments),
		P(ActionRead, ResourceTemplates), P(ActionCreate, ResourceTemplates),
		P(ActionUpdate, ResourceTemplates),
		P(ActionRead, ResourceUsers),
	},
	RoleViewer: {
		P(ActionRead, ResourceDocuments),
		P(ActionRead, ResourceTemplates),
	},
}

var ErrForbidden = errors.New("insufficient permissions")

// Can reports whether role grants perm. Unknown roles grant nothing.
func Can(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// Permissions returns a copy of the grants for role.
func Permissions(role Role) []Permission {
	return append([]Permission(nil), rolePermissions[role]...)
}

// Context is the authorization state of a single request. It is resolved
// once per request and never cached across requests.
type Context struct {
	Subject string `json:"subject"`
	Role    Role   `json:"role"`
}

func (c Context) Can(perm Permission) bool { return Can(c.Role, perm) }

// Check returns an error wrapping ErrForbidden when perm is not granted.
func (c Context) Check(perm Permission) error {
	if !c.Can(perm) {
		return fmt.Errorf("%s as %q: %w", perm, c.Role, ErrForbidden)
	}
	return nil
}

type ctxKey struct{}

func WithContext(ctx context.Context, rc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

func FromContext(ctx context.Context) (Context, bool) {
	rc, ok := ctx.Value(ctxKey{}).(Context)
	return rc, ok
}

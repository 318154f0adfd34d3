package models

import "time"

// User is an application user mapped from identity-provider claims. Role
// holds the rbac role name; empty means the configured default.
type User struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Sub       string    `bson:"sub" json:"sub"` // OIDC subject
	Email     string    `bson:"email" json:"email"`
	Name      string    `bson:"name" json:"name"`
	Role      string    `bson:"role,omitempty" json:"role,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

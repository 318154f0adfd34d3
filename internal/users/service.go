package users

import (
	"context"
	"fmt"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/models"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/rbac"
	"github.com/lexdraft/lexdraft/backend/go-services/pkg/logger"
)

// Service encapsulates user-related business logic
type Service struct {
	repo        UserRepository
	defaultRole rbac.Role
}

func NewService(r UserRepository, defaultRole rbac.Role) *Service {
	if !defaultRole.Valid() {
		defaultRole = rbac.RoleViewer
	}
	return &Service{repo: r, defaultRole: defaultRole}
}

// UpsertFromClaims creates or updates a user using OIDC claims map
func (s *Service) UpsertFromClaims(ctx context.Context, claims map[string]interface{}) (*models.User, error) {
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	if sub == "" {
		return nil, nil
	}
	u := &models.User{
		Sub:   sub,
		Email: email,
		Name:  name,
		Role:  string(s.defaultRole),
	}
	return s.repo.UpsertBySub(ctx, u)
}

func (s *Service) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	return s.repo.GetBySub(ctx, sub)
}

// RoleFor returns the stored role of sub, or the default role for unknown
// users and unrecognised role names.
func (s *Service) RoleFor(ctx context.Context, sub string) (rbac.Role, error) {
	u, err := s.repo.GetBySub(ctx, sub)
	if err != nil {
		return "", fmt.Errorf("lookup role for %s: %w", sub, err)
	}
	if u == nil || u.Role == "" {
		return s.defaultRole, nil
	}
	role, err := rbac.ParseRole(u.Role)
	if err != nil {
		logger.Warnf("user %s has unknown role %q, using %s", sub, u.Role, s.defaultRole)
		return s.defaultRole, nil
	}
	return role, nil
}

// SetRole assigns role to an existing user.
func (s *Service) SetRole(ctx context.Context, sub string, role rbac.Role) error {
	if !role.Valid() {
		return fmt.Errorf("set role: unknown role %q", role)
	}
	return s.repo.SetRole(ctx, sub, string(role))
}

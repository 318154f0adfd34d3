package users

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/models"
)

// MemoryUserRepository is the in-process UserRepository used in development
// and tests.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	bySub map[string]*models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{bySub: make(map[string]*models.User)}
}

func (r *MemoryUserRepository) UpsertBySub(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	cur, ok := r.bySub[u.Sub]
	if !ok {
		cur = &models.User{ID: uuid.NewString(), Sub: u.Sub, Role: u.Role, CreatedAt: now}
		r.bySub[u.Sub] = cur
	}
	cur.Email = u.Email
	cur.Name = u.Name
	cur.UpdatedAt = now
	cp := *cur
	return &cp, nil
}

func (r *MemoryUserRepository) GetBySub(_ context.Context, sub string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.bySub[sub]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryUserRepository) SetRole(_ context.Context, sub, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.bySub[sub]
	if !ok {
		return ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	return nil
}

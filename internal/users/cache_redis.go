package users

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/models"
	"github.com/lexdraft/lexdraft/backend/go-services/pkg/logger"
)

// CachedUserRepository is a read-through Redis cache in front of another
// repository. Entries expire after ttl and are dropped on every write, so
// a role change is visible to the next request that misses the cache.
type CachedUserRepository struct {
	next   UserRepository
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewCachedUserRepository(next UserRepository, client *redis.Client, ttl time.Duration) *CachedUserRepository {
	return &CachedUserRepository{next: next, client: client, ttl: ttl, prefix: "users:sub:"}
}

func (r *CachedUserRepository) key(sub string) string { return r.prefix + sub }

func (r *CachedUserRepository) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	raw, err := r.client.Get(ctx, r.key(sub)).Bytes()
	switch {
	case err == nil:
		var u models.User
		if jerr := json.Unmarshal(raw, &u); jerr == nil {
			return &u, nil
		}
	case !errors.Is(err, redis.Nil):
		// cache trouble must not block role resolution
		logger.Warnf("user cache read %s: %v", sub, err)
	}

	u, err := r.next.GetBySub(ctx, sub)
	if err != nil || u == nil {
		return u, err
	}
	if b, err := json.Marshal(u); err == nil {
		if err := r.client.Set(ctx, r.key(sub), b, r.ttl).Err(); err != nil {
			logger.Warnf("user cache write %s: %v", sub, err)
		}
	}
	return u, nil
}

func (r *CachedUserRepository) UpsertBySub(ctx context.Context, u *models.User) (*models.User, error) {
	out, err := r.next.UpsertBySub(ctx, u)
	r.invalidate(ctx, u.Sub)
	return out, err
}

func (r *CachedUserRepository) SetRole(ctx context.Context, sub, role string) error {
	err := r.next.SetRole(ctx, sub, role)
	r.invalidate(ctx, sub)
	return err
}

func (r *CachedUserRepository) invalidate(ctx context.Context, sub string) {
	if err := r.client.Del(ctx, r.key(sub)).Err(); err != nil {
		logger.Warnf("user cache invalidate %s: %v", sub, err)
	}
}

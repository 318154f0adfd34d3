package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList remembers logged-out access tokens in Redis until they
// would have expired anyway. A nil client disables it.
type RevocationList struct {
	client *redis.Client
	prefix string
}

func NewRevocationList(client *redis.Client) *RevocationList {
	return &RevocationList{client: client, prefix: "revoked:access:"}
}

// Revoke stores token for ttl. Non-positive ttls are ignored.
func (r *RevocationList) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if r == nil || r.client == nil || ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.prefix+token, "1", ttl).Err()
}

func (r *RevocationList) IsRevoked(ctx context.Context, token string) (bool, error) {
	if r == nil || r.client == nil {
		return false, nil
	}
	n, err := r.client.Exists(ctx, r.prefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

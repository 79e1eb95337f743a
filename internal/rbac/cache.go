package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const grantVersionKey = "rbac:grants:version"

// GrantCache keeps per-role grant sets in Redis behind a version counter.
// Invalidation bumps the version instead of deleting keys, so a resolver run
// flips every role to a cold read at once. A nil client disables caching.
type GrantCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewGrantCache instantiates the cache helper.
func NewGrantCache(client *redis.Client, ttl time.Duration) *GrantCache {
	return &GrantCache{client: client, ttl: ttl}
}

func (c *GrantCache) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, grantVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.Set(ctx, grantVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (c *GrantCache) key(ctx context.Context, role Role) (string, error) {
	ver, err := c.version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("rbac:grants:%s:%d", role, ver), nil
}

// Fetch returns the cached grant set for a role, or ok=false on a miss.
func (c *GrantCache) Fetch(ctx context.Context, role Role) ([]string, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	key, err := c.key(ctx, role)
	if err != nil {
		return nil, false, err
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var names []string
	if err := json.Unmarshal(payload, &names); err != nil {
		return nil, false, err
	}
	return names, true, nil
}

// Store caches the grant set for a role under the current version.
func (c *GrantCache) Store(ctx context.Context, role Role, names []string) error {
	if c == nil || c.client == nil {
		return nil
	}
	key, err := c.key(ctx, role)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, c.ttl).Err()
}

// Invalidate bumps the version so every cached grant set becomes stale.
func (c *GrantCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, grantVersionKey).Err()
}

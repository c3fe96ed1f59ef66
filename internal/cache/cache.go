// internal/cache/cache.go
package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const lookupTTL = 5 * time.Minute

// TenantLookup caches hostname/slug -> tenant id mappings in redis so the
// hot resolution path skips the database. Cached values are only ids; the
// resolver still re-reads the tenant row, so a deactivated tenant is never
// served from cache. A nil *TenantLookup is valid and caches nothing.
type TenantLookup struct {
	client *redis.Client
	log    *zap.Logger
}

func NewTenantLookup(addr string, log *zap.Logger) (*TenantLookup, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &TenantLookup{client: client, log: log}, nil
}

// Get returns the cached tenant id for a lookup key, or false on miss.
// Cache failures are treated as misses so redis outages never block
// resolution.
func (c *TenantLookup) Get(ctx context.Context, kind, key string) (uuid.UUID, bool) {
	if c == nil {
		return uuid.Nil, false
	}
	val, err := c.client.Get(ctx, "tenant_lookup:"+kind+":"+key).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("tenant lookup cache get failed", zap.Error(err))
		}
		return uuid.Nil, false
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Set stores a lookup result. Best effort.
func (c *TenantLookup) Set(ctx context.Context, kind, key string, id uuid.UUID) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, "tenant_lookup:"+kind+":"+key, id.String(), lookupTTL).Err(); err != nil {
		c.log.Warn("tenant lookup cache set failed", zap.Error(err))
	}
}

// Close shuts down the redis client.
func (c *TenantLookup) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

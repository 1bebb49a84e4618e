package rbac

import (
	"context"
	"io"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/platinummonkey/civicbase/pkg/observability"
	"github.com/platinummonkey/civicbase/pkg/storage/postgres"
)

const cacheKeyPrefix = "rbac:perms:"

// CacheConfig sizes the permission cache.
type CacheConfig struct {
	// Size is the number of profiles kept in process memory
	Size int
	// TTL bounds how long a profile's tags live in either level
	TTL time.Duration
}

// DefaultCacheConfig returns the default cache settings.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Size: 256,
		TTL:  5 * time.Minute,
	}
}

// PermissionCache is a PermissionSource that keeps profile permissions in
// an in-process LRU backed by an optional Redis level shared between
// instances. Redis failures degrade to the underlying source.
type PermissionCache struct {
	source PermissionSource
	local  *lru.LRU[string, []string]
	redis  *postgres.RedisClient
	ttl    time.Duration
	log    *observability.Logger
}

// NewPermissionCache wraps source. redis may be nil.
func NewPermissionCache(source PermissionSource, redis *postgres.RedisClient, config CacheConfig, log *observability.Logger) *PermissionCache {
	if config.Size <= 0 {
		config.Size = DefaultCacheConfig().Size
	}
	if config.TTL <= 0 {
		config.TTL = DefaultCacheConfig().TTL
	}
	if log == nil {
		log = observability.NewLogger(observability.InfoLevel, io.Discard)
	}
	return &PermissionCache{
		source: source,
		local:  lru.NewLRU[string, []string](config.Size, nil, config.TTL),
		redis:  redis,
		ttl:    config.TTL,
		log:    log,
	}
}

// Permissions returns the tags of profileID.
func (c *PermissionCache) Permissions(ctx context.Context, profileID string) ([]string, error) {
	if perms, ok := c.local.Get(profileID); ok {
		return perms, nil
	}

	if c.redis != nil {
		var perms []string
		found, err := c.redis.GetJSON(ctx, cacheKeyPrefix+profileID, &perms)
		if err != nil {
			c.log.WithError(err).WithField("profile_id", profileID).Warn("permission cache read failed")
		} else if found {
			c.local.Add(profileID, perms)
			return perms, nil
		}
	}

	perms, err := c.source.Permissions(ctx, profileID)
	if err != nil {
		return nil, err
	}

	c.local.Add(profileID, perms)
	if c.redis != nil {
		if err := c.redis.SetJSON(ctx, cacheKeyPrefix+profileID, perms, c.ttl); err != nil {
			c.log.WithError(err).WithField("profile_id", profileID).Warn("permission cache write failed")
		}
	}
	return perms, nil
}

// Invalidate drops profileID from both levels.
func (c *PermissionCache) Invalidate(ctx context.Context, profileID string) {
	c.local.Remove(profileID)
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, cacheKeyPrefix+profileID); err != nil {
		c.log.WithError(err).WithField("profile_id", profileID).Warn("permission cache invalidation failed")
	}
}

// Len returns the number of profiles held in process memory.
func (c *PermissionCache) Len() int {
	return c.local.Len()
}

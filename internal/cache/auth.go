package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/recipebox/recipebox/internal/model"
)

const (
	// authCachePrefix is the Redis key prefix for auth context cache.
	authCachePrefix = "auth:ctx:"
	// authUserIndexPrefix holds, per user, the set of cache keys issued for them.
	authUserIndexPrefix = "auth:user:"
	// authCacheTTL is the time-to-live for cached auth contexts.
	authCacheTTL = 5 * time.Minute
)

// CachedAuthContext represents auth context stored in Redis.
type CachedAuthContext struct {
	Method        string   `json:"method"`
	KeyID         string   `json:"key_id"`
	KeyPrefix     string   `json:"key_prefix"`
	UserID        string   `json:"user_id"`
	Scopes        []string `json:"scopes"`
	RateLimitTier string   `json:"rate_limit_tier"`
}

func toCached(auth *model.AuthContext) CachedAuthContext {
	return CachedAuthContext{
		Method:        string(auth.Method),
		KeyID:         auth.KeyID,
		KeyPrefix:     auth.KeyPrefix,
		UserID:        auth.UserID,
		Scopes:        auth.Scopes,
		RateLimitTier: auth.RateLimitTier,
	}
}

func (c CachedAuthContext) toModel() *model.AuthContext {
	method := model.AuthMethod(c.Method)
	if method == "" {
		method = model.AuthMethodAPIKey
	}
	return &model.AuthContext{
		Method:        method,
		KeyID:         c.KeyID,
		KeyPrefix:     c.KeyPrefix,
		UserID:        c.UserID,
		Scopes:        c.Scopes,
		RateLimitTier: c.RateLimitTier,
	}
}

// GetAuthContext retrieves a cached auth context by cache key.
// Returns nil if not found (cache miss).
func (c *Cache) GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error) {
	data, err := c.client.Get(ctx, authCachePrefix+cacheKey).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var cached CachedAuthContext
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return cached.toModel(), nil
}

// SetAuthContext caches an auth context and records the key under its user
// so that InvalidateUserAuthContexts can find it.
func (c *Cache) SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext) error {
	data, err := json.Marshal(toCached(auth))
	if err != nil {
		return fmt.Errorf("marshal auth context: %w", err)
	}

	indexKey := authUserIndexPrefix + auth.UserID

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, authCachePrefix+cacheKey, data, authCacheTTL)
	pipe.SAdd(ctx, indexKey, cacheKey)
	pipe.Expire(ctx, indexKey, authCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache auth context: %w", err)
	}
	return nil
}

// DeleteAuthContext removes a cached auth context.
func (c *Cache) DeleteAuthContext(ctx context.Context, cacheKey string) error {
	return c.client.Del(ctx, authCachePrefix+cacheKey).Err()
}

// InvalidateUserAuthContexts removes all cached auth contexts for a user.
// Called on key revocation, where the raw key (and so its cache key) is unknown.
func (c *Cache) InvalidateUserAuthContexts(ctx context.Context, userID string) error {
	indexKey := authUserIndexPrefix + userID

	members, err := c.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return fmt.Errorf("read auth index: %w", err)
	}

	keys := make([]string, 0, len(members)+1)
	for _, m := range members {
		keys = append(keys, authCachePrefix+m)
	}
	keys = append(keys, indexKey)

	return c.client.Del(ctx, keys...).Err()
}

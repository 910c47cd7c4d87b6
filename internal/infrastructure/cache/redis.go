package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"posadmin/internal/domain"
	"posadmin/internal/ports"
)

const keyPrefix = "posadmin:permissions:"

// RedisCache shares permission records between instances. Redis failures
// degrade to cache misses so the repository stays the source of truth.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger ports.Logger
}

// NewRedisClient parses a redis:// URL and verifies the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func NewRedisCache(client *redis.Client, ttl time.Duration, logger ports.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func key(orgID string) string {
	return keyPrefix + orgID
}

func (c *RedisCache) Get(ctx context.Context, orgID string) (domain.PermissionRecord, bool) {
	data, err := c.client.Get(ctx, key(orgID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PermissionRecord{}, false
	}
	if err != nil {
		c.logger.Warn(ctx, "permission cache read failed", "organization_id", orgID, "error", err)
		return domain.PermissionRecord{}, false
	}

	var record domain.PermissionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		c.logger.Warn(ctx, "dropping corrupt permission cache entry", "organization_id", orgID, "error", err)
		c.client.Del(ctx, key(orgID))
		return domain.PermissionRecord{}, false
	}
	return record, true
}

const maxSetAttempts = 3

// Set stores record unless the cached entry already holds a newer version.
// The check and the write run in one WATCH/MULTI transaction.
func (c *RedisCache) Set(ctx context.Context, record domain.PermissionRecord) {
	data, err := json.Marshal(record)
	if err != nil {
		c.logger.Warn(ctx, "permission cache encode failed", "organization_id", record.OrganizationID, "error", err)
		return
	}
	k := key(record.OrganizationID)
	write := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, k).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil && cachedVersion(current) > record.Version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, data, c.ttl)
			return nil
		})
		return err
	}
	for attempt := 0; attempt < maxSetAttempts; attempt++ {
		err = c.client.Watch(ctx, write, k)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		c.logger.Warn(ctx, "permission cache write failed", "organization_id", record.OrganizationID, "error", err)
	}
}

// cachedVersion reads the version of an encoded record; corrupt entries count as 0.
func cachedVersion(data []byte) int64 {
	var head struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return 0
	}
	return head.Version
}

func (c *RedisCache) Invalidate(ctx context.Context, orgID string) {
	if err := c.client.Del(ctx, key(orgID)).Err(); err != nil {
		c.logger.Error(ctx, "permission cache invalidation failed", "organization_id", orgID, "error", err)
	}
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quantum-grit/your-sofia/signal-service/internal/config"
	"github.com/quantum-grit/your-sofia/signal-service/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ContainerCache keeps the latest known container records by id.
type ContainerCache interface {
	GetMany(ctx context.Context, ids []string) (map[string]models.WasteContainer, error)
	Set(ctx context.Context, container models.WasteContainer) error
	Invalidate(ctx context.Context, ids ...string) error
	Close() error
}

type redisContainerCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
}

func NewRedisContainerCache(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (ContainerCache, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr).Msg("Connected to Redis")

	return &redisContainerCache{
		client: client,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.StateTTL,
		logger: logger,
	}, nil
}

func (c *redisContainerCache) keys(ids []string) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.prefix + id
	}
	return keys
}

// GetMany returns the cached entries; misses are absent from the result.
func (c *redisContainerCache) GetMany(ctx context.Context, ids []string) (map[string]models.WasteContainer, error) {
	result := make(map[string]models.WasteContainer, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	values, err := c.client.MGet(ctx, c.keys(ids)...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var container models.WasteContainer
		if err := json.Unmarshal([]byte(raw), &container); err != nil {
			c.logger.Warn().Err(err).Str("container_id", ids[i]).Msg("Dropping unreadable cache entry")
			continue
		}
		result[ids[i]] = container
	}

	return result, nil
}

func (c *redisContainerCache) Set(ctx context.Context, container models.WasteContainer) error {
	body, err := json.Marshal(container)
	if err != nil {
		return fmt.Errorf("failed to marshal container: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+container.ID, body, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *redisContainerCache) Invalidate(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, c.keys(ids)...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *redisContainerCache) Close() error {
	return c.client.Close()
}

type noopContainerCache struct{}

// NewNoopContainerCache is used when Redis is disabled; every lookup misses.
func NewNoopContainerCache() ContainerCache {
	return noopContainerCache{}
}

func (noopContainerCache) GetMany(context.Context, []string) (map[string]models.WasteContainer, error) {
	return map[string]models.WasteContainer{}, nil
}

func (noopContainerCache) Set(context.Context, models.WasteContainer) error { return nil }

func (noopContainerCache) Invalidate(context.Context, ...string) error { return nil }

func (noopContainerCache) Close() error { return nil }

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campusmarket/marketplace/messaging-service/internal/config"
	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
)

type RedisCache struct {
	client *redis.Client
	prefix string
}

var _ Cache = (*RedisCache)(nil)

func NewRedisCache(cfg config.RedisConfig, prefix string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisCacheWithClient(client, prefix), nil
}

// NewRedisCacheWithClient wraps an existing client, which the cache then owns.
func NewRedisCacheWithClient(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) conversationKey(id string) string {
	return fmt.Sprintf("%s:conversation:%s", c.prefix, id)
}

func (c *RedisCache) listingKey(id string) string {
	return fmt.Sprintf("%s:listing:%s", c.prefix, id)
}

func (c *RedisCache) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := c.getJSON(ctx, c.conversationKey(id), &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *RedisCache) SetConversation(ctx context.Context, conv *domain.Conversation, ttl time.Duration) error {
	return c.setJSON(ctx, c.conversationKey(conv.ID), conv, ttl)
}

func (c *RedisCache) DeleteConversation(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, c.conversationKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

func (c *RedisCache) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	var listing domain.Listing
	if err := c.getJSON(ctx, c.listingKey(id), &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (c *RedisCache) SetListing(ctx context.Context, listing *domain.Listing, ttl time.Duration) error {
	return c.setJSON(ctx, c.listingKey(listing.ID), listing, ttl)
}

func (c *RedisCache) getJSON(ctx context.Context, key string, v any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get from redis: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return nil
}

func (c *RedisCache) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

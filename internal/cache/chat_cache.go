// Package cache keeps resolved chats in Redis so repeated lookups skip the
// Telegram backend.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/observability"
)

const keyPrefix = "tgcollector:chat:"

// DefaultChatTTL bounds how stale a cached title or public name can get.
const DefaultChatTTL = 10 * time.Minute

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// ChatCache implements domain.ChatCache on Redis.
type ChatCache struct {
	client goredis.Cmdable
	ttl    time.Duration
}

// NewChatCache creates a cache; a non-positive ttl uses DefaultChatTTL.
func NewChatCache(client goredis.Cmdable, ttl time.Duration) *ChatCache {
	if ttl <= 0 {
		ttl = DefaultChatTTL
	}
	return &ChatCache{client: client, ttl: ttl}
}

// GetChat returns the cached chat for key, or nil on a miss.
func (c *ChatCache) GetChat(ctx context.Context, key string) (*domain.ChatInfo, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		observability.CacheRequests.WithLabelValues("miss").Inc()
		return nil, nil
	}
	if err != nil {
		observability.CacheRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to read chat %s: %w", key, err)
	}

	var chat domain.ChatInfo
	if err := json.Unmarshal([]byte(data), &chat); err != nil {
		observability.CacheRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to decode chat %s: %w", key, err)
	}
	observability.CacheRequests.WithLabelValues("hit").Inc()
	return &chat, nil
}

// SetChat stores chat under key for the cache TTL.
func (c *ChatCache) SetChat(ctx context.Context, key string, chat *domain.ChatInfo) error {
	data, err := json.Marshal(chat)
	if err != nil {
		return fmt.Errorf("failed to encode chat %s: %w", key, err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write chat %s: %w", key, err)
	}
	return nil
}

var _ domain.ChatCache = (*ChatCache)(nil)

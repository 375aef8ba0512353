package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/leads-portal-api/pkg/config"
)

// Entry describes one kind of cached value keyed per user.
type Entry struct {
	Prefix string
	TTL    time.Duration
}

// NewEntry adapts a configuration block into an Entry.
func NewEntry(cfg config.CacheEntryConfig) Entry {
	return Entry{Prefix: cfg.Prefix, TTL: cfg.TTL}
}

// Key returns the cache key for the given user.
func (e Entry) Key(userID string) string {
	return e.Prefix + userID
}

// NewRedis returns a configured Redis client.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	return client, nil
}

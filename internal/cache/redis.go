package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/socialagro/social-agro-backend/internal/core/datamodel/payment"
)

const keyPrefix = "social-agro:latest-payment:"

// LatestPaymentCache stores the most recent payment row per client in Redis.
type LatestPaymentCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func NewClient(opts Options) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

func NewLatestPaymentCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *LatestPaymentCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LatestPaymentCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func Key(clientID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, clientID)
}

func (c *LatestPaymentCache) Get(ctx context.Context, clientID int64) (*payment.Payment, bool, error) {
	raw, err := c.client.Get(ctx, Key(clientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var p payment.Payment
	if err := json.Unmarshal(raw, &p); err != nil {
		// A corrupt entry behaves like a miss and is dropped.
		c.logger.Warn("discarding unreadable cache entry", "cliente_id", clientID, "error", err)
		_ = c.client.Del(ctx, Key(clientID)).Err()
		return nil, false, nil
	}
	return &p, true, nil
}

func (c *LatestPaymentCache) Set(ctx context.Context, clientID int64, p *payment.Payment) error {
	if p == nil {
		return nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payment: %w", err)
	}
	if err := c.client.Set(ctx, Key(clientID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *LatestPaymentCache) Invalidate(ctx context.Context, clientID int64) error {
	if err := c.client.Del(ctx, Key(clientID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping is used by the health endpoint.
func (c *LatestPaymentCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *LatestPaymentCache) Close() error {
	return c.client.Close()
}

package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-console/internal/config"
	"github.com/spec-kit/ticket-console/internal/domain"
)

const snapshotKey = "ticket-console:snapshot"

// SnapshotCache keeps the last good ticket snapshot in Redis so a fresh
// console process starts from the previous state instead of an empty
// collection. Cache failures are logged and never surfaced: the gateway
// remains the source of truth.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewSnapshotCache connects to Redis using the provided configuration.
// Returns nil when no address is configured; a nil cache is a no-op.
func NewSnapshotCache(cfg config.RedisConfig, logger *zap.Logger) *SnapshotCache {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis, snapshot cache disabled for this run", zap.Error(err))
	} else {
		logger.Info("connected to redis snapshot cache")
	}

	return &SnapshotCache{client: client, ttl: cfg.TTL(), logger: logger}
}

// Load returns the cached snapshot, or false when none is available.
func (c *SnapshotCache) Load(ctx context.Context) ([]domain.Ticket, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("snapshot cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var tickets []domain.Ticket
	if err := json.Unmarshal(raw, &tickets); err != nil {
		c.logger.Warn("discarding malformed cached snapshot", zap.Error(err))
		return nil, false
	}
	return tickets, true
}

// Store writes the snapshot back with the configured TTL.
func (c *SnapshotCache) Store(ctx context.Context, tickets []domain.Ticket) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(tickets)
	if err != nil {
		c.logger.Warn("failed to encode snapshot", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, snapshotKey, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("snapshot cache write failed", zap.Error(err))
	}
}

// Close closes the underlying client.
func (c *SnapshotCache) Close() {
	if c != nil && c.client != nil {
		_ = c.client.Close()
	}
}

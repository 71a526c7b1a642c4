// Package redis provides a Redis persistence implementation storing each flow as one JSON document.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowbuilder/pkg/persistence"
	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "flowbuilder"

// Persistence implements the persistence layer for Redis.
type Persistence struct {
	client   redis.UniversalClient
	logger   *slog.Logger
	flowRepo *FlowRepository
}

// NewPersistence connects to the Redis server addressed by a redis:// or rediss:// URL.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return NewPersistenceWithClient(client, logger), nil
}

// NewPersistenceWithClient wraps an already configured client.
func NewPersistenceWithClient(client redis.UniversalClient, logger *slog.Logger) *Persistence {
	return &Persistence{
		client:   client,
		logger:   logger,
		flowRepo: NewFlowRepository(client, keyPrefix),
	}
}

// FlowRepository returns the flow repository backed by this client.
func (p *Persistence) FlowRepository() persistence.FlowRepository {
	return p.flowRepo
}

// HealthCheck pings the server.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Close closes the client.
func (p *Persistence) Close(_ context.Context) error {
	err := p.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

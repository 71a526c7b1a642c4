//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/flowbuilder/pkg/models"
	"github.com/dukex/flowbuilder/pkg/persistence"
	flowredis "github.com/dukex/flowbuilder/pkg/persistence/redis"
	"github.com/dukex/flowbuilder/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) (*flowredis.Persistence, context.Context) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := flowredis.NewPersistence(ctx, logger, fmt.Sprintf("redis://%s:%s/0", host, port.Port()))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = p.Close(ctx)
		_ = container.Terminate(ctx)

		cancel()
	})

	return p, ctx
}

func TestRedisPersistence_FlowLifecycle(t *testing.T) {
	p, ctx := setupRedis(t)
	repo := p.FlowRepository()

	require.NoError(t, p.HealthCheck(ctx))

	first := testutil.CreateTestFlow(testutil.WithChain("hello", "bye"))
	require.NoError(t, repo.Save(ctx, first))

	second := testutil.CreateTestFlow(testutil.WithNodes("lonely"))
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repo.Save(ctx, second))

	loaded, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "bye", loaded.Nodes[1].Text())
	assert.Equal(t, first.Edges, loaded.Edges)

	flows, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, flows, 2)
	assert.Equal(t, first.ID, flows[0].ID)
	assert.Equal(t, second.ID, flows[1].ID)

	first.Status = models.FlowStatusSaved
	require.NoError(t, repo.Save(ctx, first))

	loaded, err = repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FlowStatusSaved, loaded.Status)

	require.NoError(t, repo.Delete(ctx, first.ID))

	_, err = repo.GetByID(ctx, first.ID)
	assert.True(t, persistence.IsFlowNotFound(err))
	assert.True(t, persistence.IsFlowNotFound(repo.Delete(ctx, first.ID)))

	flows, err = repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, flows, 1)
}

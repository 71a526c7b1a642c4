package cmd

import (
	"io"
	"log/slog"
	"testing"

	"github.com/dukex/flowbuilder/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePersistenceProvider(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"file:///tmp/flows", "file"},
		{"./data", "file"},
		{"postgres://user@localhost/db", "postgres"},
		{"postgresql://user@localhost/db", "postgresql"},
		{"redis://localhost:6379/0", "redis"},
		{"rediss://cache.example.com:6380/1", "rediss"},
		{"mongodb://localhost", "file"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, parsePersistenceProvider(tt.url), tt.url)
	}
}

func TestNewPersistence_File(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p, err := NewPersistence(t.Context(), logger, "file://"+t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &file.Persistence{}, p)
}

func TestNewEventBus(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	bus, err := NewEventBus("gochannel", "", "flowbuilder-test", logger)
	require.NoError(t, err)
	require.NoError(t, bus.Close())

	_, err = NewEventBus("kafka", "", "flowbuilder-test", logger)
	assert.Error(t, err)

	_, err = NewEventBus("nats", "", "flowbuilder-test", logger)
	assert.ErrorContains(t, err, "unsupported event bus provider")
}

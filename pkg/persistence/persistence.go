// Package persistence provides the storage abstraction that accepted flows are handed to.
package persistence

import (
	"context"

	"github.com/dukex/flowbuilder/pkg/models"
)

// Persistence is implemented by every storage backend.
type Persistence interface {
	FlowRepository() FlowRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// FlowRepository stores complete flows, nodes and edges included.
type FlowRepository interface {
	GetAll(ctx context.Context) ([]*models.Flow, error)
	// GetByID returns ErrFlowNotFound when no flow has the id.
	GetByID(ctx context.Context, id string) (*models.Flow, error)
	// Save inserts or replaces the flow and stamps CreatedAt/UpdatedAt.
	Save(ctx context.Context, flow *models.Flow) error
	// Delete returns ErrFlowNotFound when no flow has the id.
	Delete(ctx context.Context, id string) error
}

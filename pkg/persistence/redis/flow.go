package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/flowbuilder/pkg/models"
	"github.com/dukex/flowbuilder/pkg/persistence"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// FlowRepository keeps one JSON document per flow plus a sorted set of ids scored by creation time.
type FlowRepository struct {
	client redis.UniversalClient
	prefix string
}

// NewFlowRepository creates a new flow repository. Keys are namespaced under prefix.
func NewFlowRepository(client redis.UniversalClient, prefix string) *FlowRepository {
	return &FlowRepository{client: client, prefix: prefix}
}

// GetAll returns every flow, oldest first.
func (r *FlowRepository) GetAll(ctx context.Context) ([]*models.Flow, error) {
	ids, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list flow ids: %w", err)
	}

	flows := make([]*models.Flow, 0, len(ids))
	if len(ids) == 0 {
		return flows, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.flowKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch flows: %w", err)
	}

	for i, value := range values {
		body, ok := value.(string)
		if !ok {
			// Index entry without a document; skip it.
			continue
		}

		flow, err := decodeFlow(ids[i], []byte(body))
		if err != nil {
			return nil, err
		}

		flows = append(flows, flow)
	}

	return flows, nil
}

// GetByID returns the flow stored under id.
func (r *FlowRepository) GetByID(ctx context.Context, id string) (*models.Flow, error) {
	body, err := r.client.Get(ctx, r.flowKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.NewFlowError("GetByID", id, persistence.ErrFlowNotFound)
		}

		return nil, fmt.Errorf("failed to fetch flow %s: %w", id, err)
	}

	return decodeFlow(id, body)
}

// Save writes the flow document and indexes it in a single MULTI/EXEC.
func (r *FlowRepository) Save(ctx context.Context, flow *models.Flow) error {
	now := time.Now().UTC()

	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	flow.UpdatedAt = now

	if flow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate flow ID: %w", err)
		}

		flow.ID = id.String()
	}

	body, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("failed to marshal flow %s: %w", flow.ID, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.flowKey(flow.ID), body, 0)
		pipe.ZAdd(ctx, r.indexKey(), redis.Z{
			Score:  float64(flow.CreatedAt.UnixMilli()),
			Member: flow.ID,
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save flow %s: %w", flow.ID, err)
	}

	return nil
}

// Delete removes the flow document and its index entry.
func (r *FlowRepository) Delete(ctx context.Context, id string) error {
	var deleted *redis.IntCmd

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, r.flowKey(id))
		pipe.ZRem(ctx, r.indexKey(), id)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete flow %s: %w", id, err)
	}

	if deleted.Val() == 0 {
		return persistence.NewFlowError("Delete", id, persistence.ErrFlowNotFound)
	}

	return nil
}

func (r *FlowRepository) flowKey(id string) string {
	return r.prefix + ":flow:" + id
}

func (r *FlowRepository) indexKey() string {
	return r.prefix + ":flows"
}

func decodeFlow(id string, body []byte) (*models.Flow, error) {
	var flow models.Flow

	err := json.Unmarshal(body, &flow)
	if err != nil {
		return nil, &persistence.FlowError{
			Op:      "GetByID",
			FlowID:  id,
			Err:     persistence.ErrInvalidFlowData,
			Message: err.Error(),
		}
	}

	return &flow, nil
}

package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowbuilder/pkg/models"
	"github.com/dukex/flowbuilder/pkg/persistence"
	"github.com/google/uuid"
)

const flowColumns = `
			id
		  , name
		  , status
		  , owner
		  , created_at
		  , updated_at
		  , saved_at
`

// FlowRepository handles flow-related database operations.
type FlowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFlowRepository creates a new flow repository.
func NewFlowRepository(db *sql.DB, logger *slog.Logger) *FlowRepository {
	return &FlowRepository{db: db, logger: logger}
}

// GetAll returns all flows from the database, oldest first.
func (r *FlowRepository) GetAll(ctx context.Context) ([]*models.Flow, error) {
	query := `SELECT ` + flowColumns + ` FROM flows ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query flows: %w", err)
	}

	defer r.closeRows(ctx, rows)

	flows := make([]*models.Flow, 0)

	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow: %w", err)
		}

		flows = append(flows, flow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating flows: %w", err)
	}

	for _, flow := range flows {
		err = r.loadNodesAndEdges(ctx, flow)
		if err != nil {
			return nil, err
		}
	}

	return flows, nil
}

// GetByID returns a flow with its nodes and edges.
func (r *FlowRepository) GetByID(ctx context.Context, id string) (*models.Flow, error) {
	query := `SELECT ` + flowColumns + ` FROM flows WHERE id = $1`

	flow, err := scanFlow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewFlowError("GetByID", id, persistence.ErrFlowNotFound)
		}

		return nil, fmt.Errorf("failed to scan flow: %w", err)
	}

	err = r.loadNodesAndEdges(ctx, flow)
	if err != nil {
		return nil, err
	}

	return flow, nil
}

// Save upserts a flow and replaces its nodes and edges in one transaction.
func (r *FlowRepository) Save(ctx context.Context, flow *models.Flow) (err error) {
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

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	flowQuery := `
		INSERT INTO flows (id, name, status, owner, created_at, updated_at, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			owner = EXCLUDED.owner,
			updated_at = EXCLUDED.updated_at,
			saved_at = EXCLUDED.saved_at
	`

	_, err = tx.ExecContext(ctx, flowQuery,
		flow.ID,
		flow.Name,
		flow.Status,
		flow.Owner,
		flow.CreatedAt,
		flow.UpdatedAt,
		flow.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save flow base: %w", err)
	}

	// Edges reference nodes, so they go first.
	_, err = tx.ExecContext(ctx, "DELETE FROM flow_edges WHERE flow_id = $1", flow.ID)
	if err != nil {
		return fmt.Errorf("failed to delete existing edges: %w", err)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM flow_nodes WHERE flow_id = $1", flow.ID)
	if err != nil {
		return fmt.Errorf("failed to delete existing nodes: %w", err)
	}

	err = saveNodes(ctx, tx, flow)
	if err != nil {
		return fmt.Errorf("failed to save flow nodes: %w", err)
	}

	err = saveEdges(ctx, tx, flow)
	if err != nil {
		return fmt.Errorf("failed to save flow edges: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete removes a flow. Nodes and edges follow through ON DELETE CASCADE.
func (r *FlowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM flows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.NewFlowError("Delete", id, persistence.ErrFlowNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlow(row rowScanner) (*models.Flow, error) {
	var (
		flow  models.Flow
		owner sql.NullString
	)

	err := row.Scan(
		&flow.ID,
		&flow.Name,
		&flow.Status,
		&owner,
		&flow.CreatedAt,
		&flow.UpdatedAt,
		&flow.SavedAt,
	)
	if err != nil {
		return nil, err
	}

	flow.Owner = owner.String
	flow.Nodes = make([]*models.Node, 0)
	flow.Edges = make([]*models.Edge, 0)

	return &flow, nil
}

func (r *FlowRepository) loadNodesAndEdges(ctx context.Context, flow *models.Flow) error {
	nodes, err := r.loadNodes(ctx, flow.ID)
	if err != nil {
		return err
	}

	edges, err := r.loadEdges(ctx, flow.ID)
	if err != nil {
		return err
	}

	flow.Nodes = nodes
	flow.Edges = edges

	return nil
}

func (r *FlowRepository) loadNodes(ctx context.Context, flowID string) ([]*models.Node, error) {
	query := `
		SELECT id, node_type, position_x, position_y, data
		FROM flow_nodes
		WHERE flow_id = $1
		ORDER BY sort_order
	`

	rows, err := r.db.QueryContext(ctx, query, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query flow nodes: %w", err)
	}

	defer r.closeRows(ctx, rows)

	nodes := make([]*models.Node, 0)

	for rows.Next() {
		var (
			node     models.Node
			dataJSON []byte
		)

		err := rows.Scan(&node.ID, &node.Type, &node.Position.X, &node.Position.Y, &dataJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}

		node.Data, err = models.DecodeNodeData(node.Type, dataJSON)
		if err != nil {
			return nil, &persistence.FlowError{
				Op:      "GetByID",
				FlowID:  flowID,
				Err:     persistence.ErrInvalidFlowData,
				Message: err.Error(),
			}
		}

		nodes = append(nodes, &node)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	return nodes, nil
}

func (r *FlowRepository) loadEdges(ctx context.Context, flowID string) ([]*models.Edge, error) {
	query := `
		SELECT id, source_node_id, source_handle, target_node_id, target_handle
		FROM flow_edges
		WHERE flow_id = $1
		ORDER BY sort_order
	`

	rows, err := r.db.QueryContext(ctx, query, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query flow edges: %w", err)
	}

	defer r.closeRows(ctx, rows)

	edges := make([]*models.Edge, 0)

	for rows.Next() {
		var edge models.Edge

		err := rows.Scan(&edge.ID, &edge.Source, &edge.SourceHandle, &edge.Target, &edge.TargetHandle)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}

		edges = append(edges, &edge)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}

	return edges, nil
}

func saveNodes(ctx context.Context, tx *sql.Tx, flow *models.Flow) error {
	query := `
		INSERT INTO flow_nodes (flow_id, id, sort_order, node_type, position_x, position_y, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for i, node := range flow.Nodes {
		data := node.Data
		if data == nil {
			data = node.Type.NewData()
		}

		dataJSON, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal node data: %w", err)
		}

		_, err = tx.ExecContext(ctx, query,
			flow.ID,
			node.ID,
			i,
			node.Type,
			node.Position.X,
			node.Position.Y,
			dataJSON,
		)
		if err != nil {
			return fmt.Errorf("failed to save node %s: %w", node.ID, err)
		}
	}

	return nil
}

func saveEdges(ctx context.Context, tx *sql.Tx, flow *models.Flow) error {
	query := `
		INSERT INTO flow_edges (flow_id, id, sort_order, source_node_id, source_handle, target_node_id, target_handle)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for i, edge := range flow.Edges {
		_, err := tx.ExecContext(ctx, query,
			flow.ID,
			edge.ID,
			i,
			edge.Source,
			edge.SourceHandle,
			edge.Target,
			edge.TargetHandle,
		)
		if err != nil {
			return fmt.Errorf("failed to save edge %s: %w", edge.ID, err)
		}
	}

	return nil
}

func (r *FlowRepository) closeRows(ctx context.Context, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

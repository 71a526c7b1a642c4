package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dukex/flowbuilder/pkg/eventbus"
	"github.com/dukex/flowbuilder/pkg/events"
	"github.com/dukex/flowbuilder/pkg/flow"
	"github.com/dukex/flowbuilder/pkg/models"
	"github.com/dukex/flowbuilder/pkg/otelhelper"
	"github.com/dukex/flowbuilder/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RejectionDisplayDuration is how long a refused save's message stays visible.
const RejectionDisplayDuration = 3 * time.Second

// CreateFlowRequest represents the request to create an empty flow.
type CreateFlowRequest struct {
	Name  string
	Owner string
}

// CreateNodeRequest represents the request to add a node from the palette.
type CreateNodeRequest struct {
	Type     models.NodeType
	Position models.Position
	Data     models.NodeData // nil means the type's initial payload
}

// ValidationReport combines the save-time check with the reachability diagnostic.
type ValidationReport struct {
	*flow.ValidationResult

	Reachability *flow.ReachabilityReport `json:"reachability"`
}

// SaveResult is the outcome of a save attempt. When Saved is false nothing
// was stored and Validation explains why.
type SaveResult struct {
	Saved        bool                   `json:"saved"`
	Flow         *models.Flow           `json:"flow"`
	Validation   *flow.ValidationResult `json:"validation"`
	DismissAfter time.Duration          `json:"-"`
}

// Flow handles flow editing and saving. Operations on all flows are
// serialized so each load-modify-store completes before the next begins.
type Flow struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
	newID       flow.IDGenerator

	mu sync.Mutex
}

// Option configures a Flow service.
type Option func(*Flow)

// WithEventPublisher publishes lifecycle events through publisher.
func WithEventPublisher(publisher eventbus.EventPublisher) Option {
	return func(f *Flow) {
		f.publisher = publisher
	}
}

// WithTracer replaces the global tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(f *Flow) {
		f.tracer = tracer
	}
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Flow) {
		f.logger = logger
	}
}

// WithIDGenerator replaces the node id generator.
func WithIDGenerator(gen flow.IDGenerator) Option {
	return func(f *Flow) {
		f.newID = gen
	}
}

// NewFlow creates a new flow service.
func NewFlow(persistence persistence.Persistence, opts ...Option) *Flow {
	f := &Flow{
		persistence: persistence,
		tracer:      otel.Tracer("flowbuilder/services"),
		logger:      slog.Default(),
		newID:       flow.ULIDGenerator,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// HealthCheck checks the health of the persistence layer.
func (f *Flow) HealthCheck(ctx context.Context) (string, bool) {
	if f.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := f.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListFlows returns every stored flow.
func (f *Flow) ListFlows(ctx context.Context) ([]*models.Flow, error) {
	flows, err := f.persistence.FlowRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	return flows, nil
}

// FetchByID retrieves a flow by its ID.
func (f *Flow) FetchByID(ctx context.Context, id string) (*models.Flow, error) {
	return f.persistence.FlowRepository().GetByID(ctx, id)
}

// Create stores a new empty draft flow.
func (f *Flow) Create(ctx context.Context, req *CreateFlowRequest) (*models.Flow, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, NewValidationError("Create", "FLOW_NAME_REQUIRED", "flow name is required", ErrFlowNameRequired)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate flow ID: %w", err)
	}

	created := &models.Flow{
		ID:     id.String(),
		Name:   name,
		Owner:  req.Owner,
		Status: models.FlowStatusDraft,
		Nodes:  make([]*models.Node, 0),
		Edges:  make([]*models.Edge, 0),
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	err = f.persistence.FlowRepository().Save(ctx, created)
	if err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}

	return created, nil
}

// Rename changes the flow name. The graph is untouched, so the save status is kept.
func (f *Flow) Rename(ctx context.Context, id, name string) (*models.Flow, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("Rename", "FLOW_NAME_REQUIRED", "flow name is required", ErrFlowNameRequired)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	stored, err := f.persistence.FlowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	stored.Name = name

	err = f.persistence.FlowRepository().Save(ctx, stored)
	if err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}

	return stored, nil
}

// Delete removes a flow and publishes flow.deleted.
func (f *Flow) Delete(ctx context.Context, id string) error {
	ctx, span := otelhelper.StartSpan(ctx, f.tracer, "services.Flow.Delete", attribute.String(otelhelper.FlowIDKey, id))
	defer span.End()

	f.mu.Lock()
	defer f.mu.Unlock()

	err := f.persistence.FlowRepository().Delete(ctx, id)
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	f.publish(ctx, id, events.FlowDeleted{BaseEvent: events.NewBaseEvent(events.FlowDeletedEvent, id)})

	return nil
}

// CreateNode adds a node to the flow and returns it with its generated id.
func (f *Flow) CreateNode(ctx context.Context, flowID string, req *CreateNodeRequest) (*models.Node, error) {
	ctx, span := otelhelper.StartSpan(ctx, f.tracer, "services.Flow.CreateNode",
		attribute.String(otelhelper.FlowIDKey, flowID),
		attribute.String(otelhelper.NodeTypeKey, string(req.Type)),
	)
	defer span.End()

	nodeType, err := models.ParseNodeType(string(req.Type))
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if req.Data != nil && req.Data.NodeType() != nodeType {
		err = fmt.Errorf("%w: %s payload for %s node", flow.ErrPayloadTypeMismatch, req.Data.NodeType(), nodeType)
		otelhelper.SetError(span, err)

		return nil, err
	}

	var created *models.Node

	_, err = f.edit(ctx, "CreateNode", flowID, func(g *flow.Graph) error {
		created = g.CreateNode(nodeType, req.Position, req.Data)

		return nil
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.NodeIDKey, created.ID))

	return created, nil
}

// UpdateNodePayload replaces the payload of one node.
func (f *Flow) UpdateNodePayload(ctx context.Context, flowID, nodeID string, data models.NodeData) (*models.Node, error) {
	var updated *models.Node

	_, err := f.edit(ctx, "UpdateNodePayload", flowID, func(g *flow.Graph) error {
		err := g.UpdateNodePayload(nodeID, data)
		if err != nil {
			return err
		}

		updated, err = g.Node(nodeID)

		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteNode removes a node and every edge touching it.
func (f *Flow) DeleteNode(ctx context.Context, flowID, nodeID string) (*models.Flow, error) {
	return f.edit(ctx, "DeleteNode", flowID, func(g *flow.Graph) error {
		return g.RemoveNode(nodeID)
	})
}

// Connect admits an edge when its source has no outgoing edge yet. A refused
// connection returns a *flow.RejectedConnectionError and stores nothing.
func (f *Flow) Connect(ctx context.Context, flowID string, connection models.Connection) (*models.Edge, error) {
	ctx, span := otelhelper.StartSpan(ctx, f.tracer, "services.Flow.Connect",
		attribute.String(otelhelper.FlowIDKey, flowID),
		attribute.String(otelhelper.NodeIDKey, connection.Source),
	)
	defer span.End()

	var created *models.Edge

	_, err := f.edit(ctx, "Connect", flowID, func(g *flow.Graph) error {
		var err error

		created, err = g.TryConnect(connection)

		return err
	})
	if err != nil {
		var rejected *flow.RejectedConnectionError
		if errors.As(err, &rejected) {
			otelhelper.SetRejected(span, string(rejected.Reason), attribute.String(otelhelper.NodeIDKey, connection.Target))
			f.logger.DebugContext(ctx, "Connection rejected", "flow_id", flowID, "reason", rejected.Reason)
		}

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.EdgeIDKey, created.ID))

	return created, nil
}

// DeleteEdge removes one edge.
func (f *Flow) DeleteEdge(ctx context.Context, flowID, edgeID string) (*models.Flow, error) {
	return f.edit(ctx, "DeleteEdge", flowID, func(g *flow.Graph) error {
		return g.RemoveEdge(edgeID)
	})
}

// Validate runs the save-time check and reachability without changing anything.
func (f *Flow) Validate(ctx context.Context, flowID string) (*ValidationReport, error) {
	stored, err := f.persistence.FlowRepository().GetByID(ctx, flowID)
	if err != nil {
		return nil, err
	}

	return &ValidationReport{
		ValidationResult: flow.Validate(stored.Nodes, stored.Edges),
		Reachability:     flow.CheckReachability(stored.Nodes, stored.Edges),
	}, nil
}

// Save validates the flow. A valid flow is marked saved, stored and announced
// with flow.saved. An invalid flow is left as is and announced with
// flow.save_rejected; the result carries the message and how long to show it.
func (f *Flow) Save(ctx context.Context, flowID string) (*SaveResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, f.tracer, "services.Flow.Save", attribute.String(otelhelper.FlowIDKey, flowID))
	defer span.End()

	f.mu.Lock()
	defer f.mu.Unlock()

	stored, err := f.persistence.FlowRepository().GetByID(ctx, flowID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.FlowNameKey, stored.Name))

	err = flow.CheckReferences(stored.Nodes, stored.Edges)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, &ServiceError{Op: "Save", Code: "INVALID_STORED_FLOW", Message: err.Error(), Err: ErrInvalidStoredFlow}
	}

	result := flow.Validate(stored.Nodes, stored.Edges)
	span.SetAttributes(attribute.Bool(otelhelper.ValidationKey, result.Valid))

	if !result.Valid {
		f.logger.InfoContext(ctx, "Flow save rejected", "flow_id", flowID, "terminal_nodes", result.TerminalNodeIDs)

		f.publish(ctx, flowID, events.FlowSaveRejected{
			BaseEvent:       events.NewBaseEvent(events.FlowSaveRejectedEvent, flowID),
			Message:         result.Message,
			TerminalNodeIDs: result.TerminalNodeIDs,
		})

		return &SaveResult{
			Saved:        false,
			Flow:         stored,
			Validation:   result,
			DismissAfter: RejectionDisplayDuration,
		}, nil
	}

	savedAt := time.Now().UTC()
	stored.Status = models.FlowStatusSaved
	stored.SavedAt = &savedAt

	err = f.persistence.FlowRepository().Save(ctx, stored)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to save flow: %w", err)
	}

	f.logger.InfoContext(ctx, "Flow saved", "flow_id", flowID, "nodes", len(stored.Nodes), "edges", len(stored.Edges))

	f.publish(ctx, flowID, events.FlowSaved{
		BaseEvent: events.NewBaseEvent(events.FlowSavedEvent, flowID),
		FlowName:  stored.Name,
		NodeCount: len(stored.Nodes),
		EdgeCount: len(stored.Edges),
	})

	return &SaveResult{
		Saved:      true,
		Flow:       stored,
		Validation: result,
	}, nil
}

// edit loads a flow into a graph, applies mutate and stores the result as a draft.
// Nothing is stored when mutate fails.
func (f *Flow) edit(ctx context.Context, op, flowID string, mutate func(*flow.Graph) error) (*models.Flow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, err := f.persistence.FlowRepository().GetByID(ctx, flowID)
	if err != nil {
		return nil, err
	}

	graph, err := flow.FromFlow(stored, flow.WithIDGenerator(f.newID))
	if err != nil {
		return nil, &ServiceError{Op: op, Code: "INVALID_STORED_FLOW", Message: err.Error(), Err: ErrInvalidStoredFlow}
	}

	err = mutate(graph)
	if err != nil {
		return nil, err
	}

	graph.ApplyTo(stored)
	stored.Status = models.FlowStatusDraft

	err = f.persistence.FlowRepository().Save(ctx, stored)
	if err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}

	return stored, nil
}

func (f *Flow) publish(ctx context.Context, key string, event eventbus.Event) {
	if f.publisher == nil {
		return
	}

	err := f.publisher.Publish(ctx, key, event)
	if err != nil {
		f.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "flow_id", key, "error", err)
	}
}

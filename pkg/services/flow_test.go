package services

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/flowbuilder/pkg/eventbus"
	"github.com/dukex/flowbuilder/pkg/events"
	"github.com/dukex/flowbuilder/pkg/flow"
	"github.com/dukex/flowbuilder/pkg/mocks"
	"github.com/dukex/flowbuilder/pkg/models"
	"github.com/dukex/flowbuilder/pkg/otelhelper"
	"github.com/dukex/flowbuilder/pkg/persistence"
	"github.com/dukex/flowbuilder/pkg/persistence/file"
	"github.com/dukex/flowbuilder/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func sequentialIDs() flow.IDGenerator {
	next := 0

	return func(nodeType models.NodeType) string {
		next++

		return fmt.Sprintf("%s_%d", nodeType, next)
	}
}

func newTestService(t *testing.T, opts ...Option) (*Flow, persistence.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	opts = append([]Option{
		WithIDGenerator(sequentialIDs()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)

	return NewFlow(p, opts...), p
}

func eventOfType(eventType events.EventType) any {
	return mock.MatchedBy(func(e eventbus.Event) bool {
		return e.GetType() == eventType
	})
}

func TestFlow_Create(t *testing.T) {
	service, p := newTestService(t)

	created, err := service.Create(t.Context(), &CreateFlowRequest{Name: "  Welcome  ", Owner: "user-1"})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Welcome", created.Name)
	assert.Equal(t, models.FlowStatusDraft, created.Status)
	assert.Empty(t, created.Nodes)

	stored, err := p.FlowRepository().GetByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", stored.Owner)
}

func TestFlow_Create_RequiresName(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Create(t.Context(), &CreateFlowRequest{Name: "   "})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFlowNameRequired)
	assert.True(t, IsValidationError(err))
}

func TestFlow_Rename_KeepsStatus(t *testing.T) {
	service, p := newTestService(t)
	stored := testutil.CreateTestFlow(func(f *models.Flow) { f.Status = models.FlowStatusSaved })
	require.NoError(t, p.FlowRepository().Save(t.Context(), stored))

	renamed, err := service.Rename(t.Context(), stored.ID, "Support bot")
	require.NoError(t, err)

	assert.Equal(t, "Support bot", renamed.Name)
	assert.Equal(t, models.FlowStatusSaved, renamed.Status)
}

func TestFlow_FetchByID_NotFound(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.FetchByID(t.Context(), "missing")
	assert.True(t, IsNotFoundError(err))
}

func TestFlow_CreateNode(t *testing.T) {
	service, p := newTestService(t)
	stored := testutil.CreateTestFlow(func(f *models.Flow) { f.Status = models.FlowStatusSaved })
	require.NoError(t, p.FlowRepository().Save(t.Context(), stored))

	first, err := service.CreateNode(t.Context(), stored.ID, &CreateNodeRequest{
		Type:     models.NodeTypeMessage,
		Position: models.Position{X: 10, Y: 20},
	})
	require.NoError(t, err)

	second, err := service.CreateNode(t.Context(), stored.ID, &CreateNodeRequest{
		Type: models.NodeTypeMessage,
		Data: models.MessageData{Text: "hello"},
	})
	require.NoError(t, err)

	assert.Equal(t, "textNode_1", first.ID)
	assert.Equal(t, models.MessageData{}, first.Data)
	assert.Equal(t, "textNode_2", second.ID)
	assert.Equal(t, "hello", second.Text())

	reloaded, err := p.FlowRepository().GetByID(t.Context(), stored.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Nodes, 2)
	assert.Equal(t, models.FlowStatusDraft, reloaded.Status)
}

func TestFlow_CreateNode_UnknownType(t *testing.T) {
	service, p := newTestService(t)
	stored := testutil.CreateTestFlow()
	require.NoError(t, p.FlowRepository().Save(t.Context(), stored))

	_, err := service.CreateNode(t.Context(), stored.ID, &CreateNodeRequest{Type: "imageNode"})
	assert.ErrorIs(t, err, models.ErrUnknownNodeType)
	assert.True(t, IsValidationError(err))
}

func TestFlow_UpdateNodePayload(t *testing.T) {
	service, p := newTestService(t)
	stored := testutil.CreateTestFlow(testutil.WithChain("hello", "bye"))
	require.NoError(t, p.FlowRepository().Save(t.Context(), stored))

	updated, err := service.UpdateNodePayload(t.Context(), stored.ID, "node-1", models.MessageData{Text: "hi there"})
	require.NoError(t, err)
	assert.Equal(t, "hi there", updated.Text())

	reloaded, err := p.FlowRepository().GetByID(t.Context(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi there", reloaded.Nodes[0].Text())
	assert.Len(t, reloaded.Edges, 1)

	_, err = service.UpdateNodePayload(t.Context(), stored.ID, "ghost", models.MessageData{Text: "x"})
	assert.True(t, IsNotFoundError(err))
}

func TestFlow_DeleteNode_CascadesEdges(t *testing.T) {
	service, p := newTestService(t)
	stored := testutil.CreateTestFlow(testutil.WithChain("one", "two", "three"))
	require.NoError(t, p.FlowRepository().Save(t.Context(), stored))

	updated, err := service.DeleteNode(t.Context(), stored.ID, "node-2")
	require.NoError(t, err)

	assert.Len(t, updated.Nodes, 2)
	assert.Empty(t, updated.Edges)
}

func TestFlow_Connect(t *testing.T) {
	service, p := newTestService(t)
	stored := testutil.CreateTestFlow(testutil.WithNodes("node-1", "node-2", "node-3"))
	require.NoError(t, p.FlowRepository().Save(t.Context(), stored))

	edge, err := service.Connect(t.Context(), stored.ID, models.Connection{Source: "node-1", Target: "node-2"})
	require.NoError(t, err)
	assert.Equal(t, "reactflow__edge-node-1a-node-2b", edge.ID)

	_, err = service.Connect(t.Context(), stored.ID, models.Connection{Source: "node-1", Target: "node-3"})
	require.Error(t, err)
	assert.True(t, IsConflictError(err))

	var rejected *flow.RejectedConnectionError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, flow.RejectReasonSourceHasOutgoing, rejected.Reason)

	reloaded, err := p.FlowRepository().GetByID(t.Context(), stored.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Edges, 1)
}

func TestFlow_DeleteEdge(t *testing.T) {
	service, p := newTestService(t)
	stored := testutil.CreateTestFlow(testutil.WithChain("one", "two"))
	require.NoError(t, p.FlowRepository().Save(t.Context(), stored))

	updated, err := service.DeleteEdge(t.Context(), stored.ID, stored.Edges[0].ID)
	require.NoError(t, err)
	assert.Empty(t, updated.Edges)

	_, err = service.DeleteEdge(t.Context(), stored.ID, stored.Edges[0].ID)
	assert.ErrorIs(t, err, flow.ErrEdgeNotFound)
}

func TestFlow_Validate_DoesNotChangeState(t *testing.T) {
	service, p := newTestService(t)
	stored := testutil.CreateTestFlow(testutil.WithNodes("node-1", "node-2", "node-3"), testutil.WithEdge("node-1", "node-2"))
	require.NoError(t, p.FlowRepository().Save(t.Context(), stored))

	report, err := service.Validate(t.Context(), stored.ID)
	require.NoError(t, err)

	assert.False(t, report.Valid)
	assert.Equal(t, []string{"node-2", "node-3"}, report.TerminalNodeIDs)
	assert.Equal(t, flow.InvalidFlowMessage, report.Message)
	assert.False(t, report.Reachability.Reachable)

	reloaded, err := p.FlowRepository().GetByID(t.Context(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FlowStatusDraft, reloaded.Status)
}

func TestFlow_Save_Valid(t *testing.T) {
	bus := &mocks.MockEventBus{}
	service, p := newTestService(t, WithEventPublisher(bus))

	stored := testutil.CreateTestFlow(testutil.WithChain("hello", "how can I help?", "bye"))
	require.NoError(t, p.FlowRepository().Save(t.Context(), stored))

	bus.On("Publish", mock.Anything, stored.ID, eventOfType(events.FlowSavedEvent)).Return(nil).Once()

	result, err := service.Save(t.Context(), stored.ID)
	require.NoError(t, err)

	assert.True(t, result.Saved)
	assert.True(t, result.Validation.Valid)
	assert.Equal(t, models.FlowStatusSaved, result.Flow.Status)
	assert.NotNil(t, result.Flow.SavedAt)

	reloaded, err := p.FlowRepository().GetByID(t.Context(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FlowStatusSaved, reloaded.Status)

	bus.AssertExpectations(t)
}

func TestFlow_Save_Rejected(t *testing.T) {
	bus := &mocks.MockEventBus{}
	service, p := newTestService(t, WithEventPublisher(bus))

	stored := testutil.CreateTestFlow(testutil.WithNodes("node-1", "node-2"))
	require.NoError(t, p.FlowRepository().Save(t.Context(), stored))

	bus.On("Publish", mock.Anything, stored.ID, mock.MatchedBy(func(e eventbus.Event) bool {
		rejected, ok := e.(events.FlowSaveRejected)

		return ok && len(rejected.TerminalNodeIDs) == 2 && rejected.Message == flow.InvalidFlowMessage
	})).Return(nil).Once()

	result, err := service.Save(t.Context(), stored.ID)
	require.NoError(t, err)

	assert.False(t, result.Saved)
	assert.Equal(t, RejectionDisplayDuration, result.DismissAfter)
	assert.Equal(t, []string{"node-1", "node-2"}, result.Validation.TerminalNodeIDs)

	reloaded, err := p.FlowRepository().GetByID(t.Context(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FlowStatusDraft, reloaded.Status)
	assert.Nil(t, reloaded.SavedAt)

	bus.AssertExpectations(t)
}

func TestFlow_Save_PublishFailureDoesNotFailSave(t *testing.T) {
	bus := &mocks.MockEventBus{}
	service, p := newTestService(t, WithEventPublisher(bus))

	stored := testutil.CreateTestFlow(testutil.WithChain("only"))
	require.NoError(t, p.FlowRepository().Save(t.Context(), stored))

	bus.On("Publish", mock.Anything, stored.ID, mock.Anything).Return(errors.New("broker down"))

	result, err := service.Save(t.Context(), stored.ID)
	require.NoError(t, err)
	assert.True(t, result.Saved)
}

func TestFlow_Save_EditMarksDraftAgain(t *testing.T) {
	service, p := newTestService(t)
	stored := testutil.CreateTestFlow(testutil.WithChain("one", "two"))
	require.NoError(t, p.FlowRepository().Save(t.Context(), stored))

	result, err := service.Save(t.Context(), stored.ID)
	require.NoError(t, err)
	require.True(t, result.Saved)

	_, err = service.CreateNode(t.Context(), stored.ID, &CreateNodeRequest{Type: models.NodeTypeMessage})
	require.NoError(t, err)

	reloaded, err := p.FlowRepository().GetByID(t.Context(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FlowStatusDraft, reloaded.Status)

	result, err = service.Save(t.Context(), stored.ID)
	require.NoError(t, err)
	assert.False(t, result.Saved)
}

func TestFlow_Delete(t *testing.T) {
	bus := &mocks.MockEventBus{}
	service, p := newTestService(t, WithEventPublisher(bus))

	stored := testutil.CreateTestFlow()
	require.NoError(t, p.FlowRepository().Save(t.Context(), stored))

	bus.On("Publish", mock.Anything, stored.ID, eventOfType(events.FlowDeletedEvent)).Return(nil).Once()

	require.NoError(t, service.Delete(t.Context(), stored.ID))
	assert.True(t, IsNotFoundError(service.Delete(t.Context(), stored.ID)))

	bus.AssertExpectations(t)
}

func TestFlow_Edit_InconsistentStoredFlow(t *testing.T) {
	repo := &mocks.MockFlowRepository{}
	p := &mocks.MockPersistence{}
	p.On("FlowRepository").Return(repo)

	broken := testutil.CreateTestFlow(testutil.WithNodes("node-1"), testutil.WithEdge("node-1", "ghost"))
	repo.On("GetByID", mock.Anything, broken.ID).Return(broken, nil)

	service := NewFlow(p)

	_, err := service.DeleteEdge(t.Context(), broken.ID, "anything")
	assert.ErrorIs(t, err, ErrInvalidStoredFlow)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestFlow_HealthCheck(t *testing.T) {
	p := &mocks.MockPersistence{}
	p.On("HealthCheck", mock.Anything).Return(errors.New("connection refused")).Once()
	p.On("HealthCheck", mock.Anything).Return(nil).Once()

	service := NewFlow(p)

	message, ok := service.HealthCheck(t.Context())
	assert.False(t, ok)
	assert.Contains(t, message, "connection refused")

	message, ok = service.HealthCheck(t.Context())
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", message)
}

func writeStoredFlow(t *testing.T, root, id, body string) {
	t.Helper()

	dir := filepath.Join(root, "flows")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".json"), []byte(body), 0o600))
}

func TestFlow_NullEntriesInStoredFlow(t *testing.T) {
	root := t.TempDir()
	bus := &mocks.MockEventBus{}
	service := NewFlow(file.NewPersistence(root),
		WithEventPublisher(bus),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	writeStoredFlow(t, root, "nulls", `{
  "id": "nulls",
  "name": "Nulls",
  "status": "draft",
  "nodes": [null, {"id": "a", "type": "textNode", "data": {"text": "hi"}}],
  "edges": [null]
}`)

	_, err := service.CreateNode(t.Context(), "nulls", &CreateNodeRequest{Type: models.NodeTypeMessage})
	require.ErrorIs(t, err, ErrInvalidStoredFlow)

	result, err := service.Save(t.Context(), "nulls")
	require.ErrorIs(t, err, ErrInvalidStoredFlow)
	assert.Nil(t, result)

	report, err := service.Validate(t.Context(), "nulls")
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, []string{"a"}, report.TerminalNodeIDs)

	bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestFlow_FetchByID_InvalidID(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.FetchByID(t.Context(), "../escape")

	require.ErrorIs(t, err, persistence.ErrInvalidFlowID)
	assert.True(t, IsValidationError(err))
	assert.False(t, IsNotFoundError(err))
}

func TestFlow_CreateNode_TracesNodeType(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	service, p := newTestService(t, WithTracer(provider.Tracer("test")))

	stored := testutil.CreateTestFlow()
	require.NoError(t, p.FlowRepository().Save(t.Context(), stored))

	node, err := service.CreateNode(t.Context(), stored.ID, &CreateNodeRequest{Type: models.NodeTypeMessage})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "services.Flow.CreateNode", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String(otelhelper.NodeTypeKey, string(models.NodeTypeMessage)))
	assert.Contains(t, spans[0].Attributes(), attribute.String(otelhelper.NodeIDKey, node.ID))
}

// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"fmt"

	"github.com/dukex/flowbuilder/pkg/models"
	"github.com/google/uuid"
)

// CreateTestFlow creates a draft Flow with default values that can be overridden.
func CreateTestFlow(overrides ...func(*models.Flow)) *models.Flow {
	flow := &models.Flow{
		ID:     uuid.New().String(),
		Name:   "Test Flow",
		Status: models.FlowStatusDraft,
		Owner:  "user-123",
		Nodes:  []*models.Node{},
		Edges:  []*models.Edge{},
	}

	for _, override := range overrides {
		override(flow)
	}

	return flow
}

// CreateTestNode creates a message node with default values that can be overridden.
func CreateTestNode(overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:       "textNode_" + uuid.New().String(),
		Type:     models.NodeTypeMessage,
		Position: models.Position{X: 100, Y: 200},
		Data:     models.MessageData{Text: "test message"},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithNodeID sets the node id.
func WithNodeID(id string) func(*models.Node) {
	return func(n *models.Node) {
		n.ID = id
	}
}

// WithText sets the message text.
func WithText(text string) func(*models.Node) {
	return func(n *models.Node) {
		n.Data = models.MessageData{Text: text}
	}
}

// WithChain adds one message node per text, connected in order: n1 -> n2 -> ...
// Node ids are node-1, node-2, ...
func WithChain(texts ...string) func(*models.Flow) {
	return func(f *models.Flow) {
		f.Nodes = f.Nodes[:0]
		f.Edges = f.Edges[:0]

		for i, text := range texts {
			f.Nodes = append(f.Nodes, CreateTestNode(WithNodeID(fmt.Sprintf("node-%d", i+1)), WithText(text)))

			if i > 0 {
				f.Edges = append(f.Edges, Edge(f.Nodes[i-1].ID, f.Nodes[i].ID))
			}
		}
	}
}

// WithNodes appends message nodes with the given ids and no edges.
func WithNodes(ids ...string) func(*models.Flow) {
	return func(f *models.Flow) {
		for _, id := range ids {
			f.Nodes = append(f.Nodes, CreateTestNode(WithNodeID(id)))
		}
	}
}

// WithEdge appends an edge between two existing node ids.
func WithEdge(source, target string) func(*models.Flow) {
	return func(f *models.Flow) {
		f.Edges = append(f.Edges, Edge(source, target))
	}
}

// Edge builds the edge the graph would admit for source -> target on default handles.
func Edge(source, target string) *models.Edge {
	connection := models.Connection{
		Source:       source,
		SourceHandle: models.DefaultSourceHandle,
		Target:       target,
		TargetHandle: models.DefaultTargetHandle,
	}

	return &models.Edge{
		ID:           models.MakeEdgeID(connection),
		Source:       source,
		SourceHandle: models.DefaultSourceHandle,
		Target:       target,
		TargetHandle: models.DefaultTargetHandle,
	}
}

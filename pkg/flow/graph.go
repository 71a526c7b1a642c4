// Package flow holds the flow graph model and the rules that keep a chatbot
// script well formed: the out-degree guard applied when an edge is created and
// the terminal-node check applied when a flow is saved.
//
// A Graph is not safe for concurrent use. Callers serialize access so each
// operation completes before the next begins.
package flow

import (
	"fmt"
	"slices"

	"github.com/dukex/flowbuilder/pkg/models"
)

// Graph is the canonical in-memory store of a flow's nodes and edges.
type Graph struct {
	nodes []*models.Node
	byID  map[string]*models.Node
	edges []*models.Edge
	newID IDGenerator
}

// Option configures a Graph.
type Option func(*Graph)

// WithIDGenerator replaces the node id generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(g *Graph) {
		g.newID = gen
	}
}

// NewGraph creates an empty graph.
func NewGraph(opts ...Option) *Graph {
	g := &Graph{
		byID:  make(map[string]*models.Node),
		newID: ULIDGenerator,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// FromFlow loads a persisted flow into a graph. The flow must be referentially
// sound; out-degree and terminal rules are not re-checked since a stored flow
// may legitimately be mid-edit.
func FromFlow(f *models.Flow, opts ...Option) (*Graph, error) {
	if err := CheckReferences(f.Nodes, f.Edges); err != nil {
		return nil, fmt.Errorf("flow %s: %w", f.ID, err)
	}

	g := NewGraph(opts...)

	for _, node := range f.Nodes {
		n := *node
		g.nodes = append(g.nodes, &n)
		g.byID[n.ID] = &n
	}

	for _, edge := range f.Edges {
		e := *edge
		g.edges = append(g.edges, &e)
	}

	return g, nil
}

// CreateNode allocates a node with a fresh id. A nil payload is replaced by
// the node type's initial payload.
func (g *Graph) CreateNode(nodeType models.NodeType, position models.Position, data models.NodeData) *models.Node {
	if data == nil {
		data = nodeType.NewData()
	}

	id := g.newID(nodeType)
	for g.byID[id] != nil {
		id = g.newID(nodeType)
	}

	node := &models.Node{
		ID:       id,
		Type:     nodeType,
		Position: position,
		Data:     data,
	}

	g.nodes = append(g.nodes, node)
	g.byID[id] = node

	copied := *node

	return &copied
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(nodeID string) (*models.Node, error) {
	node, ok := g.byID[nodeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	copied := *node

	return &copied, nil
}

// UpdateNodePayload replaces the payload of a node. Edges are not affected.
func (g *Graph) UpdateNodePayload(nodeID string, data models.NodeData) error {
	node, ok := g.byID[nodeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	if data == nil || data.NodeType() != node.Type {
		return fmt.Errorf("%w: node %s is %s", ErrPayloadTypeMismatch, nodeID, node.Type)
	}

	node.Data = data

	return nil
}

// RemoveNode deletes a node together with every edge that starts or ends at it.
func (g *Graph) RemoveNode(nodeID string) error {
	if _, ok := g.byID[nodeID]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	g.edges = slices.DeleteFunc(g.edges, func(e *models.Edge) bool {
		return e.Source == nodeID || e.Target == nodeID
	})
	g.nodes = slices.DeleteFunc(g.nodes, func(n *models.Node) bool {
		return n.ID == nodeID
	})
	delete(g.byID, nodeID)

	return nil
}

// RemoveEdge deletes a single edge.
func (g *Graph) RemoveEdge(edgeID string) error {
	idx := slices.IndexFunc(g.edges, func(e *models.Edge) bool {
		return e.ID == edgeID
	})
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, edgeID)
	}

	g.edges = slices.Delete(g.edges, idx, idx+1)

	return nil
}

// ListNodes returns a snapshot of the nodes in insertion order.
func (g *Graph) ListNodes() []*models.Node {
	nodes := make([]*models.Node, 0, len(g.nodes))

	for _, node := range g.nodes {
		copied := *node
		nodes = append(nodes, &copied)
	}

	return nodes
}

// ListEdges returns a snapshot of the edges in insertion order.
func (g *Graph) ListEdges() []*models.Edge {
	edges := make([]*models.Edge, 0, len(g.edges))

	for _, edge := range g.edges {
		copied := *edge
		edges = append(edges, &copied)
	}

	return edges
}

// OutDegree counts the edges whose source is the given node.
func (g *Graph) OutDegree(nodeID string) int {
	count := 0

	for _, edge := range g.edges {
		if edge.Source == nodeID {
			count++
		}
	}

	return count
}

// ApplyTo writes the graph's current nodes and edges into the flow.
func (g *Graph) ApplyTo(f *models.Flow) {
	f.Nodes = g.ListNodes()
	f.Edges = g.ListEdges()
}

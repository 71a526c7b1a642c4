package flow

import (
	"testing"

	"github.com/dukex/flowbuilder/pkg/models"
	"github.com/stretchr/testify/assert"
)

func nodesWithIDs(ids ...string) []*models.Node {
	nodes := make([]*models.Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, &models.Node{ID: id, Type: models.NodeTypeMessage, Data: models.MessageData{}})
	}

	return nodes
}

func edge(source, target string) *models.Edge {
	return &models.Edge{
		ID:     models.MakeEdgeID(models.Connection{Source: source, SourceHandle: "a", Target: target, TargetHandle: "b"}),
		Source: source, SourceHandle: "a",
		Target: target, TargetHandle: "b",
	}
}

func TestValidateFlow_Scenarios(t *testing.T) {
	tests := []struct {
		name  string
		nodes []*models.Node
		edges []*models.Edge
		want  bool
	}{
		{
			name:  "A: chain A->B->C has a single end",
			nodes: nodesWithIDs("A", "B", "C"),
			edges: []*models.Edge{edge("A", "B"), edge("B", "C")},
			want:  true,
		},
		{
			name:  "B: B and C both end the flow",
			nodes: nodesWithIDs("A", "B", "C"),
			edges: []*models.Edge{edge("A", "B")},
			want:  false,
		},
		{
			name:  "C: single node",
			nodes: nodesWithIDs("A"),
			want:  true,
		},
		{
			name:  "E: empty flow",
			nodes: nil,
			want:  true,
		},
		{
			name:  "two disconnected nodes",
			nodes: nodesWithIDs("A", "B"),
			want:  false,
		},
		{
			name:  "cycle with no terminal node",
			nodes: nodesWithIDs("A", "B"),
			edges: []*models.Edge{edge("A", "B"), edge("B", "A")},
			want:  true,
		},
		{
			name:  "self loop counts as outgoing",
			nodes: nodesWithIDs("A", "B"),
			edges: []*models.Edge{edge("A", "A")},
			want:  true,
		},
		{
			name:  "dangling edges do not rescue terminal nodes",
			nodes: nodesWithIDs("A", "B", "C"),
			edges: []*models.Edge{edge("A", "B"), edge("ghost", "C")},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateFlow(tt.nodes, tt.edges))
		})
	}
}

func TestValidateFlow_SingleNodeIgnoresEdges(t *testing.T) {
	nodes := nodesWithIDs("A")
	edges := []*models.Edge{edge("X", "Y"), edge("Y", "Z"), edge("A", "A")}

	assert.True(t, ValidateFlow(nodes, edges))
	assert.True(t, ValidateFlow(nil, edges))
}

func TestValidateFlow_TerminalCountProperty(t *testing.T) {
	ids := []string{"n1", "n2", "n3", "n4", "n5"}

	// every subset of chain edges n_i -> n_(i+1)
	for mask := range 1 << (len(ids) - 1) {
		var edges []*models.Edge

		for i := range len(ids) - 1 {
			if mask&(1<<i) != 0 {
				edges = append(edges, edge(ids[i], ids[i+1]))
			}
		}

		nodes := nodesWithIDs(ids...)
		terminals := TerminalNodes(nodes, edges)

		assert.Len(t, terminals, len(ids)-len(edges))
		assert.Equal(t, len(terminals) <= 1, ValidateFlow(nodes, edges), "mask %b", mask)
	}
}

func TestValidateFlow_Idempotent(t *testing.T) {
	nodes := nodesWithIDs("A", "B", "C")
	edges := []*models.Edge{edge("A", "B")}

	first := ValidateFlow(nodes, edges)
	for range 5 {
		assert.Equal(t, first, ValidateFlow(nodes, edges))
	}

	assert.Len(t, nodes, 3)
	assert.Len(t, edges, 1)
}

func TestValidateFlow_ThroughGraph(t *testing.T) {
	g, nodes := newTestGraph(t, 3)
	a, b, c := nodes[0], nodes[1], nodes[2]

	_, err := g.TryConnect(models.Connection{Source: a.ID, Target: b.ID})
	assert.NoError(t, err)
	assert.False(t, ValidateFlow(g.ListNodes(), g.ListEdges()))

	_, err = g.TryConnect(models.Connection{Source: b.ID, Target: c.ID})
	assert.NoError(t, err)
	assert.True(t, ValidateFlow(g.ListNodes(), g.ListEdges()))

	assert.NoError(t, g.RemoveNode(b.ID))
	assert.False(t, ValidateFlow(g.ListNodes(), g.ListEdges()))
}

func TestValidate_Result(t *testing.T) {
	invalid := Validate(nodesWithIDs("A", "B", "C"), []*models.Edge{edge("A", "B")})

	assert.False(t, invalid.Valid)
	assert.Equal(t, []string{"B", "C"}, invalid.TerminalNodeIDs)
	assert.Equal(t, InvalidFlowMessage, invalid.Message)

	valid := Validate(nodesWithIDs("A", "B"), []*models.Edge{edge("A", "B")})

	assert.True(t, valid.Valid)
	assert.Equal(t, []string{"B"}, valid.TerminalNodeIDs)
	assert.Empty(t, valid.Message)
}

func TestCheckReferences(t *testing.T) {
	assert.NoError(t, CheckReferences(nodesWithIDs("A", "B"), []*models.Edge{edge("A", "B")}))

	err := CheckReferences(nodesWithIDs("A", "A"), nil)
	assert.ErrorIs(t, err, ErrDuplicateNode)

	err = CheckReferences(nodesWithIDs("A", "B"), []*models.Edge{edge("A", "B"), edge("A", "B")})
	assert.ErrorIs(t, err, ErrDuplicateEdge)

	err = CheckReferences(nodesWithIDs("A"), []*models.Edge{edge("A", "ghost"), edge("phantom", "A")})
	assert.ErrorIs(t, err, ErrDanglingEdge)
	assert.Contains(t, err.Error(), "ghost")
	assert.Contains(t, err.Error(), "phantom")
}

func TestCheckReferences_NilEntries(t *testing.T) {
	nodes := append([]*models.Node{nil}, nodesWithIDs("A", "B")...)
	edges := []*models.Edge{edge("A", "B"), nil}

	err := CheckReferences(nodes, edges)

	assert.ErrorIs(t, err, ErrNilNode)
	assert.ErrorIs(t, err, ErrNilEdge)
	assert.Contains(t, err.Error(), "index 0")
	assert.Contains(t, err.Error(), "index 1")
}

func TestValidate_SkipsNilEntries(t *testing.T) {
	nodes := []*models.Node{nil, nodesWithIDs("A")[0], nil}

	assert.True(t, ValidateFlow(nodes, []*models.Edge{nil}))
	assert.Equal(t, []string{"A"}, TerminalNodes(nodes, []*models.Edge{nil}))

	nodes = append(nodesWithIDs("A", "B", "C"), nil)
	result := Validate(nodes, []*models.Edge{nil, edge("A", "B")})

	assert.False(t, result.Valid)
	assert.Equal(t, []string{"B", "C"}, result.TerminalNodeIDs)
}

package flow

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dukex/flowbuilder/pkg/models"
)

// InvalidFlowMessage is shown to the user when a save is refused.
const InvalidFlowMessage = "Cannot save Flow: More than one node has no outgoing edge."

// ValidationResult is the outcome of the save-time check.
type ValidationResult struct {
	Valid           bool     `json:"valid"`
	TerminalNodeIDs []string `json:"terminal_node_ids"`
	Message         string   `json:"message,omitempty"`
}

// ValidateFlow reports whether a flow converges to a single end state: with
// two or more nodes, at most one node may lack an outgoing edge. Empty and
// single-node flows are always valid.
func ValidateFlow(nodes []*models.Node, edges []*models.Edge) bool {
	if len(present(nodes)) <= 1 {
		return true
	}

	return len(TerminalNodes(nodes, edges)) <= 1
}

// TerminalNodes returns, in node order, the ids of nodes with zero outgoing
// edges. Edges naming unknown nodes never count. Nil entries are skipped.
func TerminalNodes(nodes []*models.Node, edges []*models.Edge) []string {
	hasOutgoing := make(map[string]struct{}, len(edges))
	for _, edge := range edges {
		if edge != nil {
			hasOutgoing[edge.Source] = struct{}{}
		}
	}

	terminals := make([]string, 0)

	for _, node := range nodes {
		if node == nil {
			continue
		}

		if _, ok := hasOutgoing[node.ID]; !ok {
			terminals = append(terminals, node.ID)
		}
	}

	return terminals
}

// Validate runs the save-time check and explains the outcome.
func Validate(nodes []*models.Node, edges []*models.Edge) *ValidationResult {
	result := &ValidationResult{
		Valid:           ValidateFlow(nodes, edges),
		TerminalNodeIDs: TerminalNodes(nodes, edges),
	}

	if !result.Valid {
		result.Message = InvalidFlowMessage
	}

	return result
}

// CheckReferences verifies node ids are unique, edge ids are unique and every
// edge endpoint names an existing node. Nil entries are reported too. All problems are reported together.
func CheckReferences(nodes []*models.Node, edges []*models.Edge) error {
	var errs []error

	seenNodes := make(map[string]struct{}, len(nodes))

	for i, node := range nodes {
		if node == nil {
			errs = append(errs, fmt.Errorf("%w: at index %d", ErrNilNode, i))

			continue
		}

		if _, dup := seenNodes[node.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateNode, node.ID))

			continue
		}

		seenNodes[node.ID] = struct{}{}
	}

	seenEdges := make(map[string]struct{}, len(edges))

	for i, edge := range edges {
		if edge == nil {
			errs = append(errs, fmt.Errorf("%w: at index %d", ErrNilEdge, i))

			continue
		}

		if _, dup := seenEdges[edge.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateEdge, edge.ID))
		}

		seenEdges[edge.ID] = struct{}{}

		if _, ok := seenNodes[edge.Source]; !ok {
			errs = append(errs, fmt.Errorf("%w: edge %s source %s", ErrDanglingEdge, edge.ID, edge.Source))
		}

		if _, ok := seenNodes[edge.Target]; !ok {
			errs = append(errs, fmt.Errorf("%w: edge %s target %s", ErrDanglingEdge, edge.ID, edge.Target))
		}
	}

	return errors.Join(errs...)
}

// present drops nil entries left by decoding a document with null list items.
func present[T any](items []*T) []*T {
	return slices.DeleteFunc(slices.Clone(items), func(item *T) bool {
		return item == nil
	})
}

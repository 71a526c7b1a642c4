package flow

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound indicates a node id is absent from the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeNotFound indicates an edge id is absent from the graph.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrPayloadTypeMismatch indicates a payload variant that does not belong to the node type.
	ErrPayloadTypeMismatch = errors.New("payload does not match node type")

	// ErrConnectionRejected is matched by every RejectedConnectionError.
	ErrConnectionRejected = errors.New("connection rejected")

	// ErrDuplicateNode indicates two nodes share an id.
	ErrDuplicateNode = errors.New("duplicate node id")

	// ErrDuplicateEdge indicates two edges share an id.
	ErrDuplicateEdge = errors.New("duplicate edge id")

	// ErrNilNode indicates an empty entry in a flow's node list.
	ErrNilNode = errors.New("nil node entry")

	// ErrNilEdge indicates an empty entry in a flow's edge list.
	ErrNilEdge = errors.New("nil edge entry")

	// ErrDanglingEdge indicates an edge endpoint that references no node.
	ErrDanglingEdge = errors.New("edge references unknown node")
)

// RejectReason explains why a candidate edge was not admitted.
type RejectReason string

const (
	RejectReasonSourceHasOutgoing RejectReason = "source_has_outgoing_edge"
	RejectReasonUnknownNode       RejectReason = "unknown_node"
	RejectReasonUnknownHandle     RejectReason = "unknown_handle"
)

// RejectedConnectionError is returned by TryConnect when a candidate edge is
// refused. It is an expected result, not a fault: the graph is left unchanged.
type RejectedConnectionError struct {
	Reason RejectReason
	Source string
	Target string
	Detail string
}

func (e *RejectedConnectionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("connection %s -> %s rejected (%s): %s", e.Source, e.Target, e.Reason, e.Detail)
	}

	return fmt.Sprintf("connection %s -> %s rejected (%s)", e.Source, e.Target, e.Reason)
}

func (e *RejectedConnectionError) Is(target error) bool {
	return target == ErrConnectionRejected
}

// IsConnectionRejected checks if an error is a rejected connection.
func IsConnectionRejected(err error) bool {
	return errors.Is(err, ErrConnectionRejected)
}

// IsNotFound checks if an error indicates a missing node or edge.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound) || errors.Is(err, ErrEdgeNotFound)
}

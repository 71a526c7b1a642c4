package flow

import (
	"github.com/dukex/flowbuilder/pkg/models"
)

// TryConnect admits a candidate edge or rejects it with a
// *RejectedConnectionError. A node may own at most one outgoing edge in total,
// whichever handle the candidate names. Self-loops and cycles are allowed.
func (g *Graph) TryConnect(c models.Connection) (*models.Edge, error) {
	source, ok := g.byID[c.Source]
	if !ok {
		return nil, reject(c, RejectReasonUnknownNode, "source "+c.Source+" does not exist")
	}

	target, ok := g.byID[c.Target]
	if !ok {
		return nil, reject(c, RejectReasonUnknownNode, "target "+c.Target+" does not exist")
	}

	if c.SourceHandle == "" {
		c.SourceHandle = source.Type.DefaultHandle(models.HandleDirectionSource)
	}

	if c.TargetHandle == "" {
		c.TargetHandle = target.Type.DefaultHandle(models.HandleDirectionTarget)
	}

	if !source.Type.HasHandle(models.HandleDirectionSource, c.SourceHandle) {
		return nil, reject(c, RejectReasonUnknownHandle, "source handle "+c.SourceHandle)
	}

	if !target.Type.HasHandle(models.HandleDirectionTarget, c.TargetHandle) {
		return nil, reject(c, RejectReasonUnknownHandle, "target handle "+c.TargetHandle)
	}

	if g.OutDegree(c.Source) > 0 {
		return nil, reject(c, RejectReasonSourceHasOutgoing, "")
	}

	edge := &models.Edge{
		ID:           models.MakeEdgeID(c),
		Source:       c.Source,
		SourceHandle: c.SourceHandle,
		Target:       c.Target,
		TargetHandle: c.TargetHandle,
	}

	g.edges = append(g.edges, edge)

	copied := *edge

	return &copied, nil
}

func reject(c models.Connection, reason RejectReason, detail string) error {
	return &RejectedConnectionError{
		Reason: reason,
		Source: c.Source,
		Target: c.Target,
		Detail: detail,
	}
}

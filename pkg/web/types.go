// Package web provides HTTP request and response types for the flow editor API.
package web

import (
	"encoding/json"
	"fmt"

	"github.com/dukex/flowbuilder/pkg/models"
	"github.com/dukex/flowbuilder/pkg/services"
)

// CreateFlowRequest represents the request body for creating a new flow.
type CreateFlowRequest struct {
	Name  string `json:"name"  validate:"required,min=1,max=255"`
	Owner string `json:"owner" validate:"max=255"`
}

// RenameFlowRequest represents the request body for renaming a flow.
type RenameFlowRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

// CreateNodeRequest represents the request body for dropping a node onto the canvas.
type CreateNodeRequest struct {
	Type     string          `json:"type"     validate:"required"`
	Position models.Position `json:"position"`
	Data     map[string]any  `json:"data"`
}

// UpdateNodeRequest represents the request body for editing the selected node's payload.
type UpdateNodeRequest struct {
	Data map[string]any `json:"data" validate:"required"`
}

// ConnectRequest represents the request body for drawing an edge. Empty
// handles fall back to the node type's default handles.
type ConnectRequest struct {
	Source       string `json:"source"        validate:"required"`
	SourceHandle string `json:"source_handle"`
	Target       string `json:"target"        validate:"required"`
	TargetHandle string `json:"target_handle"`
}

// Connection converts the request into a graph connection.
func (r ConnectRequest) Connection() models.Connection {
	return models.Connection{
		Source:       r.Source,
		SourceHandle: r.SourceHandle,
		Target:       r.Target,
		TargetHandle: r.TargetHandle,
	}
}

// SaveRejectedResponse is returned when a save attempt fails validation.
type SaveRejectedResponse struct {
	Message         string   `json:"message"`
	TerminalNodeIDs []string `json:"terminal_node_ids"`
	DismissAfterMs  int64    `json:"dismiss_after_ms"`
}

// NewSaveRejectedResponse builds the rejection body from a save result.
func NewSaveRejectedResponse(result *services.SaveResult) SaveRejectedResponse {
	return SaveRejectedResponse{
		Message:         result.Validation.Message,
		TerminalNodeIDs: result.Validation.TerminalNodeIDs,
		DismissAfterMs:  result.DismissAfter.Milliseconds(),
	}
}

// NodeTypeResponse describes one palette entry.
type NodeTypeResponse struct {
	Type        models.NodeType `json:"type"`
	Label       string          `json:"label"`
	Description string          `json:"description"`
	Schema      map[string]any  `json:"schema"`
}

// decodePayload checks a raw payload against the node type schema and turns it
// into the typed payload. A nil payload decodes to nil.
func decodePayload(nodeType models.NodeType, payload map[string]any) (models.NodeData, error) {
	if payload == nil {
		return nil, nil
	}

	err := nodeType.ValidatePayload(payload)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	return models.DecodeNodeData(nodeType, raw)
}

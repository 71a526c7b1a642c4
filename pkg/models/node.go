// Package models defines the core domain models for chatbot conversation flows.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownNodeType is returned when a node type is not part of the supported variant set.
var ErrUnknownNodeType = errors.New("unknown node type")

// NodeType identifies the kind of a node. The set of variants is closed: new
// kinds are added here together with their NodeData implementation.
type NodeType string

const (
	NodeTypeMessage NodeType = "textNode" // Sends a text message
)

var nodeTypes = []NodeType{NodeTypeMessage}

// NodeTypes returns every supported node type in palette order.
func NodeTypes() []NodeType {
	return append([]NodeType(nil), nodeTypes...)
}

// ParseNodeType converts a palette key into a NodeType.
func ParseNodeType(s string) (NodeType, error) {
	for _, t := range nodeTypes {
		if string(t) == s {
			return t, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownNodeType, s)
}

// Label returns the display name used by the node palette.
func (t NodeType) Label() string {
	switch t {
	case NodeTypeMessage:
		return "Message"
	default:
		return string(t)
	}
}

// Description returns the palette tooltip for the node type.
func (t NodeType) Description() string {
	switch t {
	case NodeTypeMessage:
		return "Send a text message"
	default:
		return ""
	}
}

// NewData returns the initial payload of a freshly dropped node.
func (t NodeType) NewData() NodeData {
	switch t {
	case NodeTypeMessage:
		return MessageData{}
	default:
		return nil
	}
}

// NodeData is the type-specific payload of a node. Implementations are plain
// values so copying a Node copies its payload.
type NodeData interface {
	NodeType() NodeType
	isNodeData()
}

// MessageData is the payload of a message node.
type MessageData struct {
	Text string `json:"text"`
}

func (MessageData) NodeType() NodeType { return NodeTypeMessage }

func (MessageData) isNodeData() {}

// Position is the canvas location of a node. It carries no meaning for validation.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node represents one conversational step in a flow.
type Node struct {
	ID       string   `json:"id"       validate:"required"`
	Type     NodeType `json:"type"     validate:"required"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// Text returns the message text for message nodes and an empty string otherwise.
func (n *Node) Text() string {
	if data, ok := n.Data.(MessageData); ok {
		return data.Text
	}

	return ""
}

// UnmarshalJSON decodes a node, resolving its payload from the type tag.
func (n *Node) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID       string          `json:"id"`
		Type     NodeType        `json:"type"`
		Position Position        `json:"position"`
		Data     json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	data, err := DecodeNodeData(raw.Type, raw.Data)
	if err != nil {
		return fmt.Errorf("node %s: %w", raw.ID, err)
	}

	n.ID = raw.ID
	n.Type = raw.Type
	n.Position = raw.Position
	n.Data = data

	return nil
}

// DecodeNodeData decodes a raw JSON payload into the NodeData variant of the given type.
// An empty or null payload yields the type's initial payload.
func DecodeNodeData(t NodeType, raw []byte) (NodeData, error) {
	switch t {
	case NodeTypeMessage:
		var data MessageData

		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &data); err != nil {
				return nil, fmt.Errorf("invalid message data: %w", err)
			}
		}

		return data, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, t)
	}
}

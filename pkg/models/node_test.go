package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_UnmarshalJSON_MessageNode(t *testing.T) {
	body := `{"id":"textNode_1","type":"textNode","position":{"x":10,"y":20},"data":{"text":"hello"}}`

	var node Node

	err := json.Unmarshal([]byte(body), &node)
	require.NoError(t, err)

	assert.Equal(t, "textNode_1", node.ID)
	assert.Equal(t, NodeTypeMessage, node.Type)
	assert.Equal(t, Position{X: 10, Y: 20}, node.Position)
	assert.Equal(t, MessageData{Text: "hello"}, node.Data)
	assert.Equal(t, "hello", node.Text())
}

func TestNode_UnmarshalJSON_MissingDataUsesEmptyMessage(t *testing.T) {
	var node Node

	err := json.Unmarshal([]byte(`{"id":"n1","type":"textNode","position":{"x":0,"y":0}}`), &node)
	require.NoError(t, err)

	assert.Equal(t, MessageData{}, node.Data)
	assert.Empty(t, node.Text())
}

func TestNode_UnmarshalJSON_UnknownType(t *testing.T) {
	var node Node

	err := json.Unmarshal([]byte(`{"id":"n1","type":"imageNode","data":{}}`), &node)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownNodeType)
}

func TestNode_MarshalJSON_KeepsPayloadShape(t *testing.T) {
	node := &Node{
		ID:       "n1",
		Type:     NodeTypeMessage,
		Position: Position{X: 1.5, Y: 2},
		Data:     MessageData{Text: "hi"},
	}

	body, err := json.Marshal(node)
	require.NoError(t, err)

	assert.JSONEq(t, `{"id":"n1","type":"textNode","position":{"x":1.5,"y":2},"data":{"text":"hi"}}`, string(body))
}

func TestParseNodeType(t *testing.T) {
	nodeType, err := ParseNodeType("textNode")
	require.NoError(t, err)
	assert.Equal(t, NodeTypeMessage, nodeType)

	_, err = ParseNodeType("conditionNode")
	assert.ErrorIs(t, err, ErrUnknownNodeType)
}

func TestNodeType_Palette(t *testing.T) {
	assert.Equal(t, []NodeType{NodeTypeMessage}, NodeTypes())
	assert.Equal(t, "Message", NodeTypeMessage.Label())
	assert.Equal(t, "Send a text message", NodeTypeMessage.Description())
	assert.Equal(t, MessageData{}, NodeTypeMessage.NewData())
}

func TestNodeType_Handles(t *testing.T) {
	assert.Equal(t, []string{"a"}, NodeTypeMessage.Handles(HandleDirectionSource))
	assert.Equal(t, []string{"b"}, NodeTypeMessage.Handles(HandleDirectionTarget))
	assert.Equal(t, "a", NodeTypeMessage.DefaultHandle(HandleDirectionSource))
	assert.True(t, NodeTypeMessage.HasHandle(HandleDirectionTarget, "b"))
	assert.False(t, NodeTypeMessage.HasHandle(HandleDirectionTarget, "a"))
	assert.Empty(t, NodeType("unknown").DefaultHandle(HandleDirectionSource))
}

func TestMakeEdgeID(t *testing.T) {
	id := MakeEdgeID(Connection{Source: "n1", SourceHandle: "a", Target: "n2", TargetHandle: "b"})

	assert.Equal(t, "reactflow__edge-n1a-n2b", id)
}

// Package events defines the notifications emitted over a flow's lifecycle.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Kafka topic.
const Topic = "flowbuilder.flows"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	FlowSavedEvent        EventType = "flow.saved"
	FlowSaveRejectedEvent EventType = "flow.save_rejected"
	FlowDeletedEvent      EventType = "flow.deleted"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	FlowID    string         `json:"flow_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// FlowSaved is published after a flow passed validation and was stored.
type FlowSaved struct {
	BaseEvent

	FlowName  string `json:"flow_name"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (e FlowSaved) GetType() EventType {
	return FlowSavedEvent
}

// FlowSaveRejected is published when a save attempt fails validation. Nothing is stored.
type FlowSaveRejected struct {
	BaseEvent

	Message         string   `json:"message"`
	TerminalNodeIDs []string `json:"terminal_node_ids"`
}

func (e FlowSaveRejected) GetType() EventType {
	return FlowSaveRejectedEvent
}

// FlowDeleted is published after a flow was removed from persistence.
type FlowDeleted struct {
	BaseEvent
}

func (e FlowDeleted) GetType() EventType {
	return FlowDeletedEvent
}

func NewBaseEvent(eventType EventType, flowID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		FlowID:    flowID,
		Metadata:  make(map[string]any),
	}
}

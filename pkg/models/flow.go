package models

import "time"

// FlowStatus represents the save state of a flow.
type FlowStatus string

const (
	FlowStatusDraft FlowStatus = "draft" // Edited since the last accepted save
	FlowStatusSaved FlowStatus = "saved" // Passed validation and was handed to persistence
)

// Flow is the complete directed graph of one chatbot script.
type Flow struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"               validate:"required"`
	Status    FlowStatus `json:"status"             validate:"required,oneof=draft saved"`
	Owner     string     `json:"owner"`
	Nodes     []*Node    `json:"nodes"              validate:"dive,required"`
	Edges     []*Edge    `json:"edges"              validate:"dive,required"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	SavedAt   *time.Time `json:"saved_at,omitempty"`
}

package models

// Edge is a directed connection from a source node handle to a target node handle.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"        validate:"required"`
	SourceHandle string `json:"source_handle"`
	Target       string `json:"target"        validate:"required"`
	TargetHandle string `json:"target_handle"`
}

// Connection is a candidate edge requested by the editor. Empty handles
// resolve to the default handle of the node type.
type Connection struct {
	Source       string `json:"source"        validate:"required"`
	SourceHandle string `json:"source_handle"`
	Target       string `json:"target"        validate:"required"`
	TargetHandle string `json:"target_handle"`
}

// MakeEdgeID creates the opaque identifier of the edge admitted for a connection.
func MakeEdgeID(c Connection) string {
	return "reactflow__edge-" + c.Source + c.SourceHandle + "-" + c.Target + c.TargetHandle
}

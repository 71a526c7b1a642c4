package models

// Handle names exposed by the message node.
const (
	DefaultSourceHandle = "a"
	DefaultTargetHandle = "b"
)

// HandleDirection tells whether a handle emits or receives edges.
type HandleDirection string

const (
	HandleDirectionSource HandleDirection = "source"
	HandleDirectionTarget HandleDirection = "target"
)

// Handles returns the handle names a node type exposes in the given direction.
func (t NodeType) Handles(direction HandleDirection) []string {
	switch t {
	case NodeTypeMessage:
		if direction == HandleDirectionSource {
			return []string{DefaultSourceHandle}
		}

		return []string{DefaultTargetHandle}
	default:
		return nil
	}
}

// DefaultHandle returns the first handle of the node type in the given direction.
func (t NodeType) DefaultHandle(direction HandleDirection) string {
	handles := t.Handles(direction)
	if len(handles) == 0 {
		return ""
	}

	return handles[0]
}

// HasHandle reports whether the node type exposes the named handle.
func (t NodeType) HasHandle(direction HandleDirection, name string) bool {
	for _, handle := range t.Handles(direction) {
		if handle == name {
			return true
		}
	}

	return false
}

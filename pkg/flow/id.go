package flow

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flowbuilder/pkg/models"
)

// IDGenerator mints node identifiers. Graph retries until it receives an id
// not yet present, so a generator only needs to produce fresh values eventually.
type IDGenerator func(nodeType models.NodeType) string

// ULIDGenerator produces "{type}_{ulid}" identifiers. ULIDs are time ordered
// and carry random entropy, so ids never collide within a session.
func ULIDGenerator(nodeType models.NodeType) string {
	return string(nodeType) + "_" + watermill.NewULID()
}

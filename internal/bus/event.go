package bus

import "time"

// Event kind prefixes. Document store changes are published as
// "doc.<collection>:changed" so a listener on one collection never matches
// its sub-collections.
const (
	DocPrefix     = "doc."
	StatePrefix   = "state."
	SessionPrefix = "session."
)

// Event is a change notification published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// DocKind returns the event kind used for changes in the given collection.
func DocKind(collection string) string {
	return DocPrefix + collection + ":changed"
}

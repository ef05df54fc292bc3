package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypePageServed is emitted after a page of a distinct query is served.
	EventTypePageServed = "docq.distinct.page_served"

	// EventTypeDocumentIngested is emitted after a document is stored.
	EventTypeDocumentIngested = "docq.document.ingested"
)

// EventHeader is shared by every event payload.
type EventHeader struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
}

// NewEventHeader returns a header with a fresh event ID.
func NewEventHeader(eventType string, now time.Time) EventHeader {
	return EventHeader{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     now.UTC(),
	}
}

// PageServedEvent is a transport-neutral event payload for one served page
// of a distinct query.
type PageServedEvent struct {
	EventHeader

	Collection  string `json:"collection"`
	Path        string `json:"path,omitempty"`
	QueryType   string `json:"query_type"`
	Environment string `json:"environment"`

	Scanned    int  `json:"scanned"`
	Returned   int  `json:"returned"`
	Suppressed int  `json:"suppressed"`
	Done       bool `json:"done"`

	DurationMs int64 `json:"duration_ms"`
}

// DocumentIngestedEvent is a transport-neutral event payload for a stored
// document.
type DocumentIngestedEvent struct {
	EventHeader

	Collection string `json:"collection"`
	Seq        int64  `json:"seq"`
	Bytes      int    `json:"bytes"`
}

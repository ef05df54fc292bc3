package eventstream

import "errors"

var (
	// ErrNilPageEvent indicates a nil page event payload was provided to a publisher.
	ErrNilPageEvent = errors.New("nil page event")

	// ErrNilIngestEvent indicates a nil ingest event payload was provided to a publisher.
	ErrNilIngestEvent = errors.New("nil ingest event")
)

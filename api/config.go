// Package api provides an HTTP API server for storing documents and running
// distinct queries over them.
package api

import (
	"github.com/papercomputeco/docq/pkg/eventstream"
	"github.com/papercomputeco/docq/pkg/ingest"
	"github.com/papercomputeco/docq/pkg/metrics"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// MaxItemCount is the default page size of document and distinct queries.
	MaxItemCount int

	// Publisher receives page and ingest events. Optional.
	Publisher eventstream.Publisher

	// Metrics enables the /metrics endpoint when set.
	Metrics *metrics.Metrics

	// IngestPool stores uploaded documents asynchronously when set. Uploads
	// are written synchronously otherwise.
	IngestPool *ingest.Pool

	// DisableMCP turns off the /mcp endpoint.
	DisableMCP bool
}

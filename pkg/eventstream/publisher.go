package eventstream

import "context"

// Publisher publishes query and ingest events to an event stream backend.
type Publisher interface {
	PublishPage(ctx context.Context, event *PageServedEvent) error
	PublishIngest(ctx context.Context, event *DocumentIngestedEvent) error
	Close() error
}

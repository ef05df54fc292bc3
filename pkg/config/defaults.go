package config

const (
	// EventStreamNone disables event publishing.
	EventStreamNone = "none"

	// EventStreamKafka publishes events to Kafka.
	EventStreamKafka = "kafka"
)

const (
	defaultAPIListen       = ":8081"
	defaultAPIMaxItemCount = 100

	defaultClientAPITarget = "http://localhost:8081"

	defaultQueryDistinct     = "unordered"
	defaultQueryMaxItemCount = 100

	defaultEventStreamTopic = "docq.events"

	defaultIngestWorkers   = 3
	defaultIngestQueueSize = 256
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen:       defaultAPIListen,
			MaxItemCount: defaultAPIMaxItemCount,
			MCP:          true,
			Metrics:      true,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Query: QueryConfig{
			Distinct:     defaultQueryDistinct,
			MaxItemCount: defaultQueryMaxItemCount,
		},
		EventStream: EventStreamConfig{
			Provider: EventStreamNone,
			Topic:    defaultEventStreamTopic,
		},
		Ingest: IngestConfig{
			Workers:   defaultIngestWorkers,
			QueueSize: defaultIngestQueueSize,
		},
	}
}

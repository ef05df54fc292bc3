package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent docq configuration stored as config.toml
// in the .docq/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	Query       QueryConfig       `toml:"query"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Ingest      IngestConfig      `toml:"ingest"`
}

// StorageConfig selects the document store. PostgresDSN takes precedence
// over SQLitePath; with neither set documents are kept in memory.
type StorageConfig struct {
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen       string `toml:"listen,omitempty"`
	MaxItemCount uint   `toml:"max_item_count,omitempty"`
	MCP          bool   `toml:"mcp"`
	Metrics      bool   `toml:"metrics"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// API server (e.g. docq query, docq seed). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// QueryConfig holds defaults for docq query.
type QueryConfig struct {
	Distinct     string `toml:"distinct,omitempty"`
	MaxItemCount uint   `toml:"max_item_count,omitempty"`
}

// EventStreamConfig selects where page and ingest events are published.
// Provider is "none" or "kafka"; Brokers is a comma separated list.
type EventStreamConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// IngestConfig holds settings for the asynchronous ingest worker pool.
type IngestConfig struct {
	Async     bool `toml:"async"`
	Workers   uint `toml:"workers,omitempty"`
	QueueSize uint `toml:"queue_size,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func uintKey(key string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func boolKey(key string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			*field(c) = b
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"api.max_item_count": uintKey("api.max_item_count", func(c *Config) *uint { return &c.API.MaxItemCount }),
	"api.mcp":            boolKey("api.mcp", func(c *Config) *bool { return &c.API.MCP }),
	"api.metrics":        boolKey("api.metrics", func(c *Config) *bool { return &c.API.Metrics }),
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
	"query.distinct": {
		get: func(c *Config) string { return c.Query.Distinct },
		set: func(c *Config, v string) error {
			switch v {
			case "ordered", "unordered":
				c.Query.Distinct = v
				return nil
			default:
				return fmt.Errorf("invalid value for query.distinct: %q (expected ordered or unordered)", v)
			}
		},
	},
	"query.max_item_count": uintKey("query.max_item_count", func(c *Config) *uint { return &c.Query.MaxItemCount }),
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error {
			switch v {
			case EventStreamNone, EventStreamKafka:
				c.EventStream.Provider = v
				return nil
			default:
				return fmt.Errorf("invalid value for eventstream.provider: %q (expected none or kafka)", v)
			}
		},
	},
	"eventstream.brokers": {
		get: func(c *Config) string { return c.EventStream.Brokers },
		set: func(c *Config, v string) error { c.EventStream.Brokers = v; return nil },
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
	"ingest.async":      boolKey("ingest.async", func(c *Config) *bool { return &c.Ingest.Async }),
	"ingest.workers":    uintKey("ingest.workers", func(c *Config) *uint { return &c.Ingest.Workers }),
	"ingest.queue_size": uintKey("ingest.queue_size", func(c *Config) *uint { return &c.Ingest.QueueSize }),
}

// Package servecmder provides the serve command that runs the docq API server.
package servecmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/docq/api"
	"github.com/papercomputeco/docq/pkg/config"
	"github.com/papercomputeco/docq/pkg/eventstream"
	"github.com/papercomputeco/docq/pkg/eventstream/kafka"
	"github.com/papercomputeco/docq/pkg/eventstream/nop"
	"github.com/papercomputeco/docq/pkg/ingest"
	"github.com/papercomputeco/docq/pkg/logger"
	"github.com/papercomputeco/docq/pkg/metrics"
	"github.com/papercomputeco/docq/pkg/storage"
	"github.com/papercomputeco/docq/pkg/storage/inmemory"
	"github.com/papercomputeco/docq/pkg/storage/postgres"
	"github.com/papercomputeco/docq/pkg/storage/sqlite"
)

type ServeCommander struct {
	v *viper.Viper

	listen        string
	sqlitePath    string
	postgresDSN   string
	maxItemCount  uint
	mcp           bool
	metrics       bool
	eventStream   string
	kafkaBrokers  string
	kafkaTopic    string
	ingestAsync   bool
	ingestWorkers uint
	queueSize     uint

	debug   bool
	logJSON bool
	logger  *zap.Logger
}

const serveLongDesc string = `Run the docq API server.

The server stores documents in memory, SQLite or PostgreSQL and answers
distinct queries. Settings come from flags, DOCQ_* environment variables,
config.toml in the .docq/ directory, then defaults.

Examples:
  docq serve
  docq serve --sqlite ./docq.db
  docq serve --postgres postgres://localhost/docq --ingest-async
  docq serve --eventstream kafka --kafka-brokers localhost:9092`

const serveShortDesc string = "Run the docq API server"

var serveFlags = []string{
	config.FlagListen,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagAPIMaxItemCount,
	config.FlagMCP,
	config.FlagMetrics,
	config.FlagEventStream,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
	config.FlagIngestAsync,
	config.FlagIngestWorkers,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)
			cmder.v = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddUintFlag(cmd, config.Flags, config.FlagAPIMaxItemCount, &cmder.maxItemCount)
	config.AddBoolFlag(cmd, config.Flags, config.FlagMCP, &cmder.mcp)
	config.AddBoolFlag(cmd, config.Flags, config.FlagMetrics, &cmder.metrics)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStream, &cmder.eventStream)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.kafkaTopic)
	config.AddBoolFlag(cmd, config.Flags, config.FlagIngestAsync, &cmder.ingestAsync)
	config.AddUintFlag(cmd, config.Flags, config.FlagIngestWorkers, &cmder.ingestWorkers)
	cmd.Flags().BoolVar(&cmder.logJSON, "log-json", false, "Write logs as JSON lines")

	return cmd
}

// NewLogger builds the server logger, writing JSON lines when jsonOutput is
// set and colored console lines otherwise.
func NewLogger(debug, jsonOutput bool, w io.Writer) *zap.Logger {
	return logger.New(
		logger.WithDebug(debug),
		logger.WithJSON(jsonOutput),
		logger.WithWriter(w),
	)
}

// loadSettings copies the resolved viper values onto the commander.
func (c *ServeCommander) loadSettings() {
	if c.v == nil {
		return
	}

	c.listen = c.v.GetString("api.listen")
	c.sqlitePath = c.v.GetString("storage.sqlite_path")
	c.postgresDSN = c.v.GetString("storage.postgres_dsn")
	c.maxItemCount = c.v.GetUint("api.max_item_count")
	c.mcp = c.v.GetBool("api.mcp")
	c.metrics = c.v.GetBool("api.metrics")
	c.eventStream = c.v.GetString("eventstream.provider")
	c.kafkaBrokers = c.v.GetString("eventstream.brokers")
	c.kafkaTopic = c.v.GetString("eventstream.topic")
	c.ingestAsync = c.v.GetBool("ingest.async")
	c.ingestWorkers = c.v.GetUint("ingest.workers")
	c.queueSize = c.v.GetUint("ingest.queue_size")
}

func (c *ServeCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.loadSettings()

	c.logger = NewLogger(c.debug, c.logJSON, os.Stdout)
	defer func() { _ = c.logger.Sync() }()

	driver, err := NewStorageDriver(ctx, c.postgresDSN, c.sqlitePath, c.logger)
	if err != nil {
		return err
	}
	defer func() { _ = driver.Close() }()

	publisher, err := NewPublisher(c.eventStream, c.kafkaBrokers, c.kafkaTopic, c.logger)
	if err != nil {
		return err
	}
	defer func() { _ = publisher.Close() }()

	var m *metrics.Metrics
	if c.metrics {
		m = metrics.New()
	}

	apiConfig := api.Config{
		ListenAddr:   c.listen,
		MaxItemCount: int(c.maxItemCount),
		Publisher:    publisher,
		Metrics:      m,
		DisableMCP:   !c.mcp,
	}

	if c.ingestAsync {
		pool, err := ingest.NewPool(&ingest.Config{
			Driver:     driver,
			Publisher:  publisher,
			Metrics:    m,
			NumWorkers: c.ingestWorkers,
			QueueSize:  c.queueSize,
			Logger:     c.logger,
		})
		if err != nil {
			return fmt.Errorf("creating ingest pool: %w", err)
		}
		// Runs after the server has stopped so queued documents are written.
		defer pool.Close()
		apiConfig.IngestPool = pool
	}

	server, err := api.NewServer(apiConfig, driver, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}

// NewStorageDriver opens PostgreSQL when a DSN is set, SQLite when a path is
// set, and an in-memory store otherwise.
func NewStorageDriver(ctx context.Context, postgresDSN, sqlitePath string, log *zap.Logger) (storage.Driver, error) {
	switch {
	case postgresDSN != "":
		driver, err := postgres.NewDriver(ctx, postgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL driver: %w", err)
		}
		log.Info("using PostgreSQL storage")
		return driver, nil

	case sqlitePath != "":
		driver, err := sqlite.NewSQLiteDriver(ctx, sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite driver: %w", err)
		}
		log.Info("using SQLite storage", zap.String("path", sqlitePath))
		return driver, nil

	default:
		log.Info("using in-memory storage")
		return inmemory.NewDriver(), nil
	}
}

// NewPublisher returns the event publisher for provider.
func NewPublisher(provider, brokers, topic string, log *zap.Logger) (eventstream.Publisher, error) {
	switch provider {
	case "", config.EventStreamNone:
		return nop.NewPublisher(), nil

	case config.EventStreamKafka:
		var list []string
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				list = append(list, b)
			}
		}
		publisher, err := kafka.NewPublisher(kafka.Config{Brokers: list, Topic: topic}, log)
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		return publisher, nil

	default:
		return nil, fmt.Errorf("unknown event stream provider: %q", provider)
	}
}

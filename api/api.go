package api

import (
	"fmt"
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/docq/api/mcp"
	"github.com/papercomputeco/docq/pkg/eventstream"
	"github.com/papercomputeco/docq/pkg/eventstream/nop"
	"github.com/papercomputeco/docq/pkg/query"
	"github.com/papercomputeco/docq/pkg/storage"
)

// Server is the API server for storing and querying documents
type Server struct {
	config    Config
	driver    storage.Driver
	query     *query.Service
	publisher eventstream.Publisher
	logger    *zap.Logger
	app       *fiber.App
}

// NewServer creates a new API server.
// The driver is injected to allow sharing with other components
// (e.g., the ingest pool).
func NewServer(config Config, driver storage.Driver, logger *zap.Logger) (*Server, error) {
	if config.Publisher == nil {
		config.Publisher = nop.NewPublisher()
	}

	svc, err := query.NewService(query.Config{
		Driver:       driver,
		Publisher:    config.Publisher,
		Metrics:      config.Metrics,
		MaxItemCount: config.MaxItemCount,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Query:  svc,
		Noop:   config.DisableMCP,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		UnescapePath:          true,
	})

	s := &Server{
		config:    config,
		driver:    driver,
		query:     svc,
		publisher: config.Publisher,
		logger:    logger,
		app:       app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/collections", s.handleListCollections)
	app.Get("/v1/collections/:name", s.handleGetCollection)
	app.Get("/v1/collections/:name/documents", s.handleGetDocuments)
	app.Get("/v1/collections/:name/documents/:seq", s.handleGetDocument)
	app.Post("/v1/collections/:name/documents", s.handlePutDocuments)
	app.Post("/v1/collections/:name/distinct", s.handleDistinct)

	if config.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(config.Metrics.Handler()))
	}
	if !config.DisableMCP {
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Handler exposes the server as a net/http handler for embedding and tests.
func (s *Server) Handler() http.Handler {
	return adaptor.FiberApp(s.app)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

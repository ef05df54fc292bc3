// Package query runs server-side queries over a storage.Driver. It is shared
// by the HTTP API and the MCP tools.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/docq/pkg/distinct"
	"github.com/papercomputeco/docq/pkg/element"
	"github.com/papercomputeco/docq/pkg/eventstream"
	"github.com/papercomputeco/docq/pkg/eventstream/nop"
	"github.com/papercomputeco/docq/pkg/metrics"
	"github.com/papercomputeco/docq/pkg/pipeline"
	"github.com/papercomputeco/docq/pkg/source"
	"github.com/papercomputeco/docq/pkg/storage"
)

// DefaultMaxItemCount is the page size used when a request does not set one.
const DefaultMaxItemCount = 100

// Endpoint labels for malformed token metrics.
const (
	EndpointDocuments = "documents"
	EndpointDistinct  = "distinct"
)

// Config configures a Service.
type Config struct {
	// Driver is the document store queried.
	Driver storage.Driver

	// Publisher receives a PageServedEvent per distinct page. Defaults to a
	// nop publisher.
	Publisher eventstream.Publisher

	// Metrics records served pages. Optional.
	Metrics *metrics.Metrics

	// MaxItemCount is the default page size (defaults to DefaultMaxItemCount).
	MaxItemCount int

	// Logger is the provided zap logger. Defaults to a nop logger.
	Logger *zap.Logger
}

// Service answers document and distinct queries.
type Service struct {
	driver       storage.Driver
	publisher    eventstream.Publisher
	metrics      *metrics.Metrics
	maxItemCount int
	logger       *zap.Logger
	now          func() time.Time
}

// DocumentsRequest asks for one raw page of projected documents.
type DocumentsRequest struct {
	Collection   string
	Path         string
	MaxItemCount int
	Continuation *string
}

// DistinctRequest asks for one page of a distinct query.
type DistinctRequest struct {
	Collection   string
	Path         string
	QueryType    distinct.QueryType
	MaxItemCount int
	Continuation *string
}

// DistinctResult is one page of a distinct query. Continuation is nil once
// the query is exhausted.
type DistinctResult struct {
	Documents    []element.Value
	Continuation *string
	Scanned      int
	Suppressed   int
	Done         bool
}

// NewService creates a Service from c.
func NewService(c Config) (*Service, error) {
	if c.Driver == nil {
		return nil, errors.New("query service: driver is required")
	}
	if c.Publisher == nil {
		c.Publisher = nop.NewPublisher()
	}
	if c.MaxItemCount <= 0 {
		c.MaxItemCount = DefaultMaxItemCount
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	return &Service{
		driver:       c.Driver,
		publisher:    c.Publisher,
		metrics:      c.Metrics,
		maxItemCount: c.MaxItemCount,
		logger:       c.Logger,
		now:          time.Now,
	}, nil
}

// Documents returns one raw page of the collection projected along the
// request path.
func (s *Service) Documents(ctx context.Context, req DocumentsRequest) (*pipeline.Page, error) {
	src, err := source.New(s.driver, source.Query{Collection: req.Collection, Path: req.Path}, req.Continuation)
	if err != nil {
		s.countMalformed(EndpointDocuments, err)
		return nil, err
	}

	page, err := src.Drain(ctx, s.pageSize(req.MaxItemCount))
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", req.Collection, err)
	}
	return page, nil
}

// Distinct runs one page of a distinct query in the compute environment and
// composes the continuation token for the next request.
func (s *Service) Distinct(ctx context.Context, req DistinctRequest) (*DistinctResult, error) {
	start := s.now()

	factory := source.NewFactory(s.driver, source.Query{Collection: req.Collection, Path: req.Path})
	d, err := pipeline.TryCreateDistinct(ctx, pipeline.EnvironmentCompute, req.Continuation, factory, req.QueryType)
	if err != nil {
		s.countMalformed(EndpointDistinct, err)
		return nil, err
	}

	page, err := d.Drain(ctx, s.pageSize(req.MaxItemCount))
	if err != nil {
		return nil, err
	}

	result := &DistinctResult{
		Documents: page.Documents,
		Done:      d.IsDone(),
	}

	token, ok, err := d.ContinuationToken()
	if err != nil {
		return nil, fmt.Errorf("composing continuation token: %w", err)
	}
	if ok {
		encoded := token.String()
		result.Continuation = &encoded
	}

	stats := d.Stats()
	result.Scanned = stats.Scanned
	result.Suppressed = stats.Suppressed()

	elapsed := s.now().Sub(start)
	if s.metrics != nil {
		s.metrics.ObservePage(
			req.Collection,
			req.QueryType.String(),
			pipeline.EnvironmentCompute.String(),
			stats.Scanned,
			stats.Returned,
			elapsed,
		)
	}

	event := &eventstream.PageServedEvent{
		EventHeader: eventstream.NewEventHeader(eventstream.EventTypePageServed, s.now()),
		Collection:  req.Collection,
		Path:        req.Path,
		QueryType:   req.QueryType.String(),
		Environment: pipeline.EnvironmentCompute.String(),
		Scanned:     stats.Scanned,
		Returned:    stats.Returned,
		Suppressed:  stats.Suppressed(),
		Done:        result.Done,
		DurationMs:  elapsed.Milliseconds(),
	}
	if err := s.publisher.PublishPage(ctx, event); err != nil {
		s.logger.Warn("failed to publish page event",
			zap.String("collection", req.Collection),
			zap.Error(err),
		)
	}

	s.logger.Debug("served distinct page",
		zap.String("collection", req.Collection),
		zap.String("path", req.Path),
		zap.String("query_type", req.QueryType.String()),
		zap.Int("scanned", stats.Scanned),
		zap.Int("returned", stats.Returned),
		zap.Bool("done", result.Done),
	)

	return result, nil
}

// Collections lists every collection with its document count.
func (s *Service) Collections(ctx context.Context) ([]storage.CollectionInfo, error) {
	return s.driver.Collections(ctx)
}

// Document returns the document stored under seq. A missing document is a
// storage.NotFoundError.
func (s *Service) Document(ctx context.Context, collection string, seq int64) (*storage.Record, error) {
	if collection == "" {
		return nil, errors.New("collection is required")
	}
	return s.driver.Get(ctx, collection, seq)
}

// Count returns the number of documents in a collection. Unknown collections
// count zero.
func (s *Service) Count(ctx context.Context, collection string) (int, error) {
	if collection == "" {
		return 0, errors.New("collection is required")
	}
	return s.driver.Count(ctx, collection)
}

func (s *Service) pageSize(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.maxItemCount
}

func (s *Service) countMalformed(endpoint string, err error) {
	if s.metrics != nil && errors.Is(err, distinct.ErrMalformedToken) {
		s.metrics.MalformedTokens.WithLabelValues(endpoint).Inc()
	}
}

// Package ingest provides an asynchronous worker pool that stores documents
// using the provided storage.Driver and announces them on an event stream.
//
// The pool decouples storage writes from the API's HTTP hot path so that
// bulk uploads return as soon as documents are queued.
package ingest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/docq/pkg/element"
	"github.com/papercomputeco/docq/pkg/eventstream"
	"github.com/papercomputeco/docq/pkg/eventstream/nop"
	"github.com/papercomputeco/docq/pkg/metrics"
	"github.com/papercomputeco/docq/pkg/storage"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a batch of documents bound for one collection.
type Job struct {
	Collection string
	Documents  []element.Value
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the storage backend documents are written to.
	Driver storage.Driver

	// Publisher receives a DocumentIngestedEvent per stored document.
	// Defaults to a nop publisher.
	Publisher eventstream.Publisher

	// Metrics records job outcomes and queue depth. Optional.
	Metrics *metrics.Metrics

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool processes ingest jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Driver == nil {
		return nil, fmt.Errorf("ingest pool: driver is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Publisher == nil {
		c.Publisher = nop.NewPublisher()
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	p := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			zap.String("collection", job.Collection),
			zap.Int("documents", len(job.Documents)),
		)
		p.observeQueue()
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			zap.String("collection", job.Collection),
			zap.Int("documents", len(job.Documents)),
		)
		if p.config.Metrics != nil {
			p.config.Metrics.IngestJobs.WithLabelValues("dropped").Inc()
		}
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the API server has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.observeQueue()
		p.processJob(job)
	}

	p.logger.Debug("ingest worker stopped", zap.Uint("worker_id", id))
}

// processJob stores every document of a job in order. A failed write stops
// the job; documents already written stay written.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	stored, err := Store(ctx, p.config.Driver, p.config.Publisher, p.logger, job)
	if err != nil {
		p.logger.Error("async document storage failed",
			zap.String("collection", job.Collection),
			zap.Int("stored", len(stored)),
			zap.Error(err),
		)
		p.countJob("failed")
		return
	}

	p.logger.Info("documents stored",
		zap.String("collection", job.Collection),
		zap.Int("count", len(stored)),
	)
	p.countJob("ok")
}

func (p *Pool) countJob(result string) {
	if p.config.Metrics != nil {
		p.config.Metrics.IngestJobs.WithLabelValues(result).Inc()
	}
}

func (p *Pool) observeQueue() {
	if p.config.Metrics != nil {
		p.config.Metrics.IngestQueueDepth.Set(float64(len(p.queue)))
	}
}

// Store writes the documents of job synchronously and returns their sequence
// numbers. Publish failures are logged and do not fail the write.
func Store(ctx context.Context, driver storage.Driver, publisher eventstream.Publisher, logger *zap.Logger, job Job) ([]int64, error) {
	seqs := make([]int64, 0, len(job.Documents))

	for _, doc := range job.Documents {
		seq, err := driver.Put(ctx, job.Collection, doc)
		if err != nil {
			return seqs, fmt.Errorf("storing document in %s: %w", job.Collection, err)
		}
		seqs = append(seqs, seq)

		body, err := element.Marshal(doc)
		if err != nil {
			return seqs, fmt.Errorf("encoding document %d: %w", seq, err)
		}

		logger.Debug("stored document",
			zap.String("collection", job.Collection),
			zap.Int64("seq", seq),
			zap.Int("bytes", len(body)),
		)

		event := &eventstream.DocumentIngestedEvent{
			EventHeader: eventstream.NewEventHeader(eventstream.EventTypeDocumentIngested, time.Now()),
			Collection:  job.Collection,
			Seq:         seq,
			Bytes:       len(body),
		}
		if err := publisher.PublishIngest(ctx, event); err != nil {
			logger.Warn("failed to publish ingest event",
				zap.String("collection", job.Collection),
				zap.Int64("seq", seq),
				zap.Error(err),
			)
		}
	}

	return seqs, nil
}

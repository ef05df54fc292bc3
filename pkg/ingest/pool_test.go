package ingest

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/papercomputeco/docq/pkg/element"
	"github.com/papercomputeco/docq/pkg/eventstream"
	"github.com/papercomputeco/docq/pkg/metrics"
	"github.com/papercomputeco/docq/pkg/storage/inmemory"
)

type recordingPublisher struct {
	mu      sync.Mutex
	ingests []*eventstream.DocumentIngestedEvent
	err     error
}

func (p *recordingPublisher) PublishPage(context.Context, *eventstream.PageServedEvent) error {
	return nil
}

func (p *recordingPublisher) PublishIngest(_ context.Context, event *eventstream.DocumentIngestedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ingests = append(p.ingests, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func docs(raws ...string) []element.Value {
	out := make([]element.Value, len(raws))
	for i, raw := range raws {
		out[i] = element.MustParse(raw)
	}
	return out
}

var _ = Describe("Ingest Pool", func() {
	var (
		pool      *Pool
		driver    *inmemory.Driver
		publisher *recordingPublisher
		m         *metrics.Metrics
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		publisher = &recordingPublisher{}
		m = metrics.New()

		var err error
		pool, err = NewPool(&Config{
			Driver:     driver,
			Publisher:  publisher,
			Metrics:    m,
			NumWorkers: 1,
			Logger:     zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires a driver", func() {
		_, err := NewPool(&Config{})
		Expect(err).To(HaveOccurred())
		pool.Close()
	})

	It("stores queued documents before Close returns", func() {
		Expect(pool.Enqueue(Job{Collection: "people", Documents: docs(`{"name":"ada"}`, `{"name":"alan"}`)})).To(BeTrue())
		Expect(pool.Enqueue(Job{Collection: "people", Documents: docs(`{"name":"grace"}`)})).To(BeTrue())
		pool.Close()

		count, err := driver.Count(ctx, "people")
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(3))

		records, err := driver.Scan(ctx, "people", 0, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(element.Path(records[2].Document, "name")).To(Equal(element.Value(element.String("grace"))))

		Expect(publisher.ingests).To(HaveLen(3))
		Expect(publisher.ingests[0].EventType).To(Equal(eventstream.EventTypeDocumentIngested))
		Expect(publisher.ingests[0].Bytes).To(Equal(len(`{"name":"ada"}`)))
		Expect(testutil.ToFloat64(m.IngestJobs.WithLabelValues("ok"))).To(Equal(2.0))
	})

	It("counts failed jobs", func() {
		Expect(pool.Enqueue(Job{Collection: "people", Documents: []element.Value{nil}})).To(BeTrue())
		pool.Close()

		Expect(testutil.ToFloat64(m.IngestJobs.WithLabelValues("failed"))).To(Equal(1.0))
	})

	It("drops jobs when the queue is full", func() {
		pool.Close()

		full := &Pool{
			config: &Config{Metrics: m},
			queue:  make(chan Job),
			logger: zap.NewNop(),
		}
		Expect(full.Enqueue(Job{Collection: "people"})).To(BeFalse())
		Expect(testutil.ToFloat64(m.IngestJobs.WithLabelValues("dropped"))).To(Equal(1.0))
	})

	Describe("Store", func() {
		AfterEach(func() {
			pool.Close()
		})

		It("returns sequence numbers in order", func() {
			seqs, err := Store(ctx, driver, publisher, zap.NewNop(), Job{Collection: "nums", Documents: docs(`1`, `2`)})
			Expect(err).NotTo(HaveOccurred())
			Expect(seqs).To(HaveLen(2))
			Expect(seqs[1]).To(BeNumerically(">", seqs[0]))
		})

		It("keeps writing when publishing fails", func() {
			publisher.err = errors.New("broker down")

			seqs, err := Store(ctx, driver, publisher, zap.NewNop(), Job{Collection: "nums", Documents: docs(`1`, `2`)})
			Expect(err).NotTo(HaveOccurred())
			Expect(seqs).To(HaveLen(2))
		})
	})
})

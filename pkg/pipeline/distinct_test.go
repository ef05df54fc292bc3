package pipeline_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docq/pkg/distinct"
	"github.com/papercomputeco/docq/pkg/element"
	"github.com/papercomputeco/docq/pkg/pipeline"
)

// scriptedPage is one canned upstream response.
type scriptedPage struct {
	docs  []element.Value
	token *string
	err   error
}

// scriptedSource replays canned pages in order.
type scriptedSource struct {
	pages  []scriptedPage
	drains int
}

func (s *scriptedSource) Drain(_ context.Context, _ int) (*pipeline.Page, error) {
	p := s.pages[s.drains]
	s.drains++
	if p.err != nil {
		return nil, p.err
	}
	return &pipeline.Page{Documents: p.docs, ContinuationToken: p.token}, nil
}

func ptr(s string) *string { return &s }

func values(raw ...string) []element.Value {
	out := make([]element.Value, 0, len(raw))
	for _, r := range raw {
		out = append(out, element.MustParse(r))
	}
	return out
}

// factoryFor returns a factory serving pages by source token ("" for a fresh
// start) and records the tokens it was asked for.
func factoryFor(pagesByToken map[string][]scriptedPage, requested *[]*string) pipeline.SourceFactory {
	return func(_ context.Context, sourceToken *string) (pipeline.Source, error) {
		*requested = append(*requested, sourceToken)
		key := ""
		if sourceToken != nil {
			key = *sourceToken
		}
		pages, ok := pagesByToken[key]
		if !ok {
			return nil, errors.New("unknown source token " + key)
		}
		return &scriptedSource{pages: pages}, nil
	}
}

var _ = Describe("Distinct", func() {
	var (
		ctx       context.Context
		requested []*string
	)

	BeforeEach(func() {
		ctx = context.Background()
		requested = nil
	})

	Context("unordered in the client environment", func() {
		It("drops duplicates and never emits a token", func() {
			factory := factoryFor(map[string][]scriptedPage{
				"": {{docs: values(`1`, `1`, `2`, `"a"`), token: nil}},
			}, &requested)

			d, err := pipeline.TryCreateDistinct(ctx, pipeline.EnvironmentClient, nil, factory, distinct.QueryTypeUnordered)
			Expect(err).NotTo(HaveOccurred())
			Expect(requested).To(HaveLen(1))
			Expect(requested[0]).To(BeNil())

			page, err := d.Drain(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Documents).To(Equal(values(`1`, `2`, `"a"`)))
			Expect(page.ContinuationToken).To(BeNil())
			Expect(page.DisallowContinuationTokenMessage).To(Equal(pipeline.DisallowUnorderedMessage))
			Expect(d.IsDone()).To(BeTrue())
		})

		It("withholds the token even while more pages remain", func() {
			factory := factoryFor(map[string][]scriptedPage{
				"": {
					{docs: values(`"x"`, `"y"`), token: ptr("U1")},
					{docs: values(`"y"`, `"z"`), token: nil},
				},
			}, &requested)

			d, err := pipeline.TryCreateDistinct(ctx, pipeline.EnvironmentClient, nil, factory, distinct.QueryTypeUnordered)
			Expect(err).NotTo(HaveOccurred())

			page, err := d.Drain(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.ContinuationToken).To(BeNil())
			Expect(d.IsDone()).To(BeFalse())

			page, err = d.Drain(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Documents).To(Equal(values(`"z"`)))
			Expect(d.Stats()).To(Equal(pipeline.Stats{Pages: 2, Scanned: 4, Returned: 3}))
			Expect(d.Stats().Suppressed()).To(Equal(1))
		})
	})

	Context("ordered in the client environment", func() {
		It("resumes from the emitted token without resurfacing duplicates", func() {
			factory := factoryFor(map[string][]scriptedPage{
				"":   {{docs: values(`1`, `2`), token: ptr("U1")}},
				"U1": {{docs: values(`2`, `3`), token: ptr("U2")}},
			}, &requested)

			first, err := pipeline.TryCreateDistinct(ctx, pipeline.EnvironmentClient, nil, factory, distinct.QueryTypeOrdered)
			Expect(err).NotTo(HaveOccurred())

			page, err := first.Drain(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Documents).To(Equal(values(`1`, `2`)))
			Expect(page.ContinuationToken).NotTo(BeNil())
			Expect(page.DisallowContinuationTokenMessage).To(BeEmpty())

			token, err := pipeline.ParseContinuationToken(*page.ContinuationToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(token.SourceToken).To(Equal("U1"))
			Expect(token.DistinctMapToken).NotTo(BeEmpty())

			second, err := pipeline.TryCreateDistinct(ctx, pipeline.EnvironmentClient, page.ContinuationToken, factory, distinct.QueryTypeOrdered)
			Expect(err).NotTo(HaveOccurred())
			Expect(*requested[1]).To(Equal("U1"))

			page, err = second.Drain(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Documents).To(Equal(values(`3`)))

			token, err = pipeline.ParseContinuationToken(*page.ContinuationToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(token.SourceToken).To(Equal("U2"))
		})

		It("stops emitting a token once the source is exhausted", func() {
			factory := factoryFor(map[string][]scriptedPage{
				"": {{docs: values(`1`), token: nil}},
			}, &requested)

			d, err := pipeline.TryCreateDistinct(ctx, pipeline.EnvironmentClient, nil, factory, distinct.QueryTypeOrdered)
			Expect(err).NotTo(HaveOccurred())

			page, err := d.Drain(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.ContinuationToken).To(BeNil())
			Expect(d.IsDone()).To(BeTrue())
		})
	})

	Context("in the compute environment", func() {
		It("builds the token only on request", func() {
			factory := factoryFor(map[string][]scriptedPage{
				"": {
					{docs: values(`"a"`, `"b"`), token: ptr("U1")},
					{docs: values(`"b"`, `"c"`), token: ptr("U2")},
					{docs: values(`"c"`), token: ptr("U3")},
				},
				"U3": {{docs: values(`"a"`, `"d"`), token: nil}},
			}, &requested)

			d, err := pipeline.TryCreateDistinct(ctx, pipeline.EnvironmentCompute, nil, factory, distinct.QueryTypeUnordered)
			Expect(err).NotTo(HaveOccurred())

			for range 3 {
				page, err := d.Drain(ctx, 2)
				Expect(err).NotTo(HaveOccurred())
				Expect(page.ContinuationToken).To(BeNil())
				Expect(page.DisallowContinuationTokenMessage).To(Equal(pipeline.DisallowComputeMessage))
			}

			token, ok, err := d.ContinuationToken()
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(token.SourceToken).To(Equal("U3"))

			resumed, err := pipeline.TryCreateDistinct(ctx, pipeline.EnvironmentCompute, ptr(token.String()), factory, distinct.QueryTypeUnordered)
			Expect(err).NotTo(HaveOccurred())

			page, err := resumed.Drain(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Documents).To(Equal(values(`"d"`)))

			_, ok, err = resumed.ContinuationToken()
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("offers a token before the first drain", func() {
			factory := factoryFor(map[string][]scriptedPage{
				"": {{docs: values(`1`), token: nil}},
			}, &requested)

			d, err := pipeline.TryCreateDistinct(ctx, pipeline.EnvironmentCompute, nil, factory, distinct.QueryTypeOrdered)
			Expect(err).NotTo(HaveOccurred())

			token, ok, err := d.ContinuationToken()
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(token.SourceToken).To(BeEmpty())
		})
	})

	It("does not offer the on-demand token in the client environment", func() {
		factory := factoryFor(map[string][]scriptedPage{
			"": {{docs: values(`1`), token: ptr("U1")}},
		}, &requested)

		d, err := pipeline.TryCreateDistinct(ctx, pipeline.EnvironmentClient, nil, factory, distinct.QueryTypeOrdered)
		Expect(err).NotTo(HaveOccurred())

		_, ok, err := d.ContinuationToken()
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	Describe("failures", func() {
		It("surfaces cancellation before touching the source or the map", func() {
			source := &scriptedSource{pages: []scriptedPage{{docs: values(`1`, `2`), token: ptr("U1")}}}
			factory := func(context.Context, *string) (pipeline.Source, error) { return source, nil }

			d, err := pipeline.TryCreateDistinct(ctx, pipeline.EnvironmentCompute, nil, factory, distinct.QueryTypeUnordered)
			Expect(err).NotTo(HaveOccurred())

			before, _, err := d.ContinuationToken()
			Expect(err).NotTo(HaveOccurred())

			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			page, err := d.Drain(cancelled, 10)
			Expect(page).To(BeNil())
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(source.drains).To(Equal(0))
			Expect(d.SeenCount()).To(Equal(0))

			after, _, err := d.ContinuationToken()
			Expect(err).NotTo(HaveOccurred())
			Expect(after).To(Equal(before))
		})

		It("passes upstream errors through unchanged", func() {
			upstream := errors.New("request rate is large")
			factory := factoryFor(map[string][]scriptedPage{
				"": {{err: upstream}},
			}, &requested)

			d, err := pipeline.TryCreateDistinct(ctx, pipeline.EnvironmentClient, nil, factory, distinct.QueryTypeOrdered)
			Expect(err).NotTo(HaveOccurred())

			_, err = d.Drain(ctx, 10)
			Expect(err).To(BeIdenticalTo(upstream))
		})

		It("panics when drained after the source is exhausted", func() {
			factory := factoryFor(map[string][]scriptedPage{
				"": {{docs: values(`1`), token: nil}},
			}, &requested)

			d, err := pipeline.TryCreateDistinct(ctx, pipeline.EnvironmentClient, nil, factory, distinct.QueryTypeUnordered)
			Expect(err).NotTo(HaveOccurred())

			_, err = d.Drain(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(func() { _, _ = d.Drain(ctx, 10) }).To(Panic())
		})

		It("rejects a malformed outer token without calling the factory", func() {
			factory := factoryFor(map[string][]scriptedPage{}, &requested)

			_, err := pipeline.TryCreateDistinct(ctx, pipeline.EnvironmentClient, ptr(`{"SourceToken":"U1"}`), factory, distinct.QueryTypeOrdered)
			Expect(errors.Is(err, distinct.ErrMalformedToken)).To(BeTrue())
			Expect(requested).To(BeEmpty())
		})

		It("rejects a malformed map token without calling the factory", func() {
			factory := factoryFor(map[string][]scriptedPage{}, &requested)

			token := pipeline.ContinuationToken{SourceToken: "U1", DistinctMapToken: "%%%"}
			_, err := pipeline.TryCreateDistinct(ctx, pipeline.EnvironmentClient, ptr(token.String()), factory, distinct.QueryTypeOrdered)
			Expect(errors.Is(err, distinct.ErrMalformedToken)).To(BeTrue())
			Expect(requested).To(BeEmpty())
		})

		It("rejects query types without distinct tracking", func() {
			factory := factoryFor(map[string][]scriptedPage{}, &requested)

			_, err := pipeline.TryCreateDistinct(ctx, pipeline.EnvironmentClient, nil, factory, distinct.QueryTypeNone)
			Expect(errors.Is(err, distinct.ErrInvalidQueryType)).To(BeTrue())
		})

		It("returns factory failures as is", func() {
			factory := factoryFor(map[string][]scriptedPage{}, &requested)

			_, err := pipeline.TryCreateDistinct(ctx, pipeline.EnvironmentClient, nil, factory, distinct.QueryTypeOrdered)
			Expect(err).To(MatchError(ContainSubstring("unknown source token")))
		})
	})
})

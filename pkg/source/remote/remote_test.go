package remote_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docq/pkg/element"
	"github.com/papercomputeco/docq/pkg/source/remote"
)

var _ = Describe("Remote source", func() {
	var (
		ctx      context.Context
		srv      *httptest.Server
		lastURL  *url.URL
		response string
		status   int
	)

	BeforeEach(func() {
		ctx = context.Background()
		status = http.StatusOK
		response = `{"documents":["a",{"b":1}],"continuation":"7"}`

		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastURL = r.URL
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(response))
		}))
	})

	AfterEach(func() {
		srv.Close()
	})

	It("requires a base URL and collection", func() {
		_, err := remote.NewFactory(remote.Config{Collection: "c"})(ctx, nil)
		Expect(err).To(HaveOccurred())

		_, err = remote.NewFactory(remote.Config{BaseURL: srv.URL})(ctx, nil)
		Expect(err).To(HaveOccurred())
	})

	It("sends the query and decodes the page", func() {
		token := "3"
		src, err := remote.NewFactory(remote.Config{BaseURL: srv.URL, Collection: "my things", Path: "x.y"})(ctx, &token)
		Expect(err).NotTo(HaveOccurred())

		page, err := src.Drain(ctx, 25)
		Expect(err).NotTo(HaveOccurred())

		Expect(lastURL.Path).To(Equal("/v1/collections/my things/documents"))
		Expect(lastURL.Query().Get("path")).To(Equal("x.y"))
		Expect(lastURL.Query().Get("max_item_count")).To(Equal("25"))
		Expect(lastURL.Query().Get("continuation")).To(Equal("3"))

		Expect(page.Documents).To(Equal([]element.Value{element.String("a"), element.MustParse(`{"b":1}`)}))
		Expect(*page.ContinuationToken).To(Equal("7"))
	})

	It("carries the page token into the next request", func() {
		src, err := remote.NewFactory(remote.Config{BaseURL: srv.URL, Collection: "c"})(ctx, nil)
		Expect(err).NotTo(HaveOccurred())

		_, err = src.Drain(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(lastURL.Query().Has("continuation")).To(BeFalse())
		Expect(lastURL.Query().Has("max_item_count")).To(BeFalse())

		response = `{"documents":[],"continuation":null}`
		page, err := src.Drain(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(lastURL.Query().Get("continuation")).To(Equal("7"))
		Expect(page.ContinuationToken).To(BeNil())
	})

	It("returns HTTPError with the server message", func() {
		status = http.StatusBadRequest
		response = `{"error":"malformed continuation token"}`

		src, err := remote.NewFactory(remote.Config{BaseURL: srv.URL, Collection: "c"})(ctx, nil)
		Expect(err).NotTo(HaveOccurred())

		_, err = src.Drain(ctx, 1)
		var httpErr *remote.HTTPError
		Expect(errors.As(err, &httpErr)).To(BeTrue())
		Expect(httpErr.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(httpErr.Message).To(Equal("malformed continuation token"))
	})

	It("falls back to the raw body for non-JSON errors", func() {
		status = http.StatusBadGateway
		response = "upstream down"

		src, err := remote.NewFactory(remote.Config{BaseURL: srv.URL, Collection: "c"})(ctx, nil)
		Expect(err).NotTo(HaveOccurred())

		_, err = src.Drain(ctx, 1)
		Expect(err).To(MatchError(ContainSubstring("upstream down")))
	})
})

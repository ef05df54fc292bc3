// Package client is the Go SDK for a docq API server.
//
// QueryDistinct deduplicates on the client: raw pages are fetched from the
// server and a client-environment distinct pipeline drops values it has
// already returned. DistinctCompute delegates deduplication to the server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/docq/pkg/distinct"
	"github.com/papercomputeco/docq/pkg/element"
	"github.com/papercomputeco/docq/pkg/pipeline"
	"github.com/papercomputeco/docq/pkg/source/remote"
	"github.com/papercomputeco/docq/pkg/wire"
)

// Client talks to a docq API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// QueryOptions describes a client-side distinct query.
type QueryOptions struct {
	// Collection is the collection to query.
	Collection string

	// Path is the dotted property path to project.
	Path string

	// Distinct selects ordered or unordered deduplication.
	Distinct distinct.QueryType

	// MaxItemCount is the number of documents fetched per page.
	MaxItemCount int

	// ContinuationToken resumes an ordered query from a previous page.
	ContinuationToken *string
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must include scheme and host", baseURL)
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// PutDocuments uploads documents to a collection.
func (c *Client) PutDocuments(ctx context.Context, collection string, docs []element.Value) (*wire.PutDocumentsResponse, error) {
	var out wire.PutDocumentsResponse
	body := wire.PutDocumentsRequest{Documents: wire.Raws(docs)}
	if err := c.post(ctx, c.collectionURL(collection, "documents"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Collections lists the server's collections.
func (c *Client) Collections(ctx context.Context) ([]wire.Collection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/collections", nil)
	if err != nil {
		return nil, fmt.Errorf("creating collections request: %w", err)
	}

	var out wire.CollectionsResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Collections, nil
}

// Collection returns one collection with its document count.
func (c *Client) Collection(ctx context.Context, collection string) (*wire.Collection, error) {
	endpoint := fmt.Sprintf("%s/v1/collections/%s", c.baseURL, url.PathEscape(collection))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating collection request: %w", err)
	}

	var out wire.Collection
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDocument fetches one stored document by sequence number.
func (c *Client) GetDocument(ctx context.Context, collection string, seq int64) (*wire.Document, error) {
	endpoint := c.collectionURL(collection, "documents/"+strconv.FormatInt(seq, 10))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating document request: %w", err)
	}

	var out wire.Document
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DistinctCompute runs one page of a distinct query on the server.
func (c *Client) DistinctCompute(ctx context.Context, collection string, req wire.DistinctRequest) (*wire.DistinctResponse, error) {
	var out wire.DistinctResponse
	if err := c.post(ctx, c.collectionURL(collection, "distinct"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryDistinct starts a client-side distinct query. A malformed
// continuation token fails here, before any request is sent.
func (c *Client) QueryDistinct(ctx context.Context, opts QueryOptions) (*Iterator, error) {
	factory := remote.NewFactory(remote.Config{
		BaseURL:    c.baseURL,
		Collection: opts.Collection,
		Path:       opts.Path,
		HTTPClient: c.httpClient,
	})

	d, err := pipeline.TryCreateDistinct(ctx, pipeline.EnvironmentClient, opts.ContinuationToken, factory, opts.Distinct)
	if err != nil {
		return nil, err
	}

	return &Iterator{
		distinct:     d,
		maxItemCount: opts.MaxItemCount,
		collection:   opts.Collection,
		logger:       c.logger,
	}, nil
}

func (c *Client) collectionURL(collection, endpoint string) string {
	return fmt.Sprintf("%s/v1/collections/%s/%s", c.baseURL, url.PathEscape(collection), endpoint)
}

func (c *Client) post(ctx context.Context, endpoint string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return remote.DecodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

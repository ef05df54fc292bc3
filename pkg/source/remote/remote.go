// Package remote provides a pipeline.Source that reads raw pages from a
// docq API server.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/papercomputeco/docq/pkg/pipeline"
	"github.com/papercomputeco/docq/pkg/wire"
)

// Config holds configuration for a remote source.
type Config struct {
	// BaseURL is the API server URL (e.g., "http://localhost:8081").
	BaseURL string

	// Collection is the collection to read.
	Collection string

	// Path is the dotted property path the server projects.
	Path string

	// HTTPClient is used for requests. Defaults to a client with a 60s timeout.
	HTTPClient *http.Client
}

// Source implements pipeline.Source over the documents endpoint.
type Source struct {
	config Config
	token  *string
}

// HTTPError is returned for non-2xx responses. The message is the server's
// error body when it sent one.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("docq api: status %d: %s", e.StatusCode, e.Message)
}

// NewFactory returns a pipeline.SourceFactory for c.
func NewFactory(c Config) pipeline.SourceFactory {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}

	return func(_ context.Context, token *string) (pipeline.Source, error) {
		if c.BaseURL == "" {
			return nil, fmt.Errorf("remote source: base URL is required")
		}
		if c.Collection == "" {
			return nil, fmt.Errorf("remote source: collection is required")
		}
		return &Source{config: c, token: token}, nil
	}
}

// Drain fetches the next page from the server.
func (s *Source) Drain(ctx context.Context, maxElements int) (*pipeline.Page, error) {
	params := url.Values{}
	if s.config.Path != "" {
		params.Set(wire.ParamPath, s.config.Path)
	}
	if maxElements > 0 {
		params.Set(wire.ParamMaxItemCount, strconv.Itoa(maxElements))
	}
	if s.token != nil {
		params.Set(wire.ParamContinuation, *s.token)
	}

	endpoint := fmt.Sprintf("%s/v1/collections/%s/documents", s.config.BaseURL, url.PathEscape(s.config.Collection))
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating documents request: %w", err)
	}

	resp, err := s.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending documents request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, DecodeError(resp)
	}

	var body wire.DocumentsPage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding documents response: %w", err)
	}

	s.token = body.Continuation
	return &pipeline.Page{
		Documents:         wire.Values(body.Documents),
		ContinuationToken: body.Continuation,
	}, nil
}

// DecodeError turns a failed response into an *HTTPError.
func DecodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	var body wire.ErrorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return &HTTPError{StatusCode: resp.StatusCode, Message: body.Error}
	}
	return &HTTPError{StatusCode: resp.StatusCode, Message: string(raw)}
}

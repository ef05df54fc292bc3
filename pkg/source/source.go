// Package source serves paged query results out of a storage.Driver.
//
// A source walks a collection in sequence order and projects every document
// along a property path, emulating SELECT VALUE c.<path>. Its continuation
// token is the decimal sequence number of the last document scanned.
package source

import (
	"context"
	"errors"
	"strconv"

	"github.com/papercomputeco/docq/pkg/distinct"
	"github.com/papercomputeco/docq/pkg/element"
	"github.com/papercomputeco/docq/pkg/pipeline"
	"github.com/papercomputeco/docq/pkg/storage"
)

// DefaultPageSize is used when neither the query nor the caller sets a size.
const DefaultPageSize = 100

// Query describes what a source reads.
type Query struct {
	// Collection is the collection to scan.
	Collection string

	// Path is the dotted property path to project. Empty selects the whole
	// document.
	Path string

	// PageSize caps the documents scanned per page when the caller passes a
	// non-positive maxElements.
	PageSize int
}

// Source is a pipeline.Source over a storage collection.
type Source struct {
	driver   storage.Driver
	query    Query
	afterSeq int64
}

// New returns a Source resuming after the position encoded in token, or from
// the beginning when token is nil.
func New(driver storage.Driver, query Query, token *string) (*Source, error) {
	if query.Collection == "" {
		return nil, errors.New("source: collection is required")
	}

	afterSeq, err := ParseToken(token)
	if err != nil {
		return nil, err
	}

	return &Source{
		driver:   driver,
		query:    query,
		afterSeq: afterSeq,
	}, nil
}

// NewFactory returns a pipeline.SourceFactory building Sources for query.
func NewFactory(driver storage.Driver, query Query) pipeline.SourceFactory {
	return func(_ context.Context, token *string) (pipeline.Source, error) {
		return New(driver, query, token)
	}
}

// Drain scans up to maxElements documents and returns their projections.
// Documents where the path does not resolve are skipped. The page carries no
// token once the collection is exhausted.
func (s *Source) Drain(ctx context.Context, maxElements int) (*pipeline.Page, error) {
	limit := maxElements
	if limit <= 0 {
		limit = s.query.PageSize
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}

	records, err := s.driver.Scan(ctx, s.query.Collection, s.afterSeq, limit)
	if err != nil {
		return nil, err
	}

	page := &pipeline.Page{Documents: make([]element.Value, 0, len(records))}
	for _, record := range records {
		v := element.Path(record.Document, s.query.Path)
		if element.IsUndefined(v) {
			continue
		}
		page.Documents = append(page.Documents, v)
	}

	if len(records) > 0 {
		s.afterSeq = records[len(records)-1].Seq
	}

	if len(records) == limit {
		token := FormatToken(s.afterSeq)
		page.ContinuationToken = &token
	}

	return page, nil
}

// FormatToken encodes a scan position.
func FormatToken(afterSeq int64) string {
	return strconv.FormatInt(afterSeq, 10)
}

// ParseToken decodes a scan position. A nil or empty token is the start of
// the collection.
func ParseToken(token *string) (int64, error) {
	if token == nil || *token == "" {
		return 0, nil
	}

	afterSeq, err := strconv.ParseInt(*token, 10, 64)
	if err != nil {
		return 0, distinct.NewMalformedTokenError("source token is not a sequence number", err)
	}
	if afterSeq < 0 {
		return 0, distinct.NewMalformedTokenError("source token is negative", nil)
	}
	return afterSeq, nil
}

package client

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/papercomputeco/docq/pkg/pipeline"
)

// ErrNoMoreResults is returned by ReadNext once the query is exhausted.
var ErrNoMoreResults = errors.New("query has no more results")

// Iterator reads pages of a client-side distinct query. It is not safe for
// concurrent use.
type Iterator struct {
	distinct     *pipeline.Distinct
	maxItemCount int
	collection   string
	logger       *zap.Logger
}

// HasMoreResults reports whether ReadNext may return more values.
func (it *Iterator) HasMoreResults() bool {
	return !it.distinct.IsDone()
}

// ReadNext fetches the next page. Ordered queries carry a continuation token
// on every page but the last; unordered queries never do and explain why in
// DisallowContinuationTokenMessage.
func (it *Iterator) ReadNext(ctx context.Context) (*pipeline.Page, error) {
	if it.distinct.IsDone() {
		return nil, ErrNoMoreResults
	}

	page, err := it.distinct.Drain(ctx, it.maxItemCount)
	if err != nil {
		return nil, err
	}

	stats := it.distinct.Stats()
	it.logger.Debug("read distinct page",
		zap.String("collection", it.collection),
		zap.Int("returned", len(page.Documents)),
		zap.Int("seen", it.distinct.SeenCount()),
		zap.Int("suppressed", stats.Suppressed()),
		zap.Bool("done", it.distinct.IsDone()),
	)

	return page, nil
}

// Stats returns counters for the pages read so far.
func (it *Iterator) Stats() pipeline.Stats {
	return it.distinct.Stats()
}

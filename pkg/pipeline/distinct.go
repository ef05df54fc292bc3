// Package pipeline runs DISTINCT over a paged document source.
//
// A Distinct component pulls pages from its upstream Source, drops values the
// distinct map has already seen and composes the continuation token that lets
// the query resume. The component is driven by a single caller; concurrent
// Drain calls are not supported.
package pipeline

import (
	"context"
	"fmt"

	"github.com/papercomputeco/docq/pkg/distinct"
	"github.com/papercomputeco/docq/pkg/element"
)

const (
	// DisallowUnorderedMessage is attached to pages of unordered DISTINCT
	// queries run in the client environment.
	DisallowUnorderedMessage = "DISTINCT queries only return continuation tokens when there is a matching ORDER BY clause. " +
		"For example if your query is 'SELECT DISTINCT VALUE c.name FROM c', then rewrite it as " +
		"'SELECT DISTINCT VALUE c.name FROM c ORDER BY c.name'."

	// DisallowComputeMessage is attached to pages served in the compute
	// environment, where the token is only built on request.
	DisallowComputeMessage = "Continuation tokens are not attached to pages of DISTINCT queries in the compute environment; " +
		"request the continuation token from the query pipeline instead."
)

// Page is one batch of documents plus the token for the next batch.
type Page struct {
	Documents []element.Value

	// ContinuationToken is nil once the source has no more results, or when
	// the producer does not expose a token.
	ContinuationToken *string

	// DisallowContinuationTokenMessage explains why no token is attached.
	DisallowContinuationTokenMessage string
}

// Source is a paged document source.
type Source interface {
	// Drain returns the next page of at most maxElements documents. A page
	// with a nil ContinuationToken is the last one.
	Drain(ctx context.Context, maxElements int) (*Page, error)
}

// SourceFactory creates a Source, resuming from sourceToken when it is not nil.
type SourceFactory func(ctx context.Context, sourceToken *string) (Source, error)

// Environment selects when the continuation token is materialized.
type Environment int

const (
	// EnvironmentClient serializes the token into every page.
	EnvironmentClient Environment = iota

	// EnvironmentCompute builds the token only when ContinuationToken is
	// called.
	EnvironmentCompute
)

func (e Environment) String() string {
	switch e {
	case EnvironmentClient:
		return "client"
	case EnvironmentCompute:
		return "compute"
	default:
		return fmt.Sprintf("Environment(%d)", int(e))
	}
}

// Stats counts the documents that went through a Distinct component.
type Stats struct {
	Pages    int
	Scanned  int
	Returned int
}

// Suppressed is the number of duplicates dropped so far.
func (s Stats) Suppressed() int {
	return s.Scanned - s.Returned
}

// Distinct is the DISTINCT execution component.
type Distinct struct {
	env       Environment
	queryType distinct.QueryType
	seen      *distinct.Map
	source    Source

	// sourceToken is the upstream's latest resumption point.
	sourceToken *string
	done        bool
	stats       Stats
}

// TryCreateDistinct builds a Distinct component, resuming from
// continuationToken when it is not nil or empty. A malformed token, an
// invalid query type or a factory failure is returned as is; there is no
// fallback to a fresh state.
func TryCreateDistinct(
	ctx context.Context,
	env Environment,
	continuationToken *string,
	factory SourceFactory,
	queryType distinct.QueryType,
) (*Distinct, error) {
	var (
		sourceToken *string
		mapToken    string
	)

	if continuationToken != nil && *continuationToken != "" {
		token, err := ParseContinuationToken(*continuationToken)
		if err != nil {
			return nil, err
		}
		if token.SourceToken != "" {
			sourceToken = &token.SourceToken
		}
		mapToken = token.DistinctMapToken
	}

	seen, err := distinct.TryCreate(queryType, mapToken)
	if err != nil {
		return nil, err
	}

	source, err := factory(ctx, sourceToken)
	if err != nil {
		return nil, err
	}

	return &Distinct{
		env:         env,
		queryType:   queryType,
		seen:        seen,
		source:      source,
		sourceToken: sourceToken,
	}, nil
}

// Drain returns the next page of first-seen documents. Upstream errors are
// returned unwrapped. A cancelled context is reported before any document is
// pulled, leaving the seen-set untouched.
//
// Drain panics when called after IsDone reports true.
func (d *Distinct) Drain(ctx context.Context, maxElements int) (*Page, error) {
	if d.done {
		panic("pipeline: Drain called on a finished distinct query")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := d.source.Drain(ctx, maxElements)
	if err != nil {
		return nil, err
	}

	documents := make([]element.Value, 0, len(page.Documents))
	for _, doc := range page.Documents {
		if added, _ := d.seen.Add(doc); added {
			documents = append(documents, doc)
		}
	}

	d.sourceToken = page.ContinuationToken
	d.done = page.ContinuationToken == nil

	d.stats.Pages++
	d.stats.Scanned += len(page.Documents)
	d.stats.Returned += len(documents)

	out := &Page{Documents: documents}

	switch d.env {
	case EnvironmentCompute:
		out.DisallowContinuationTokenMessage = DisallowComputeMessage
	default:
		if d.queryType != distinct.QueryTypeOrdered {
			out.DisallowContinuationTokenMessage = DisallowUnorderedMessage
			break
		}
		if !d.done {
			token, err := d.compose()
			if err != nil {
				return nil, err
			}
			s := token.String()
			out.ContinuationToken = &s
		}
	}

	return out, nil
}

// ContinuationToken composes the current continuation token on demand. It
// reports false once the query is done, and in the client environment where
// the token travels on every page instead.
func (d *Distinct) ContinuationToken() (*ContinuationToken, bool, error) {
	if d.done || d.env != EnvironmentCompute {
		return nil, false, nil
	}

	token, err := d.compose()
	if err != nil {
		return nil, false, err
	}
	return token, true, nil
}

func (d *Distinct) compose() (*ContinuationToken, error) {
	mapToken, err := d.seen.ContinuationToken()
	if err != nil {
		return nil, err
	}

	token := &ContinuationToken{DistinctMapToken: mapToken}
	if d.sourceToken != nil {
		token.SourceToken = *d.sourceToken
	}
	return token, nil
}

// IsDone reports whether the upstream source has been exhausted.
func (d *Distinct) IsDone() bool {
	return d.done
}

// Stats returns counters for the documents processed so far.
func (d *Distinct) Stats() Stats {
	return d.stats
}

// SeenCount returns the number of distinct values tracked so far.
func (d *Distinct) SeenCount() int {
	return d.seen.Len()
}

package distinct

import (
	"fmt"
	"strings"
)

// QueryType is the kind of DISTINCT a query asks for. It is fixed when the
// query starts.
type QueryType int

const (
	// QueryTypeNone means the query is not a DISTINCT query.
	QueryTypeNone QueryType = iota

	// QueryTypeUnordered is a DISTINCT without a matching ORDER BY. Results
	// cannot be resumed from a continuation token.
	QueryTypeUnordered

	// QueryTypeOrdered is a DISTINCT paired with an ORDER BY that gives the
	// source a stable resumption point.
	QueryTypeOrdered
)

func (q QueryType) String() string {
	switch q {
	case QueryTypeNone:
		return "none"
	case QueryTypeUnordered:
		return "unordered"
	case QueryTypeOrdered:
		return "ordered"
	default:
		return fmt.Sprintf("QueryType(%d)", int(q))
	}
}

// IsDistinct reports whether q asks for distinct tracking.
func (q QueryType) IsDistinct() bool {
	return q == QueryTypeUnordered || q == QueryTypeOrdered
}

// ParseQueryType parses the textual name of a query type, case-insensitively.
// An empty string is QueryTypeNone.
func ParseQueryType(s string) (QueryType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return QueryTypeNone, nil
	case "unordered":
		return QueryTypeUnordered, nil
	case "ordered":
		return QueryTypeOrdered, nil
	default:
		return QueryTypeNone, fmt.Errorf("%w: %q", ErrInvalidQueryType, s)
	}
}

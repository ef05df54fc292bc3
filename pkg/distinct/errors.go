package distinct

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedToken is matched by every MalformedTokenError.
	ErrMalformedToken = errors.New("malformed continuation token")

	// ErrInvalidQueryType is returned when a map is requested for a query
	// type that does not support distinct tracking.
	ErrInvalidQueryType = errors.New("invalid distinct query type")
)

// MalformedTokenError is returned when a continuation token does not match
// the expected schema. A malformed token is never recovered from: callers
// must restart the query.
type MalformedTokenError struct {
	Reason string
	Err    error
}

// NewMalformedTokenError returns a MalformedTokenError for reason, wrapping err
// when it is not nil.
func NewMalformedTokenError(reason string, err error) *MalformedTokenError {
	return &MalformedTokenError{Reason: reason, Err: err}
}

func (e *MalformedTokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrMalformedToken, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrMalformedToken, e.Reason)
}

func (e *MalformedTokenError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrMalformedToken) hold for every MalformedTokenError.
func (e *MalformedTokenError) Is(target error) bool {
	return target == ErrMalformedToken
}

package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/papercomputeco/docq/pkg/distinct"
)

// ContinuationToken pairs the upstream source's resumption point with the
// serialized seen-set of the distinct map. Both halves are opaque.
type ContinuationToken struct {
	SourceToken      string `json:"SourceToken"`
	DistinctMapToken string `json:"DistinctMapToken"`
}

// String returns the JSON form of the token.
func (t ContinuationToken) String() string {
	b, err := json.Marshal(t)
	if err != nil {
		// Two string fields always marshal.
		panic(err)
	}
	return string(b)
}

// ParseContinuationToken parses the JSON form produced by String. Both fields
// must be present and hold strings.
func ParseContinuationToken(s string) (*ContinuationToken, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return nil, distinct.NewMalformedTokenError("continuation token is not a JSON object", err)
	}
	if fields == nil {
		return nil, distinct.NewMalformedTokenError("continuation token is not a JSON object", nil)
	}

	source, err := stringField(fields, "SourceToken")
	if err != nil {
		return nil, err
	}
	mapToken, err := stringField(fields, "DistinctMapToken")
	if err != nil {
		return nil, err
	}

	return &ContinuationToken{SourceToken: source, DistinctMapToken: mapToken}, nil
}

func stringField(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok {
		return "", distinct.NewMalformedTokenError(fmt.Sprintf("continuation token is missing field %q", name), nil)
	}

	var s string
	if len(raw) == 0 || raw[0] != '"' {
		return "", distinct.NewMalformedTokenError(fmt.Sprintf("continuation token field %q is not a string", name), nil)
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", distinct.NewMalformedTokenError(fmt.Sprintf("continuation token field %q is not a string", name), err)
	}
	return s, nil
}

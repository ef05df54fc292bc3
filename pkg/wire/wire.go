// Package wire holds the JSON bodies exchanged between the docq API server
// and its clients.
package wire

import (
	"github.com/papercomputeco/docq/pkg/element"
)

// Query parameters of the documents endpoint.
const (
	ParamPath         = "path"
	ParamMaxItemCount = "max_item_count"
	ParamContinuation = "continuation"
)

// DocumentsPage is one raw page of projected documents.
type DocumentsPage struct {
	Documents    []element.Raw `json:"documents"`
	Continuation *string       `json:"continuation"`
}

// PutDocumentsRequest stores documents in a collection.
type PutDocumentsRequest struct {
	Documents []element.Raw `json:"documents"`
}

// PutDocumentsResponse reports how documents were stored. Sequence numbers
// are only known when documents are stored synchronously.
type PutDocumentsResponse struct {
	Accepted int     `json:"accepted"`
	Seqs     []int64 `json:"seqs,omitempty"`
}

// DistinctRequest asks the server to run a DISTINCT query in the compute
// environment.
type DistinctRequest struct {
	Path         string  `json:"path"`
	Distinct     string  `json:"distinct"`
	MaxItemCount int     `json:"max_item_count"`
	Continuation *string `json:"continuation,omitempty"`
}

// DistinctResponse is one page of distinct values. Continuation is absent
// once the query is exhausted.
type DistinctResponse struct {
	Documents    []element.Raw `json:"documents"`
	Continuation *string       `json:"continuation"`
	Scanned      int           `json:"scanned"`
	Suppressed   int           `json:"suppressed"`
}

// CollectionsResponse lists collections and their sizes.
type CollectionsResponse struct {
	Collections []Collection `json:"collections"`
}

// Collection is one entry of CollectionsResponse.
type Collection struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Document is a single stored document with its sequence number.
type Document struct {
	Seq      int64       `json:"seq"`
	Document element.Raw `json:"document"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Raws wraps values for encoding.
func Raws(values []element.Value) []element.Raw {
	out := make([]element.Raw, len(values))
	for i, v := range values {
		out[i] = element.Raw{Value: v}
	}
	return out
}

// Values unwraps decoded documents.
func Values(raws []element.Raw) []element.Value {
	out := make([]element.Value, len(raws))
	for i, r := range raws {
		out[i] = r.Value
	}
	return out
}

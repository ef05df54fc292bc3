// Package storage
package storage

import (
	"context"

	"github.com/papercomputeco/docq/pkg/element"
)

// Record is a document together with the sequence number it was stored under.
type Record struct {
	Seq      int64
	Document element.Value
}

// CollectionInfo summarizes one collection.
type CollectionInfo struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Driver defines the interface for persisting and paging through documents
// in a storage backend. Documents are grouped into named collections and
// receive a sequence number on insert; scans return documents in sequence
// order, which gives paged readers a stable resumption point.
type Driver interface {
	// Put stores a document in a collection and returns its sequence number.
	// Sequence numbers are positive and increase with every insert.
	Put(ctx context.Context, collection string, doc element.Value) (int64, error)

	// Get retrieves a document by its sequence number.
	Get(ctx context.Context, collection string, seq int64) (*Record, error)

	// Scan returns up to limit records with a sequence number greater than
	// afterSeq, in ascending sequence order.
	Scan(ctx context.Context, collection string, afterSeq int64, limit int) ([]Record, error)

	// Count returns the number of documents in a collection.
	Count(ctx context.Context, collection string) (int, error)

	// Collections lists every collection holding at least one document.
	Collections(ctx context.Context) ([]CollectionInfo, error)

	// Close closes the store and releases any resources.
	Close() error
}

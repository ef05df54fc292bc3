// Package inmemory provides a map-backed storage driver.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/papercomputeco/docq/pkg/element"
	"github.com/papercomputeco/docq/pkg/storage"
)

// Driver implements storage.Driver using in-memory slices.
type Driver struct {
	// mu is a read write sync mutex for locking the collections
	mu sync.RWMutex

	// seq is the last sequence number handed out, shared by every collection
	seq int64

	// collections maps a collection name to its records in sequence order
	collections map[string][]storage.Record
}

// NewDriver creates a new in-memory storer.
func NewDriver() *Driver {
	return &Driver{
		collections: make(map[string][]storage.Record),
	}
}

// Put appends a document to a collection.
func (s *Driver) Put(_ context.Context, collection string, doc element.Value) (int64, error) {
	if doc == nil {
		return 0, errors.New("cannot store nil document")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.collections[collection] = append(s.collections[collection], storage.Record{
		Seq:      s.seq,
		Document: doc,
	})

	return s.seq, nil
}

// Get retrieves a document by its sequence number.
func (s *Driver) Get(_ context.Context, collection string, seq int64) (*storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.collections[collection]
	i := sort.Search(len(records), func(i int) bool { return records[i].Seq >= seq })
	if i == len(records) || records[i].Seq != seq {
		return nil, storage.NotFoundError{Collection: collection, Seq: seq}
	}

	record := records[i]
	return &record, nil
}

// Scan returns up to limit records after afterSeq.
func (s *Driver) Scan(_ context.Context, collection string, afterSeq int64, limit int) ([]storage.Record, error) {
	if limit <= 0 {
		return nil, errors.New("scan limit must be positive")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.collections[collection]
	start := sort.Search(len(records), func(i int) bool { return records[i].Seq > afterSeq })
	end := min(start+limit, len(records))

	out := make([]storage.Record, end-start)
	copy(out, records[start:end])
	return out, nil
}

// Count returns the number of documents in a collection.
func (s *Driver) Count(_ context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection]), nil
}

// Collections lists every non-empty collection by name.
func (s *Driver) Collections(_ context.Context) ([]storage.CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]storage.CollectionInfo, 0, len(s.collections))
	for name, records := range s.collections {
		infos = append(infos, storage.CollectionInfo{Name: name, Count: len(records)})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	return infos, nil
}

// Close is a no-op for the in-memory storer.
func (s *Driver) Close() error {
	return nil
}

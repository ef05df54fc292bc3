package storage

import "fmt"

// NotFoundError is returned when a document doesn't exist in the store.
type NotFoundError struct {
	Collection string
	Seq        int64
}

func (e NotFoundError) Error() string {
	if e.Collection == "" {
		return "document not found"
	}

	return fmt.Sprintf("document not found: %s/%d", e.Collection, e.Seq)
}

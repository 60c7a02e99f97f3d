package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

// ErrReadonlyCollection is returned when a write targets a readonly collection.
var ErrReadonlyCollection = errors.New("collection is readonly")

// ErrComponentNotSupported is returned when an entry's component type is not
// supported by its target collection.
var ErrComponentNotSupported = errors.New("component not supported by collection")

// StoreError represents errors from store operations
type StoreError struct {
	Op           string // Operation that failed
	Err          error  // Underlying error
	ObjectID     int64  // Optional: icalobject row id if relevant
	CollectionID int64  // Optional: collection id if relevant
}

func (e *StoreError) Error() string {
	switch {
	case e.ObjectID != 0 && e.CollectionID != 0:
		return fmt.Sprintf("store %s failed for entry %d in collection %d: %v", e.Op, e.ObjectID, e.CollectionID, e.Err)
	case e.ObjectID != 0:
		return fmt.Sprintf("store %s failed for entry %d: %v", e.Op, e.ObjectID, e.Err)
	case e.CollectionID != 0:
		return fmt.Sprintf("store %s failed for collection %d: %v", e.Op, e.CollectionID, e.Err)
	}
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

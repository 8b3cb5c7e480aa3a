package favourites

import (
	"errors"
	"fmt"
)

var (
	// ErrStorage matches every *StorageError.
	ErrStorage = errors.New("favourites storage failure")
	// ErrInvalidEntry is returned for entries without an identifier.
	ErrInvalidEntry = errors.New("favourite entry has no imdbID")
)

// StorageError reports a failed read, decode or write of the persisted
// collection. The in-memory collection is still valid when it is returned.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("favourites %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

package repository

import (
	"errors"
	"fmt"
)

// ErrStorage marks persistence-collaborator failures. Callers match it with
// errors.Is; the registry propagates these without interpretation and never
// retries on its own.
var ErrStorage = errors.New("storage unavailable")

// StorageError wraps a database failure with the originating query context.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStorage) match every StorageError.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

package repo

import (
	"errors"
	"fmt"
)

var (
	ErrorNotFound = errors.New("not found")
	ErrorStorage  = errors.New("storage error")
)

type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %d: not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrorNotFound
}

// StorageError reports a failure of the underlying database.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrorStorage
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

package reconcile

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMapping     = errors.New("mapping error")
	ErrValidation  = errors.New("validation error")
	ErrKeyConflict = errors.New("key conflict")
	ErrStorage     = errors.New("storage error")
	ErrLookup      = errors.New("existing record lookup failed")
)

// MappingError reports every field of a row that could not be coerced or was missing.
type MappingError struct {
	Row      int
	Problems []string
}

func (e *MappingError) Error() string {
	return strings.Join(e.Problems, "; ")
}

func (e *MappingError) Is(target error) bool {
	return target == ErrMapping
}

// ValidationError reports business rule violations on an already mapped row.
type ValidationError struct {
	Row      int
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// KeyConflictError is raised when a row collides with an earlier row of the same batch.
type KeyConflictError struct {
	Row      int
	Key      BusinessKey
	FirstRow int
	Reason   string
}

func (e *KeyConflictError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("duplicate key %s (already created by row %d)", e.Key, e.FirstRow)
}

func (e *KeyConflictError) Is(target error) bool {
	return target == ErrKeyConflict
}

// StorageError wraps a failed create/update call.
type StorageError struct {
	Row int
	Op  OpKind
	Err error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed", strings.ToLower(e.Op.String()))
	}
	return e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// LookupError is the only batch-fatal error: nothing has been written when it is returned.
type LookupError struct {
	Keys int
	Err  error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s for %d keys: %v", ErrLookup, e.Keys, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

func (e *LookupError) Is(target error) bool {
	return target == ErrLookup
}

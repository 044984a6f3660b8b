package sequence

import (
	"errors"
	"fmt"
)

var (
	// ErrTransientConflict is matched by errors returned after every attempt lost a
	// concurrent update. The caller may retry the whole operation.
	ErrTransientConflict = errors.New("sequence allocation conflict, retry later")
	// ErrAllocationTimeout means the allocation transaction outlived its timeout and was rolled back
	ErrAllocationTimeout = errors.New("sequence allocation timed out")
	// ErrInvalidEntityType is returned for entity types that cannot produce a two-letter prefix
	ErrInvalidEntityType = errors.New("invalid entity type")
	// ErrInvalidID is returned by ParseID for malformed identifiers
	ErrInvalidID = errors.New("invalid identifier")
)

// ConflictError reports an allocation that kept conflicting until attempts ran out
type ConflictError struct {
	EntityType string
	YearMonth  string
	Attempts   int
	Err        error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("allocate %s for %s: gave up after %d attempts: %v", e.EntityType, e.YearMonth, e.Attempts, e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// Is makes every ConflictError match ErrTransientConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrTransientConflict
}

// IsRetryable reports whether the caller may safely retry the whole operation
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientConflict) || errors.Is(err, ErrAllocationTimeout)
}

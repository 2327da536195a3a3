package docstore

import (
	"fmt"

	"github.com/grand-nerud/backoffice/internal/shared"
)

var (
	// ErrNotFound reports that no document matched.
	ErrNotFound = shared.ErrNotFound
	// ErrDuplicateKey reports a violated unique index.
	ErrDuplicateKey = fmt.Errorf("%w: duplicate key", shared.ErrConflict)
)

// OpError describes a failed store operation. It matches shared.ErrStorage
// and the underlying driver error.
type OpError struct {
	Op         string
	Collection string
	Err        error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("docstore: %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *OpError) Unwrap() []error {
	return []error{shared.ErrStorage, e.Err}
}

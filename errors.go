package review

import "github.com/coursekit/review/types"

// Sentinel errors returned by the Manager, re-exported from the types
// package so callers can check them with errors.Is against either import
// path.
var (
	// ErrNotFound is returned when a referenced step or summary does not
	// exist in the store.
	ErrNotFound = types.ErrNotFound

	// ErrRemoved is returned for operations on a soft-deleted step where
	// removal state matters.
	ErrRemoved = types.ErrRemoved

	// ErrTransition is returned for state transitions the state machine does
	// not permit.
	ErrTransition = types.ErrTransition

	// ErrAlreadyStarted is returned on duplicate registration of a
	// submission's review process.
	ErrAlreadyStarted = types.ErrAlreadyStarted

	// ErrNotAssignable is returned when automatic assignment exhausts its
	// candidates or retry budget. Expected and recoverable.
	ErrNotAssignable = types.ErrNotAssignable

	// ErrConstraint is returned when a data-integrity assumption is found
	// false.
	ErrConstraint = types.ErrConstraint

	// ErrConflict is returned when a mutation loses its compare-and-swap to a
	// concurrent writer; nothing was written and the call may be retried.
	ErrConflict = types.ErrConflict

	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrConnectionRequired is returned when the NATS connection is nil.
	ErrConnectionRequired = types.ErrConnectionRequired
)

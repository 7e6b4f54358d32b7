package types

import "errors"

// Sentinel errors for the review library.
//
// All components use these for known error conditions so callers can check
// with errors.Is(), and wrap external errors with context using
// fmt.Errorf("...: %w", err).

// Domain errors - returned by Manager operations.
var (
	// ErrNotFound is returned when a referenced ReviewStep or ReviewSummary
	// does not exist in the store.
	ErrNotFound = errors.New("record not found")

	// ErrRemoved is returned when an operation is attempted on a soft-deleted
	// step where removal state matters (double delete, expiry of a removed
	// step, completion of a removed step).
	ErrRemoved = errors.New("review step already removed")

	// ErrTransition is returned when an operation would move a step between
	// states the state machine does not permit, such as re-assigning a
	// completed step or expiring an already-terminal one.
	ErrTransition = errors.New("illegal review step transition")

	// ErrAlreadyStarted is returned on duplicate registration of a
	// submission's review process.
	ErrAlreadyStarted = errors.New("review process already started")

	// ErrNotAssignable is returned when the automatic assignment algorithm
	// exhausts its candidates or retry budget without assigning work. This is
	// an expected, recoverable outcome under contention or when no work is
	// available, not a defect.
	ErrNotAssignable = errors.New("no review work assignable")

	// ErrConstraint is returned when a data-integrity assumption is found
	// false, such as more than one summary existing for a (unit, reviewee)
	// pair. This is a serious, unexpected condition.
	ErrConstraint = errors.New("data integrity constraint violated")

	// ErrConflict is returned when a single-pair mutation loses its
	// compare-and-swap against a concurrent writer. The operation performed
	// no write; the caller may re-invoke it.
	ErrConflict = errors.New("concurrent modification conflict")
)

// IsNotFound reports whether err indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Construction errors - returned by NewManager.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionRequired is returned when the NATS connection is nil.
	ErrConnectionRequired = errors.New("NATS connection is required")
)

package types

// Selector chooses one candidate out of n remaining candidates during
// automatic assignment.
//
// The production selector picks uniformly at random: spreading concurrent
// reviewers' writes across several top-ranked summaries avoids serializing
// every caller on the single best-ranked row. Tests substitute a
// deterministic selector without touching the retry or transaction logic.
//
// Implementations should be stateless or internally synchronized; Choose is
// called concurrently by independent GetNewReview callers.
type Selector interface {
	// Choose returns an index in [0, n). n is always >= 1.
	Choose(n int) int
}

// AttemptOutcome is the result of one transactional assignment attempt
// against a single candidate summary.
//
// A conflict is an expected soft outcome (the candidate changed under us, or
// the reviewer already holds or finished this submission); the selection loop
// moves on to the next candidate. Errors are reserved for genuinely
// unexpected conditions such as the summary vanishing mid-attempt.
type AttemptOutcome int

const (
	// AttemptAssigned means the step was created or reactivated and its key
	// can be returned to the caller.
	AttemptAssigned AttemptOutcome = iota

	// AttemptConflict means the candidate could not be assigned; the
	// selection loop should consume a retry and continue.
	AttemptConflict
)

package types

// Operation names used as metric labels. One label per Manager operation.
const (
	OpStartReviewProcess   = "start_review_process"
	OpAddReviewer          = "add_reviewer"
	OpDeleteReviewer       = "delete_reviewer"
	OpCompleteReview       = "complete_review"
	OpExpireReview         = "expire_review"
	OpExpireOldReviews     = "expire_old_reviews"
	OpGetNewReview         = "get_new_review"
	OpGetReviewKeys        = "get_review_keys"
	OpGetSubmissionKey     = "get_submission_key"
	OpGetSubmissionAndKeys = "get_submission_and_review_keys"
)

// Result names used as metric labels. Success results are per-branch so the
// frequency of each code path is independently observable.
const (
	ResultSuccess = "success"

	// AddReviewer success branches.
	ResultCreated            = "created"
	ResultReactivatedExpired = "reactivated_expired"
	ResultUnremoved          = "unremoved"
	ResultUnremovedExpired   = "unremoved_expired"

	// Failure results, one per error kind.
	ResultNotFound       = "not_found"
	ResultRemoved        = "removed"
	ResultTransition     = "transition"
	ResultAlreadyStarted = "already_started"
	ResultNotAssignable  = "not_assignable"
	ResultConstraint     = "constraint"
	ResultConflict       = "conflict"
	ResultError          = "error"
)

// Per-candidate assignment attempt outcomes (see AttemptOutcome).
const (
	AttemptResultAssigned = "assigned"
	AttemptResultConflict = "conflict"
)

// MetricsCollector defines methods for recording operational counters.
//
// One increment happens per significant branch of every operation: the start
// of the operation, its terminal result, each per-candidate assignment
// attempt, and each item of a batch expiry sweep. The counters are
// best-effort and exist only for diagnostics; no correctness decision reads
// them.
//
// Implementations must be non-blocking and safe for concurrent use.
type MetricsCollector interface {
	// RecordOpStart records that an operation began.
	RecordOpStart(op string)

	// RecordOpResult records an operation's terminal branch.
	RecordOpResult(op string, result string)

	// RecordAssignmentAttempt records the outcome of one per-candidate
	// transactional assignment attempt inside GetNewReview.
	RecordAssignmentAttempt(result string)

	// RecordExpireSweep records the totals of one batch expiry sweep.
	RecordExpireSweep(expired, skipped int)
}

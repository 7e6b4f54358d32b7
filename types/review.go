package types

import "time"

// StepState is the lifecycle state of a ReviewStep.
type StepState int32

// ReviewStep lifecycle states.
//
// A step is created in StateAssigned, moves to StateCompleted when the
// reviewer submits their review, or to StateExpired when the review window
// elapses without a submission. There is no transition from StateCompleted
// back to StateAssigned, and none from StateExpired to StateCompleted.
const (
	StateAssigned StepState = iota
	StateCompleted
	StateExpired
)

// String returns the canonical lowercase name of the state.
func (s StepState) String() string {
	switch s {
	case StateAssigned:
		return "assigned"
	case StateCompleted:
		return "completed"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// AssignerKind records how a ReviewStep came to be assigned.
type AssignerKind int32

const (
	// AssignerHuman marks steps created or last reactivated by an explicit
	// human action (AddReviewer). Human-assigned steps are never reclaimed
	// by the batch expiry sweep.
	AssignerHuman AssignerKind = iota

	// AssignerAuto marks steps created or last reactivated by the automatic
	// assignment algorithm (GetNewReview). Only auto-assigned steps are
	// subject to batch expiry.
	AssignerAuto
)

// String returns the canonical lowercase name of the assigner kind.
func (k AssignerKind) String() string {
	switch k {
	case AssignerHuman:
		return "human"
	case AssignerAuto:
		return "auto"
	default:
		return "unknown"
	}
}

// ReviewStep is one (unit, submission, reviewee, reviewer) assignment record.
//
// Exactly one non-removed step may exist per identity tuple; the step's
// durable key is derived deterministically from the tuple, so a removed step
// is unremoved and reused rather than duplicated. Steps are soft-deleted
// only, never physically removed.
type ReviewStep struct {
	// Identity tuple. Immutable once created.
	UnitID        string `json:"unit_id"`
	SubmissionKey string `json:"submission_key"`
	RevieweeKey   string `json:"reviewee_key"`
	ReviewerKey   string `json:"reviewer_key"`

	// State is the current lifecycle state.
	State StepState `json:"state"`

	// Removed is the soft-delete flag. A removed step contributes to none of
	// the summary counts.
	Removed bool `json:"removed"`

	// Assigner records whether the last creation/reactivation was a human
	// action or the automatic assignment algorithm.
	Assigner AssignerKind `json:"assigner"`

	// ReviewKey references the review content once written. Empty until the
	// step completes. The content itself is owned by an external
	// collaborator and is read-only to this engine.
	ReviewKey string `json:"review_key,omitempty"`

	// SummaryKey is a back-reference to the owning ReviewSummary. It is
	// derivable from the identity tuple and stored for convenience; it does
	// not imply ownership.
	SummaryKey string `json:"review_summary_key"`

	CreateDate time.Time `json:"create_date"`
	ChangeDate time.Time `json:"change_date"`
}

// ReviewSummary aggregates step counts for one (unit, submission, reviewee)
// triple.
//
// The summary is the single source of truth for assignment tallies: at all
// times AssignedCount, CompletedCount, and ExpiredCount equal the number of
// non-removed steps in the corresponding state that reference this summary.
// The invariant holds because every step mutation commits through the
// summary in the same pair-write (see the store package); the summary is
// never read or written independently of the step it accounts for.
type ReviewSummary struct {
	UnitID        string `json:"unit_id"`
	SubmissionKey string `json:"submission_key"`
	RevieweeKey   string `json:"reviewee_key"`

	AssignedCount  int `json:"assigned_count"`
	CompletedCount int `json:"completed_count"`
	ExpiredCount   int `json:"expired_count"`

	CreateDate time.Time `json:"create_date"`
	ChangeDate time.Time `json:"change_date"`
}

// DecrementFor decreases the count bucket for the given state by one.
//
// Counts never go below zero; an underflow indicates a bookkeeping defect
// elsewhere and is clamped rather than propagated.
func (s *ReviewSummary) DecrementFor(state StepState) {
	switch state {
	case StateAssigned:
		if s.AssignedCount > 0 {
			s.AssignedCount--
		}
	case StateCompleted:
		if s.CompletedCount > 0 {
			s.CompletedCount--
		}
	case StateExpired:
		if s.ExpiredCount > 0 {
			s.ExpiredCount--
		}
	}
}

// IncrementFor increases the count bucket for the given state by one.
func (s *ReviewSummary) IncrementFor(state StepState) {
	switch state {
	case StateAssigned:
		s.AssignedCount++
	case StateCompleted:
		s.CompletedCount++
	case StateExpired:
		s.ExpiredCount++
	}
}

// StepCount returns the total number of non-removed steps accounted for by
// this summary.
func (s *ReviewSummary) StepCount() int {
	return s.AssignedCount + s.CompletedCount + s.ExpiredCount
}

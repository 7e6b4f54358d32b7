// Package review assigns student submissions to peer reviewers and tracks
// the lifecycle of each review assignment.
//
// The engine is a library: it owns no network protocol and runs no
// background goroutines. Every operation is a synchronous call, and all
// coordination between concurrent callers is delegated to NATS JetStream KV
// revisions (compare-and-swap on write). The hot shared resource is the
// per-submission ReviewSummary row; the automatic assignment path picks
// candidates pseudo-randomly from the least-reviewed summaries so concurrent
// reviewers do not serialize on a single row.
//
// # Quick Start
//
//	cfg := review.DefaultConfig()
//	mgr, err := review.NewManager(ctx, &cfg, natsConn)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Register a submission for peer review.
//	summaryKey, err := mgr.StartReviewProcess(ctx, unitID, submissionKey, revieweeKey)
//
//	// Hand one unit of review work to a reviewer.
//	stepKey, err := mgr.GetNewReview(ctx, unitID, reviewerKey)
//	if errors.Is(err, review.ErrNotAssignable) {
//	    // No work available right now; not a defect.
//	}
//
// # Records
//
// A ReviewStep is one (unit, submission, reviewee, reviewer) assignment with
// its own state (assigned, completed, expired) and a soft-delete flag. A
// ReviewSummary aggregates the per-state counts of a submission's steps and
// is updated in the same commit as any step it accounts for, so its counts
// are always consistent with the non-removed steps referencing it.
//
// # Reclamation
//
// Auto-assigned steps that a reviewer never completes are reclaimed by
// ExpireOldReviews, typically from a scheduled batch job. Human-assigned
// steps are never auto-expired.
package review

package review_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coursekit/review"
	"github.com/coursekit/review/internal/metrics"
	"github.com/coursekit/review/store"
	"github.com/coursekit/review/strategy"
	reviewtest "github.com/coursekit/review/testing"
	"github.com/coursekit/review/types"
)

// testEngine bundles a Manager with direct store access so tests can verify
// the persisted records behind the public API.
type testEngine struct {
	mgr *review.Manager
	st  *store.Store
}

func newTestEngine(t *testing.T, opts ...review.Option) *testEngine {
	t.Helper()

	_, nc := reviewtest.StartEmbeddedNATS(t)
	summaries := reviewtest.CreateKV(t, nc, "review-summaries")
	steps := reviewtest.CreateKV(t, nc, "review-steps")
	st := store.New(summaries, steps, nil)

	cfg := review.TestConfig()
	all := append([]review.Option{review.WithSelector(strategy.NewHead())}, opts...)
	mgr, err := review.NewManagerWithStore(&cfg, st, all...)
	require.NoError(t, err)

	return &testEngine{mgr: mgr, st: st}
}

func (e *testEngine) summary(t *testing.T, key string) *types.ReviewSummary {
	t.Helper()

	sum, _, err := e.st.GetSummary(t.Context(), key)
	require.NoError(t, err)

	return sum
}

func (e *testEngine) step(t *testing.T, key string) *types.ReviewStep {
	t.Helper()

	step, _, err := e.st.GetStep(t.Context(), key)
	require.NoError(t, err)

	return step
}

func (e *testEngine) requireCounts(t *testing.T, sumKey string, assigned, completed, expired int) {
	t.Helper()

	sum := e.summary(t, sumKey)
	require.Equal(t, assigned, sum.AssignedCount, "assigned count")
	require.Equal(t, completed, sum.CompletedCount, "completed count")
	require.Equal(t, expired, sum.ExpiredCount, "expired count")
}

func TestNewManagerWithStore_Validation(t *testing.T) {
	t.Parallel()

	cfg := review.TestConfig()

	_, err := review.NewManagerWithStore(nil, nil)
	require.ErrorIs(t, err, review.ErrInvalidConfig)

	_, err = review.NewManagerWithStore(&cfg, nil)
	require.ErrorIs(t, err, review.ErrInvalidConfig)
}

func TestStartReviewProcess_CreatesZeroedSummary(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	e := newTestEngine(t)

	sumKey, err := e.mgr.StartReviewProcess(ctx, "unit-1", "subm-1", "stu-1")
	require.NoError(t, err)
	require.NotEmpty(t, sumKey)

	e.requireCounts(t, sumKey, 0, 0, 0)
	sum := e.summary(t, sumKey)
	require.Equal(t, "subm-1", sum.SubmissionKey)
	require.Equal(t, "stu-1", sum.RevieweeKey)
}

func TestStartReviewProcess_Duplicate(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	e := newTestEngine(t)

	_, err := e.mgr.StartReviewProcess(ctx, "unit-1", "subm-1", "stu-1")
	require.NoError(t, err)

	_, err = e.mgr.StartReviewProcess(ctx, "unit-1", "subm-1", "stu-1")
	require.ErrorIs(t, err, review.ErrAlreadyStarted)
}

func TestAddReviewer_CreatesHumanAssignedStep(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	e := newTestEngine(t)

	sumKey, err := e.mgr.StartReviewProcess(ctx, "unit-1", "subm-1", "stu-1")
	require.NoError(t, err)

	stepKey, err := e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-1")
	require.NoError(t, err)

	step := e.step(t, stepKey)
	require.Equal(t, types.StateAssigned, step.State)
	require.Equal(t, types.AssignerHuman, step.Assigner)
	require.False(t, step.Removed)
	require.Equal(t, sumKey, step.SummaryKey)

	e.requireCounts(t, sumKey, 1, 0, 0)
}

func TestAddReviewer_WithoutRegistration(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	_, err := e.mgr.AddReviewer(t.Context(), "unit-1", "subm-1", "stu-1", "rev-1")
	require.ErrorIs(t, err, review.ErrNotFound)
}

func TestAddReviewer_DoubleAddFails(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	e := newTestEngine(t)

	sumKey, err := e.mgr.StartReviewProcess(ctx, "unit-1", "subm-1", "stu-1")
	require.NoError(t, err)
	_, err = e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-1")
	require.NoError(t, err)

	_, err = e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-1")
	require.ErrorIs(t, err, review.ErrTransition)

	// The failed call must not touch the counts.
	e.requireCounts(t, sumKey, 1, 0, 0)
}

func TestDeleteReviewer_SoftDeleteAndReAdd(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	e := newTestEngine(t)

	sumKey, err := e.mgr.StartReviewProcess(ctx, "unit-1", "subm-1", "stu-1")
	require.NoError(t, err)
	stepKey, err := e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-1")
	require.NoError(t, err)

	require.NoError(t, e.mgr.DeleteReviewer(ctx, stepKey))
	require.True(t, e.step(t, stepKey).Removed)
	e.requireCounts(t, sumKey, 0, 0, 0)

	// Double delete fails and changes nothing.
	require.ErrorIs(t, e.mgr.DeleteReviewer(ctx, stepKey), review.ErrRemoved)

	// Re-adding restores the same step under the same key, not a new one.
	again, err := e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-1")
	require.NoError(t, err)
	require.Equal(t, stepKey, again)

	step := e.step(t, stepKey)
	require.False(t, step.Removed)
	require.Equal(t, types.StateAssigned, step.State)
	require.Equal(t, types.AssignerHuman, step.Assigner)
	e.requireCounts(t, sumKey, 1, 0, 0)
}

func TestDeleteReviewer_MissingStep(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	err := e.mgr.DeleteReviewer(t.Context(), "unit-1.subm-1.stu-1.rev-1")
	require.ErrorIs(t, err, review.ErrNotFound)
}

func TestExpireReview_TransitionsAndGuards(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	e := newTestEngine(t)

	sumKey, err := e.mgr.StartReviewProcess(ctx, "unit-1", "subm-1", "stu-1")
	require.NoError(t, err)
	stepKey, err := e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-1")
	require.NoError(t, err)

	require.NoError(t, e.mgr.ExpireReview(ctx, stepKey))
	require.Equal(t, types.StateExpired, e.step(t, stepKey).State)
	e.requireCounts(t, sumKey, 0, 0, 1)

	// Expiring a terminal step fails and changes nothing.
	require.ErrorIs(t, e.mgr.ExpireReview(ctx, stepKey), review.ErrTransition)
	e.requireCounts(t, sumKey, 0, 0, 1)
}

func TestExpireReview_RemovedStep(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	e := newTestEngine(t)

	_, err := e.mgr.StartReviewProcess(ctx, "unit-1", "subm-1", "stu-1")
	require.NoError(t, err)
	stepKey, err := e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-1")
	require.NoError(t, err)
	require.NoError(t, e.mgr.DeleteReviewer(ctx, stepKey))

	require.ErrorIs(t, e.mgr.ExpireReview(ctx, stepKey), review.ErrRemoved)
}

func TestAddReviewer_ReactivatesExpiredStep(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	e := newTestEngine(t)

	sumKey, err := e.mgr.StartReviewProcess(ctx, "unit-1", "subm-1", "stu-1")
	require.NoError(t, err)
	stepKey, err := e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-1")
	require.NoError(t, err)
	require.NoError(t, e.mgr.ExpireReview(ctx, stepKey))

	again, err := e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-1")
	require.NoError(t, err)
	require.Equal(t, stepKey, again)

	step := e.step(t, stepKey)
	require.Equal(t, types.StateAssigned, step.State)
	require.Equal(t, types.AssignerHuman, step.Assigner)
	e.requireCounts(t, sumKey, 1, 0, 0)
}

func TestCompleteReview_RecordsReviewAndCounts(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	e := newTestEngine(t)

	sumKey, err := e.mgr.StartReviewProcess(ctx, "unit-1", "subm-1", "stu-1")
	require.NoError(t, err)
	stepKey, err := e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-1")
	require.NoError(t, err)

	require.NoError(t, e.mgr.CompleteReview(ctx, stepKey, "review-content-1"))

	step := e.step(t, stepKey)
	require.Equal(t, types.StateCompleted, step.State)
	require.Equal(t, "review-content-1", step.ReviewKey)
	e.requireCounts(t, sumKey, 0, 1, 0)

	// A completed review stays completed.
	require.ErrorIs(t, e.mgr.CompleteReview(ctx, stepKey, "other"), review.ErrTransition)
	require.ErrorIs(t, e.mgr.ExpireReview(ctx, stepKey), review.ErrTransition)

	// And cannot be re-added while live.
	_, err = e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-1")
	require.ErrorIs(t, err, review.ErrTransition)
}

func TestAddReviewer_UnremoveCompletedRestoresCount(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	e := newTestEngine(t)

	sumKey, err := e.mgr.StartReviewProcess(ctx, "unit-1", "subm-1", "stu-1")
	require.NoError(t, err)
	stepKey, err := e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-1")
	require.NoError(t, err)
	require.NoError(t, e.mgr.CompleteReview(ctx, stepKey, "review-content-1"))
	require.NoError(t, e.mgr.DeleteReviewer(ctx, stepKey))
	e.requireCounts(t, sumKey, 0, 0, 0)

	// Unremoving a completed step restores its completed contribution; it
	// does not reopen the review.
	again, err := e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-1")
	require.NoError(t, err)
	require.Equal(t, stepKey, again)

	step := e.step(t, stepKey)
	require.False(t, step.Removed)
	require.Equal(t, types.StateCompleted, step.State)
	require.Equal(t, "review-content-1", step.ReviewKey)
	e.requireCounts(t, sumKey, 0, 1, 0)
}

func TestExpireOldReviews_EmptyUnit(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	expired, skipped, err := e.mgr.ExpireOldReviews(t.Context(), time.Hour, "unit-1", time.Now())
	require.NoError(t, err)
	require.Empty(t, expired)
	require.Empty(t, skipped)
}

func TestExpireOldReviews_ReclaimsOnlyStaleAutoSteps(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	e := newTestEngine(t)

	// One auto-assigned step via the assignment path.
	sumKey, err := e.mgr.StartReviewProcess(ctx, "unit-1", "subm-1", "stu-1")
	require.NoError(t, err)
	autoKey, err := e.mgr.GetNewReview(ctx, "unit-1", "rev-auto")
	require.NoError(t, err)

	// One human-assigned step, never reclaimed.
	humanKey, err := e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-human")
	require.NoError(t, err)

	// Sweep "now" far enough in the future that both steps are stale.
	future := time.Now().Add(48 * time.Hour)
	expired, skipped, err := e.mgr.ExpireOldReviews(ctx, time.Hour, "unit-1", future)
	require.NoError(t, err)
	require.Equal(t, []string{autoKey}, expired)
	require.Empty(t, skipped)

	require.Equal(t, types.StateExpired, e.step(t, autoKey).State)
	require.Equal(t, types.StateAssigned, e.step(t, humanKey).State)
	e.requireCounts(t, sumKey, 1, 0, 1)

	// Steps inside the window are left alone.
	expired, skipped, err = e.mgr.ExpireOldReviews(ctx, time.Hour, "unit-1", time.Now())
	require.NoError(t, err)
	require.Empty(t, expired)
	require.Empty(t, skipped)
}

func TestRemovalWithStaleStepCopyLeavesCountsConsistent(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	e := newTestEngine(t)

	sumKey, err := e.mgr.StartReviewProcess(ctx, "unit-1", "subm-1", "stu-1")
	require.NoError(t, err)
	stepKey, err := e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-1")
	require.NoError(t, err)
	_, err = e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-2")
	require.NoError(t, err)

	// A remover captures the step, then another caller completes it before
	// the remover reaches the summary.
	staleStep, staleRev, err := e.st.GetStep(ctx, stepKey)
	require.NoError(t, err)
	require.NoError(t, e.mgr.CompleteReview(ctx, stepKey, "review-content-1"))

	// The remover then commits its removal from the stale copy against a
	// fresh summary revision. The commit must fail as a whole: the stale
	// step write is rejected and the count decrement it carried must not
	// survive.
	sum, sumRev, err := e.st.GetSummary(ctx, sumKey)
	require.NoError(t, err)
	removal := *staleStep
	removal.Removed = true
	sum.DecrementFor(types.StateAssigned)
	err = e.st.CommitPair(ctx, sumKey, sum, sumRev, stepKey, &removal, staleRev)
	require.Error(t, err)

	// One step completed (rev-1), one still assigned (rev-2).
	e.requireCounts(t, sumKey, 1, 1, 0)
	step := e.step(t, stepKey)
	require.Equal(t, types.StateCompleted, step.State)
	require.False(t, step.Removed)
}

func TestManager_RecordsPerBranchCounters(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	snap := metrics.NewSnapshot()
	e := newTestEngine(t, review.WithMetrics(snap))

	_, err := e.mgr.StartReviewProcess(ctx, "unit-1", "subm-1", "stu-1")
	require.NoError(t, err)
	_, err = e.mgr.StartReviewProcess(ctx, "unit-1", "subm-1", "stu-1")
	require.ErrorIs(t, err, review.ErrAlreadyStarted)

	stepKey, err := e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-1")
	require.NoError(t, err)
	require.NoError(t, e.mgr.DeleteReviewer(ctx, stepKey))
	_, err = e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-1")
	require.NoError(t, err)

	require.Equal(t, int64(2), snap.Value(types.OpStartReviewProcess))
	require.Equal(t, int64(1), snap.Value(types.OpStartReviewProcess+":"+types.ResultSuccess))
	require.Equal(t, int64(1), snap.Value(types.OpStartReviewProcess+":"+types.ResultAlreadyStarted))
	require.Equal(t, int64(1), snap.Value(types.OpAddReviewer+":"+types.ResultCreated))
	require.Equal(t, int64(1), snap.Value(types.OpAddReviewer+":"+types.ResultUnremoved))
	require.Equal(t, int64(1), snap.Value(types.OpDeleteReviewer+":"+types.ResultSuccess))
}

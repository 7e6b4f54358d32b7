package review_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coursekit/review"
)

func TestGetReviewKeys_FiltersByReviewer(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	e := newTestEngine(t)

	_, err := e.mgr.StartReviewProcess(ctx, "unit-1", "subm-1", "stu-1")
	require.NoError(t, err)
	_, err = e.mgr.StartReviewProcess(ctx, "unit-1", "subm-2", "stu-2")
	require.NoError(t, err)

	mine1, err := e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-1")
	require.NoError(t, err)
	mine2, err := e.mgr.AddReviewer(ctx, "unit-1", "subm-2", "stu-2", "rev-1")
	require.NoError(t, err)
	_, err = e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-2")
	require.NoError(t, err)

	// Removed steps stay in the work list; the caller sees its full history.
	require.NoError(t, e.mgr.DeleteReviewer(ctx, mine2))

	got, err := e.mgr.GetReviewKeys(ctx, "unit-1", "rev-1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{mine1, mine2}, got)
}

func TestGetReviewKeys_EmptyUnit(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	got, err := e.mgr.GetReviewKeys(t.Context(), "unit-1", "rev-1")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestGetReviewKeys_NoTokenCollision(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	e := newTestEngine(t)

	// "rev-1" must not match "rev-10": matching is per token, not prefix.
	_, err := e.mgr.StartReviewProcess(ctx, "unit-1", "subm-1", "stu-1")
	require.NoError(t, err)
	_, err = e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-10")
	require.NoError(t, err)

	got, err := e.mgr.GetReviewKeys(ctx, "unit-1", "rev-1")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestGetSubmissionKey(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	e := newTestEngine(t)

	_, err := e.mgr.StartReviewProcess(ctx, "unit-1", "subm-1", "stu-1")
	require.NoError(t, err)

	got, err := e.mgr.GetSubmissionKey(ctx, "unit-1", "stu-1")
	require.NoError(t, err)
	require.Equal(t, "subm-1", got)

	_, err = e.mgr.GetSubmissionKey(ctx, "unit-1", "stu-2")
	require.ErrorIs(t, err, review.ErrNotFound)

	// Same reviewee in a different unit is a different registration.
	_, err = e.mgr.GetSubmissionKey(ctx, "unit-2", "stu-1")
	require.ErrorIs(t, err, review.ErrNotFound)
}

func TestGetSubmissionKey_DuplicateReviewee(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	e := newTestEngine(t)

	// Two submissions registered for the same reviewee in one unit violate
	// the uniqueness the lookup depends on.
	_, err := e.mgr.StartReviewProcess(ctx, "unit-1", "subm-1", "stu-1")
	require.NoError(t, err)
	_, err = e.mgr.StartReviewProcess(ctx, "unit-1", "subm-2", "stu-1")
	require.NoError(t, err)

	_, err = e.mgr.GetSubmissionKey(ctx, "unit-1", "stu-1")
	require.ErrorIs(t, err, review.ErrConstraint)
}

func TestGetSubmissionAndReviewKeys(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	e := newTestEngine(t)

	_, err := e.mgr.StartReviewProcess(ctx, "unit-1", "subm-1", "stu-1")
	require.NoError(t, err)
	_, err = e.mgr.StartReviewProcess(ctx, "unit-1", "subm-2", "stu-2")
	require.NoError(t, err)

	step1, err := e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-1")
	require.NoError(t, err)
	step2, err := e.mgr.AddReviewer(ctx, "unit-1", "subm-1", "stu-1", "rev-2")
	require.NoError(t, err)
	_, err = e.mgr.AddReviewer(ctx, "unit-1", "subm-2", "stu-2", "rev-1")
	require.NoError(t, err)

	// Removed steps remain visible to the reviewee as well.
	require.NoError(t, e.mgr.DeleteReviewer(ctx, step2))

	subm, stepKeys, err := e.mgr.GetSubmissionAndReviewKeys(ctx, "unit-1", "stu-1")
	require.NoError(t, err)
	require.Equal(t, "subm-1", subm)
	require.ElementsMatch(t, []string{step1, step2}, stepKeys)
}

func TestGetSubmissionAndReviewKeys_Missing(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	_, _, err := e.mgr.GetSubmissionAndReviewKeys(t.Context(), "unit-1", "stu-1")
	require.ErrorIs(t, err, review.ErrNotFound)
}

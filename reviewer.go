package review

import (
	"context"
	"fmt"
	"time"

	"github.com/coursekit/review/internal/keys"
	"github.com/coursekit/review/types"
)

// AddReviewer assigns a reviewer to a submission by an explicit human
// action.
//
// The operation is a state-aware upsert of the ReviewStep identified by the
// (unit, submission, reviewee, reviewer) tuple, committed together with the
// owning summary's counts:
//   - No step exists: a new step is created in the assigned state.
//   - A non-removed step exists in assigned or completed state: fails with
//     ErrTransition (no double-assign, no reopening a finished review).
//   - A non-removed expired step exists: it is reactivated to assigned.
//   - A removed step exists: it is unremoved; an expired one is reactivated
//     to assigned, any other has its prior state's count restored.
//
// Every path that touches the step forces its assigner kind to human, which
// shields it from the automatic expiry sweep. The owning summary must
// already exist (StartReviewProcess is a precondition); its key is derived
// from the tuple rather than queried.
//
// Returns the step's key, which is stable across removal and re-addition.
func (m *Manager) AddReviewer(ctx context.Context, unitID, submissionKey, revieweeKey, reviewerKey string) (string, error) {
	m.metrics.RecordOpStart(types.OpAddReviewer)

	ctx, cancel := m.opContext(ctx)
	defer cancel()

	stepKey := keys.StepKey(unitID, submissionKey, revieweeKey, reviewerKey)
	sumKey := keys.SummaryKey(unitID, submissionKey, revieweeKey)

	branch, err := m.addReviewer(ctx, unitID, submissionKey, revieweeKey, reviewerKey, stepKey, sumKey)
	if err != nil {
		m.metrics.RecordOpResult(types.OpAddReviewer, resultFor(err))

		return "", err
	}

	m.metrics.RecordOpResult(types.OpAddReviewer, branch)
	m.logger.Debug("reviewer added",
		"unit_id", unitID, "step_key", stepKey, "branch", branch)

	return stepKey, nil
}

// addReviewer performs the upsert and returns the branch taken, for the
// per-branch counters.
func (m *Manager) addReviewer(ctx context.Context, unitID, submissionKey, revieweeKey, reviewerKey, stepKey, sumKey string) (string, error) {
	sum, sumRev, err := m.store.GetSummary(ctx, sumKey)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()

	step, stepRev, err := m.store.GetStep(ctx, stepKey)
	switch {
	case err != nil && types.IsNotFound(err):
		step = &types.ReviewStep{
			UnitID:        unitID,
			SubmissionKey: submissionKey,
			RevieweeKey:   revieweeKey,
			ReviewerKey:   reviewerKey,
			State:         types.StateAssigned,
			Assigner:      types.AssignerHuman,
			SummaryKey:    sumKey,
			CreateDate:    now,
			ChangeDate:    now,
		}
		sum.IncrementFor(types.StateAssigned)
		sum.ChangeDate = now

		if err := m.store.CommitPair(ctx, sumKey, sum, sumRev, stepKey, step, 0); err != nil {
			return "", err
		}

		return types.ResultCreated, nil

	case err != nil:
		return "", err

	case !step.Removed:
		if step.State != types.StateExpired {
			return "", fmt.Errorf("step %s is already %s: %w", stepKey, step.State, types.ErrTransition)
		}

		step.State = types.StateAssigned
		step.Assigner = types.AssignerHuman
		step.ChangeDate = now
		sum.DecrementFor(types.StateExpired)
		sum.IncrementFor(types.StateAssigned)
		sum.ChangeDate = now

		if err := m.store.CommitPair(ctx, sumKey, sum, sumRev, stepKey, step, stepRev); err != nil {
			return "", err
		}

		return types.ResultReactivatedExpired, nil

	default: // removed
		branch := types.ResultUnremoved
		step.Removed = false
		step.Assigner = types.AssignerHuman
		step.ChangeDate = now
		if step.State == types.StateExpired {
			// Reactivate rather than restore the expired count.
			step.State = types.StateAssigned
			branch = types.ResultUnremovedExpired
		}
		sum.IncrementFor(step.State)
		sum.ChangeDate = now

		if err := m.store.CommitPair(ctx, sumKey, sum, sumRev, stepKey, step, stepRev); err != nil {
			return "", err
		}

		return branch, nil
	}
}

// DeleteReviewer soft-deletes a review step and removes its contribution
// from the owning summary's counts.
//
// The step record is never physically deleted: history is preserved for
// audit, and AddReviewer can later unremove the same step under the same
// key. Fails with ErrNotFound if the step or its summary is missing and
// with ErrRemoved if the step is already removed.
func (m *Manager) DeleteReviewer(ctx context.Context, stepKey string) error {
	m.metrics.RecordOpStart(types.OpDeleteReviewer)

	ctx, cancel := m.opContext(ctx)
	defer cancel()

	err := m.deleteReviewer(ctx, stepKey)
	m.metrics.RecordOpResult(types.OpDeleteReviewer, resultFor(err))

	return err
}

func (m *Manager) deleteReviewer(ctx context.Context, stepKey string) error {
	step, stepRev, sum, sumRev, err := m.loadStepAndSummary(ctx, stepKey)
	if err != nil {
		return err
	}
	if step.Removed {
		return fmt.Errorf("step %s: %w", stepKey, types.ErrRemoved)
	}

	now := time.Now().UTC()
	step.Removed = true
	step.ChangeDate = now
	sum.DecrementFor(step.State)
	sum.ChangeDate = now

	if err := m.store.CommitPair(ctx, step.SummaryKey, sum, sumRev, stepKey, step, stepRev); err != nil {
		return err
	}

	m.logger.Debug("reviewer removed", "step_key", stepKey, "state", step.State)

	return nil
}

package review

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/coursekit/review/internal/keys"
	"github.com/coursekit/review/types"
)

// CompleteReview records a submitted review: it attaches the review content
// key to the step, moves the step to the completed state, and shifts the
// owning summary's count from assigned to completed in the same commit.
//
// Fails with ErrRemoved on a removed step and with ErrTransition unless the
// step is currently assigned: a completed review stays completed, and an
// expired assignment must be reactivated through AddReviewer or GetNewReview
// before it can complete.
func (m *Manager) CompleteReview(ctx context.Context, stepKey, reviewKey string) error {
	m.metrics.RecordOpStart(types.OpCompleteReview)

	ctx, cancel := m.opContext(ctx)
	defer cancel()

	err := m.completeReview(ctx, stepKey, reviewKey)
	m.metrics.RecordOpResult(types.OpCompleteReview, resultFor(err))

	return err
}

func (m *Manager) completeReview(ctx context.Context, stepKey, reviewKey string) error {
	step, stepRev, sum, sumRev, err := m.loadStepAndSummary(ctx, stepKey)
	if err != nil {
		return err
	}
	if step.Removed {
		return fmt.Errorf("step %s: %w", stepKey, types.ErrRemoved)
	}
	if step.State != types.StateAssigned {
		return fmt.Errorf("step %s is %s, not assigned: %w", stepKey, step.State, types.ErrTransition)
	}

	now := time.Now().UTC()
	step.State = types.StateCompleted
	step.ReviewKey = reviewKey
	step.ChangeDate = now
	sum.DecrementFor(types.StateAssigned)
	sum.IncrementFor(types.StateCompleted)
	sum.ChangeDate = now

	if err := m.store.CommitPair(ctx, step.SummaryKey, sum, sumRev, stepKey, step, stepRev); err != nil {
		return err
	}

	m.logger.Debug("review completed", "step_key", stepKey, "review_key", reviewKey)

	return nil
}

// ExpireReview moves a single assigned step to the expired state and shifts
// the owning summary's count from assigned to expired.
//
// Fails with ErrRemoved on a removed step and with ErrTransition if the step
// is already completed or expired; expiry is terminal for this operation.
func (m *Manager) ExpireReview(ctx context.Context, stepKey string) error {
	m.metrics.RecordOpStart(types.OpExpireReview)

	ctx, cancel := m.opContext(ctx)
	defer cancel()

	err := m.expireReview(ctx, stepKey)
	m.metrics.RecordOpResult(types.OpExpireReview, resultFor(err))

	return err
}

func (m *Manager) expireReview(ctx context.Context, stepKey string) error {
	step, stepRev, sum, sumRev, err := m.loadStepAndSummary(ctx, stepKey)
	if err != nil {
		return err
	}
	if step.Removed {
		return fmt.Errorf("step %s: %w", stepKey, types.ErrRemoved)
	}
	if step.State != types.StateAssigned {
		return fmt.Errorf("step %s is already %s: %w", stepKey, step.State, types.ErrTransition)
	}

	now := time.Now().UTC()
	step.State = types.StateExpired
	step.ChangeDate = now
	sum.DecrementFor(types.StateAssigned)
	sum.IncrementFor(types.StateExpired)
	sum.ChangeDate = now

	if err := m.store.CommitPair(ctx, step.SummaryKey, sum, sumRev, stepKey, step, stepRev); err != nil {
		return err
	}

	m.logger.Debug("review expired", "step_key", stepKey)

	return nil
}

// ExpireOldReviews reclaims stale automatic assignments for a unit.
//
// It selects every non-removed, assigned, auto-assigned step of the unit
// whose last change is older than now minus reviewWindow, oldest first, and
// expires each independently. Human-assigned steps are never reclaimed: a
// human explicitly vouching for a reviewer's commitment is not silently
// revoked.
//
// Per-item failures (the step changed concurrently, or a transient store
// error) are counted and skipped; they never abort the sweep. Callers
// re-invoke the sweep on their own cadence; there is no internal backoff or
// re-queueing.
//
// Unlike the single-record operations, the sweep as a whole runs under the
// caller's context unmodified: its duration scales with the unit's step
// count, so Config.OperationTimeout bounds each inner expiry rather than the
// sweep. Batch callers bring their own deadline.
//
// Returns the keys of the steps expired and the keys skipped.
func (m *Manager) ExpireOldReviews(ctx context.Context, reviewWindow time.Duration, unitID string, now time.Time) ([]string, []string, error) {
	m.metrics.RecordOpStart(types.OpExpireOldReviews)

	stepKeys, err := m.store.StepKeys(ctx, keys.StepFilter(unitID))
	if err != nil {
		m.metrics.RecordOpResult(types.OpExpireOldReviews, resultFor(err))

		return nil, nil, err
	}

	cutoff := now.Add(-reviewWindow)

	type candidate struct {
		key        string
		changeDate time.Time
	}

	var (
		candidates []candidate
		skipped    []string
	)
	for _, stepKey := range stepKeys {
		step, _, err := m.store.GetStep(ctx, stepKey)
		if err != nil {
			m.logger.Warn("expiry sweep could not read step, skipping",
				"step_key", stepKey, "error", err)
			skipped = append(skipped, stepKey)

			continue
		}
		if step.Removed || step.State != types.StateAssigned || step.Assigner != types.AssignerAuto {
			continue
		}
		if !step.ChangeDate.Before(cutoff) {
			continue
		}
		candidates = append(candidates, candidate{key: stepKey, changeDate: step.ChangeDate})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].changeDate.Before(candidates[j].changeDate)
	})

	var expired []string
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			m.metrics.RecordOpResult(types.OpExpireOldReviews, resultFor(err))

			return expired, skipped, err
		}

		if err := m.ExpireReview(ctx, cand.key); err != nil {
			// The step changed since selection, or the store hiccuped.
			m.logger.Warn("expiry sweep could not expire step, skipping",
				"step_key", cand.key, "error", err)
			skipped = append(skipped, cand.key)

			continue
		}
		expired = append(expired, cand.key)
	}

	m.metrics.RecordExpireSweep(len(expired), len(skipped))
	m.metrics.RecordOpResult(types.OpExpireOldReviews, types.ResultSuccess)
	if len(expired) > 0 || len(skipped) > 0 {
		m.logger.Info("expiry sweep finished",
			"unit_id", unitID, "expired", len(expired), "skipped", len(skipped))
	}

	return expired, skipped, nil
}

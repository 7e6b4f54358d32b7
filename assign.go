package review

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/coursekit/review/internal/keys"
	"github.com/coursekit/review/types"
)

// candidate is one summary row considered for automatic assignment, with the
// revision captured at fetch time for the staleness check inside the
// attempt.
type candidate struct {
	key      string
	summary  *types.ReviewSummary
	revision uint64
}

// GetNewReview finds one unit of review work for a reviewer and assigns it.
//
// Candidate summaries for the unit are ranked by least review attention:
// completed count ascending, then assigned count ascending, then creation
// date ascending. The top Config.CandidateCount rows are fetched without any
// lock, then up to Config.MaxRetries transactional attempts pick candidates
// via the configured Selector. A candidate is consumed by its attempt
// whether or not the attempt succeeds, so a failed candidate is never
// retried within one call.
//
// An attempt soft-fails, consuming a retry, when the candidate summary
// changed since the fetch (the ranking that justified picking it may no
// longer hold), when the reviewer already finished this submission, or when
// the reviewer already holds a live step for it. When the retry budget is
// spent or candidates run out, the call fails with ErrNotAssignable; under
// heavy contention this is an expected outcome of the optimistic,
// bounded-retry design, which trades a small chance of spurious failure for
// the absence of any global lock or queue.
//
// Returns the assigned step's key.
func (m *Manager) GetNewReview(ctx context.Context, unitID, reviewerKey string) (string, error) {
	m.metrics.RecordOpStart(types.OpGetNewReview)

	ctx, cancel := m.opContext(ctx)
	defer cancel()

	stepKey, err := m.getNewReview(ctx, unitID, reviewerKey)
	m.metrics.RecordOpResult(types.OpGetNewReview, resultFor(err))
	if err != nil {
		return "", err
	}

	m.logger.Debug("review assigned",
		"unit_id", unitID, "reviewer_key", reviewerKey, "step_key", stepKey)

	return stepKey, nil
}

func (m *Manager) getNewReview(ctx context.Context, unitID, reviewerKey string) (string, error) {
	candidates, err := m.fetchCandidates(ctx, unitID)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no review summaries for unit %q: %w", unitID, types.ErrNotAssignable)
	}

	for attempts := 0; attempts < m.cfg.MaxRetries && len(candidates) > 0; attempts++ {
		idx := m.selector.Choose(len(candidates))
		if idx < 0 || idx >= len(candidates) {
			return "", fmt.Errorf("%w: selector chose index %d of %d candidates",
				ErrInvalidConfig, idx, len(candidates))
		}

		cand := candidates[idx]
		// Consume the candidate regardless of outcome.
		candidates = append(candidates[:idx], candidates[idx+1:]...)

		stepKey, outcome, err := m.attemptAssign(ctx, cand, reviewerKey)
		if err != nil {
			return "", err
		}
		if outcome == types.AttemptAssigned {
			m.metrics.RecordAssignmentAttempt(types.AttemptResultAssigned)

			return stepKey, nil
		}

		m.metrics.RecordAssignmentAttempt(types.AttemptResultConflict)
	}

	return "", fmt.Errorf("candidates exhausted for unit %q: %w", unitID, types.ErrNotAssignable)
}

// fetchCandidates reads the unit's summaries without a lock, ranks them, and
// truncates to the configured candidate count.
func (m *Manager) fetchCandidates(ctx context.Context, unitID string) ([]candidate, error) {
	sumKeys, err := m.store.SummaryKeys(ctx, keys.SummaryFilter(unitID))
	if err != nil {
		return nil, err
	}

	candidates := make([]candidate, 0, len(sumKeys))
	for _, key := range sumKeys {
		sum, rev, err := m.store.GetSummary(ctx, key)
		if err != nil {
			if types.IsNotFound(err) {
				// Deleted between the listing and the read.
				continue
			}

			return nil, err
		}
		candidates = append(candidates, candidate{key: key, summary: sum, revision: rev})
	}

	// Least review attention first; among ties, least assignment pressure,
	// then oldest. The key tiebreak only makes the order total.
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i].summary, candidates[j].summary
		if a.CompletedCount != b.CompletedCount {
			return a.CompletedCount < b.CompletedCount
		}
		if a.AssignedCount != b.AssignedCount {
			return a.AssignedCount < b.AssignedCount
		}
		if !a.CreateDate.Equal(b.CreateDate) {
			return a.CreateDate.Before(b.CreateDate)
		}

		return candidates[i].key < candidates[j].key
	})

	if len(candidates) > m.cfg.CandidateCount {
		candidates = candidates[:m.cfg.CandidateCount]
	}

	return candidates, nil
}

// attemptAssign runs one transactional assignment attempt against a
// candidate summary.
//
// The summary is re-read inside the attempt: a vanished summary is a hard
// ErrNotFound (summaries are never deleted by this engine), and a revision
// differing from the captured one is a soft conflict. The step for the tuple
// is then looked up by its derived key:
//   - absent: created assigned, auto
//   - completed (removed or not): conflict; a finished review is never
//     reassigned to its reviewer
//   - removed: reactivated to assigned, auto
//   - live: conflict; the reviewer already holds this submission
//
// Creating and reactivating paths increment the summary's assigned count and
// commit both records together; losing the commit CAS is a conflict.
func (m *Manager) attemptAssign(ctx context.Context, cand candidate, reviewerKey string) (string, types.AttemptOutcome, error) {
	sum, rev, err := m.store.GetSummary(ctx, cand.key)
	if err != nil {
		return "", 0, err
	}
	if rev != cand.revision {
		return "", types.AttemptConflict, nil
	}

	stepKey := keys.StepKey(sum.UnitID, sum.SubmissionKey, sum.RevieweeKey, reviewerKey)
	now := time.Now().UTC()

	step, stepRev, err := m.store.GetStep(ctx, stepKey)
	switch {
	case err != nil && types.IsNotFound(err):
		step = &types.ReviewStep{
			UnitID:        sum.UnitID,
			SubmissionKey: sum.SubmissionKey,
			RevieweeKey:   sum.RevieweeKey,
			ReviewerKey:   reviewerKey,
			State:         types.StateAssigned,
			Assigner:      types.AssignerAuto,
			SummaryKey:    cand.key,
			CreateDate:    now,
			ChangeDate:    now,
		}
		stepRev = 0

	case err != nil:
		return "", 0, err

	case step.State == types.StateCompleted:
		return "", types.AttemptConflict, nil

	case step.Removed:
		step.Removed = false
		step.State = types.StateAssigned
		step.Assigner = types.AssignerAuto
		step.ChangeDate = now

	default:
		// Live step: already assigned to, or expired but still owned by,
		// this reviewer.
		return "", types.AttemptConflict, nil
	}

	sum.IncrementFor(types.StateAssigned)
	sum.ChangeDate = now

	if err := m.store.CommitPair(ctx, cand.key, sum, rev, stepKey, step, stepRev); err != nil {
		if errors.Is(err, types.ErrConflict) {
			return "", types.AttemptConflict, nil
		}

		return "", 0, err
	}

	return stepKey, types.AttemptAssigned, nil
}

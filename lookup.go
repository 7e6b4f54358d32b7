package review

import (
	"context"
	"fmt"

	"github.com/coursekit/review/internal/keys"
	"github.com/coursekit/review/types"
)

// GetReviewKeys returns the keys of every review step a reviewer holds in a
// unit, including removed ones. Used to render a reviewer's personal work
// list.
//
// The lookup is keys-only: the reviewer is matched against the key's
// reviewer token without reading any record values.
func (m *Manager) GetReviewKeys(ctx context.Context, unitID, reviewerKey string) ([]string, error) {
	m.metrics.RecordOpStart(types.OpGetReviewKeys)

	ctx, cancel := m.opContext(ctx)
	defer cancel()

	stepKeys, err := m.store.StepKeys(ctx, keys.StepFilter(unitID))
	if err != nil {
		m.metrics.RecordOpResult(types.OpGetReviewKeys, resultFor(err))

		return nil, err
	}

	reviewerToken := keys.Token(reviewerKey)
	var matched []string
	for _, stepKey := range stepKeys {
		tokens := keys.Tokens(stepKey)
		if tokens[len(tokens)-1] == reviewerToken {
			matched = append(matched, stepKey)
		}
	}

	m.metrics.RecordOpResult(types.OpGetReviewKeys, types.ResultSuccess)

	return matched, nil
}

// GetSubmissionKey returns the submission key of a reviewee's work in a
// unit.
//
// At most one summary may exist per (unit, reviewee) pair; finding more than
// one fails with ErrConstraint. The registration invariant makes this
// structurally impossible, but nothing enforces it across concurrent
// registrations of different submissions for the same reviewee, so the
// defensive check stays. Fails with ErrNotFound when no summary matches.
func (m *Manager) GetSubmissionKey(ctx context.Context, unitID, revieweeKey string) (string, error) {
	m.metrics.RecordOpStart(types.OpGetSubmissionKey)

	ctx, cancel := m.opContext(ctx)
	defer cancel()

	submissionKey, err := m.resolveSubmission(ctx, unitID, revieweeKey)
	m.metrics.RecordOpResult(types.OpGetSubmissionKey, resultFor(err))

	return submissionKey, err
}

func (m *Manager) resolveSubmission(ctx context.Context, unitID, revieweeKey string) (string, error) {
	sumKeys, err := m.store.SummaryKeys(ctx, keys.SummaryFilter(unitID))
	if err != nil {
		return "", err
	}

	revieweeToken := keys.Token(revieweeKey)
	var matched []string
	for _, sumKey := range sumKeys {
		tokens := keys.Tokens(sumKey)
		if tokens[len(tokens)-1] == revieweeToken {
			matched = append(matched, sumKey)
		}
	}

	switch len(matched) {
	case 0:
		return "", fmt.Errorf("no summary for unit %q reviewee %q: %w",
			unitID, revieweeKey, types.ErrNotFound)
	case 1:
	default:
		return "", fmt.Errorf("%d summaries for unit %q reviewee %q: %w",
			len(matched), unitID, revieweeKey, types.ErrConstraint)
	}

	sum, _, err := m.store.GetSummary(ctx, matched[0])
	if err != nil {
		return "", err
	}

	return sum.SubmissionKey, nil
}

// GetSubmissionAndReviewKeys resolves a reviewee's submission in a unit and
// returns it together with the keys of every review step of that
// submission, across all reviewers and including removed steps.
func (m *Manager) GetSubmissionAndReviewKeys(ctx context.Context, unitID, revieweeKey string) (string, []string, error) {
	m.metrics.RecordOpStart(types.OpGetSubmissionAndKeys)

	ctx, cancel := m.opContext(ctx)
	defer cancel()

	submissionKey, err := m.resolveSubmission(ctx, unitID, revieweeKey)
	if err != nil {
		m.metrics.RecordOpResult(types.OpGetSubmissionAndKeys, resultFor(err))

		return "", nil, err
	}

	stepKeys, err := m.store.StepKeys(ctx, keys.SubmissionStepFilter(unitID, submissionKey, revieweeKey))
	if err != nil {
		m.metrics.RecordOpResult(types.OpGetSubmissionAndKeys, resultFor(err))

		return "", nil, err
	}

	m.metrics.RecordOpResult(types.OpGetSubmissionAndKeys, types.ResultSuccess)

	return submissionKey, stepKeys, nil
}

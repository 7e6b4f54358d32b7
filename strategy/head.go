package strategy

import "github.com/coursekit/review/types"

// Head always selects the first (best-ranked) remaining candidate.
//
// Deterministic; useful in tests that need to predict which candidate an
// assignment attempt targets. Not recommended in production, where it
// concentrates concurrent writers on a single summary row.
type Head struct{}

var _ types.Selector = (*Head)(nil)

// NewHead creates a new head-of-list selector.
func NewHead() *Head {
	return &Head{}
}

// Choose returns 0.
func (*Head) Choose(int) int {
	return 0
}

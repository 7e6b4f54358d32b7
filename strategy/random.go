package strategy

import (
	"math/rand/v2"

	"github.com/coursekit/review/types"
)

// Random selects a candidate uniformly at random.
//
// The uniform pick, rather than a deterministic head-of-list pick, is
// deliberate: it spreads concurrent reviewers' transactional writes across
// multiple candidate summaries instead of funneling every caller onto the
// single best-ranked row, which would serialize them on one CAS.
type Random struct{}

var _ types.Selector = (*Random)(nil)

// NewRandom creates a new uniform random selector.
func NewRandom() *Random {
	return &Random{}
}

// Choose returns a uniformly random index in [0, n).
func (*Random) Choose(n int) int {
	return rand.IntN(n)
}

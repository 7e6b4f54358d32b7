// Package strategy provides candidate selectors for automatic review
// assignment.
//
// GetNewReview ranks candidate summaries by least review attention and then
// asks a Selector to pick one of the remaining candidates per attempt. The
// production Random selector spreads concurrent callers' writes across the
// top-ranked rows; the Head selector is deterministic and intended for
// tests.
package strategy

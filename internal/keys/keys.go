// Package keys derives durable store keys from review identity tuples.
//
// A ReviewSummary's key is a pure function of (unit, submission, reviewee)
// and a ReviewStep's key of (unit, submission, reviewee, reviewer), so both
// AddReviewer and the automatic assignment path can look up "the" record for
// a tuple without running a query. Keys are NATS KV subject keys: one token
// per tuple component, joined with ".".
//
// Caller-supplied identifiers are opaque and may contain characters that are
// not valid in a subject token, so each component is escaped before joining.
// The escaping is injective: distinct tuples always produce distinct keys.
package keys

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

// maxTokenLen bounds the escaped length of a single key token. Components
// whose escaped form would exceed it are replaced by a fixed-width xxh3
// digest so derived keys stay within NATS subject limits.
const maxTokenLen = 128

// SummaryKey returns the ReviewSummary key for a (unit, submission, reviewee)
// triple.
func SummaryKey(unitID, submissionKey, revieweeKey string) string {
	return escape(unitID) + "." + escape(submissionKey) + "." + escape(revieweeKey)
}

// StepKey returns the ReviewStep key for a (unit, submission, reviewee,
// reviewer) tuple.
func StepKey(unitID, submissionKey, revieweeKey, reviewerKey string) string {
	return SummaryKey(unitID, submissionKey, revieweeKey) + "." + escape(reviewerKey)
}

// SummaryFilter returns the subject filter matching every summary key of a
// unit.
func SummaryFilter(unitID string) string {
	return escape(unitID) + ".*.*"
}

// StepFilter returns the subject filter matching every step key of a unit.
func StepFilter(unitID string) string {
	return escape(unitID) + ".*.*.*"
}

// SubmissionStepFilter returns the subject filter matching every step key of
// one (unit, submission, reviewee) triple, across all reviewers.
func SubmissionStepFilter(unitID, submissionKey, revieweeKey string) string {
	return SummaryKey(unitID, submissionKey, revieweeKey) + ".*"
}

// Token returns the escaped token form of a single component. Used to match
// key tokens against a caller-supplied identifier without decoding.
func Token(component string) string {
	return escape(component)
}

// Tokens splits a derived key into its escaped component tokens. Escaped
// tokens never contain the separator, so a plain split is exact.
func Tokens(key string) []string {
	return strings.Split(key, ".")
}

// escape maps an arbitrary component to a single valid subject token.
//
// Bytes in [A-Za-z0-9_-] pass through; every other byte becomes "=" followed
// by two lowercase hex digits. The empty component maps to a lone "=".
// Components whose escaped form would be oversized map to "=x" plus the
// 32-digit hex of their 128-bit xxh3 hash; "x" is not a hex digit, so hashed
// tokens cannot collide with escaped ones.
func escape(component string) string {
	if component == "" {
		return "="
	}

	var b strings.Builder
	b.Grow(len(component))
	for i := 0; i < len(component); i++ {
		c := component[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "=%02x", c)
		}
	}

	escaped := b.String()
	if len(escaped) > maxTokenLen {
		h := xxh3.Hash128([]byte(component))
		return fmt.Sprintf("=x%016x%016x", h.Hi, h.Lo)
	}

	return escaped
}

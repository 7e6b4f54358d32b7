// Package store persists review records in NATS JetStream key-value buckets.
//
// Two buckets hold the engine's records: one for ReviewSummary rows and one
// for ReviewStep rows. KV revisions provide the optimistic-concurrency
// primitive: Create is insert-if-absent and Update is a compare-and-swap
// against the revision a caller previously read.
//
// JetStream KV has no multi-key transaction, so the step+summary pair write
// serializes on the summary's revision instead: CommitPair CAS-writes the
// summary first and only then writes the step. Every step belongs to exactly
// one summary and every step mutation goes through CommitPair, so two
// concurrent mutators of the same pair cannot both win the summary CAS, and
// the loser performs no write at all. A step write rejected after a won CAS
// is compensated by restoring the summary to its prior value; the one
// remaining inconsistency window is a process crash between the summary
// commit and the step write (or its restore), which no two-bucket protocol
// can close without a transaction.
package store

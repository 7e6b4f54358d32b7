package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/coursekit/review/internal/logging"
	"github.com/coursekit/review/types"
)

// Config configures the KV buckets backing the store.
type Config struct {
	// SummaryBucket is the bucket name for ReviewSummary records.
	SummaryBucket string

	// StepBucket is the bucket name for ReviewStep records.
	StepBucket string

	// Replicas is the JetStream replica count for both buckets.
	Replicas int
}

// Store provides typed, revision-aware access to review records.
type Store struct {
	summaries jetstream.KeyValue
	steps     jetstream.KeyValue
	logger    types.Logger
}

// Open creates or opens the two KV buckets and returns a Store over them.
//
// Bucket creation retries with backoff to absorb the race of multiple
// processes bootstrapping the same buckets concurrently.
func Open(ctx context.Context, js jetstream.JetStream, cfg Config, logger types.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	replicas := cfg.Replicas
	if replicas <= 0 {
		replicas = 1
	}

	summaries, err := ensureBucket(ctx, js, jetstream.KeyValueConfig{
		Bucket:      cfg.SummaryBucket,
		Description: "peer review summaries",
		Replicas:    replicas,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open summary bucket: %w", err)
	}

	steps, err := ensureBucket(ctx, js, jetstream.KeyValueConfig{
		Bucket:      cfg.StepBucket,
		Description: "peer review steps",
		Replicas:    replicas,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open step bucket: %w", err)
	}

	return &Store{summaries: summaries, steps: steps, logger: logger}, nil
}

// New wraps already-created KV buckets. Intended for tests that manage their
// own buckets.
func New(summaries, steps jetstream.KeyValue, logger types.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Store{summaries: summaries, steps: steps, logger: logger}
}

// ensureBucket creates or opens a KV bucket, retrying transient failures.
func ensureBucket(ctx context.Context, js jetstream.JetStream, config jetstream.KeyValueConfig) (jetstream.KeyValue, error) {
	const maxAttempts = 3

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		kv, err := js.CreateKeyValue(ctx, config)
		if err == nil {
			return kv, nil
		}

		// Another process won the creation race; just open it.
		if errors.Is(err, jetstream.ErrBucketExists) {
			kv, err := js.KeyValue(ctx, config.Bucket)
			if err == nil {
				return kv, nil
			}
			lastErr = fmt.Errorf("bucket exists but failed to open: %w", err)
		} else {
			lastErr = err
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("context cancelled during bucket creation: %w", ctx.Err())
		}

		if attempt < maxAttempts-1 {
			backoff := time.Duration(1<<uint(attempt)) * 10 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("failed to create/open KV bucket %s after %d attempts: %w",
		config.Bucket, maxAttempts, lastErr)
}

// CreateSummary inserts a new summary record. Returns
// types.ErrAlreadyStarted if a summary already exists under the key; the
// Create is atomic, so two concurrent registrations cannot both succeed.
func (s *Store) CreateSummary(ctx context.Context, key string, sum *types.ReviewSummary) error {
	data, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("failed to encode summary %s: %w", key, err)
	}

	_, err = s.summaries.Create(ctx, key, data)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return fmt.Errorf("summary %s: %w", key, types.ErrAlreadyStarted)
		}

		return fmt.Errorf("failed to create summary %s: %w", key, err)
	}

	return nil
}

// GetSummary loads a summary and the revision to CAS subsequent writes
// against. Returns types.ErrNotFound for missing or deleted keys.
func (s *Store) GetSummary(ctx context.Context, key string) (*types.ReviewSummary, uint64, error) {
	entry, err := s.summaries.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, 0, fmt.Errorf("summary %s: %w", key, types.ErrNotFound)
		}

		return nil, 0, fmt.Errorf("failed to get summary %s: %w", key, err)
	}

	var sum types.ReviewSummary
	if err := json.Unmarshal(entry.Value(), &sum); err != nil {
		return nil, 0, fmt.Errorf("failed to decode summary %s: %w", key, err)
	}

	return &sum, entry.Revision(), nil
}

// GetStep loads a step and the revision to CAS subsequent writes against.
// Returns types.ErrNotFound for missing or deleted keys.
func (s *Store) GetStep(ctx context.Context, key string) (*types.ReviewStep, uint64, error) {
	entry, err := s.steps.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, 0, fmt.Errorf("step %s: %w", key, types.ErrNotFound)
		}

		return nil, 0, fmt.Errorf("failed to get step %s: %w", key, err)
	}

	var step types.ReviewStep
	if err := json.Unmarshal(entry.Value(), &step); err != nil {
		return nil, 0, fmt.Errorf("failed to decode step %s: %w", key, err)
	}

	return &step, entry.Revision(), nil
}

// SummaryKeys lists summary keys matching the subject filter, sorted
// ascending. The listing is keys-only; no record values are read.
func (s *Store) SummaryKeys(ctx context.Context, filter string) ([]string, error) {
	return listKeys(ctx, s.summaries, filter)
}

// StepKeys lists step keys matching the subject filter, sorted ascending.
// The listing is keys-only; no record values are read.
func (s *Store) StepKeys(ctx context.Context, filter string) ([]string, error) {
	return listKeys(ctx, s.steps, filter)
}

func listKeys(ctx context.Context, kv jetstream.KeyValue, filter string) ([]string, error) {
	lister, err := kv.ListKeysFiltered(ctx, filter)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list keys for %s: %w", filter, err)
	}

	var keys []string
	for key := range lister.Keys() {
		keys = append(keys, key)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Strings(keys)

	return keys, nil
}

// CommitPair atomically commits one step mutation and its summary count
// update.
//
// The summary write is a CAS against sumRev and is the commit point: losing
// it means a concurrent writer mutated the pair (or another step of the same
// summary) since the caller's read, and the whole mutation is abandoned with
// types.ErrConflict before any write lands. Only after the CAS succeeds is
// the step written; stepRev 0 means the step must not exist yet.
//
// If the step write fails after a won summary CAS, the summary is restored to
// its prior value before the error is returned, so a rejected step mutation
// cannot leave the counts skewed. The restore itself is not crash-safe; a
// process dying between the two writes still leaves the pair inconsistent
// (see the package comment).
func (s *Store) CommitPair(
	ctx context.Context,
	sumKey string, sum *types.ReviewSummary, sumRev uint64,
	stepKey string, step *types.ReviewStep, stepRev uint64,
) error {
	sumData, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("failed to encode summary %s: %w", sumKey, err)
	}
	stepData, err := json.Marshal(step)
	if err != nil {
		return fmt.Errorf("failed to encode step %s: %w", stepKey, err)
	}

	// Capture the summary's current value for the restore path. A revision
	// other than sumRev is already a lost CAS.
	prior, err := s.summaries.Get(ctx, sumKey)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return fmt.Errorf("summary %s: %w", sumKey, types.ErrNotFound)
		}

		return fmt.Errorf("failed to get summary %s: %w", sumKey, err)
	}
	if prior.Revision() != sumRev {
		return fmt.Errorf("summary %s changed concurrently: %w", sumKey, types.ErrConflict)
	}

	newRev, err := s.summaries.Update(ctx, sumKey, sumData, sumRev)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return fmt.Errorf("summary %s: %w", sumKey, types.ErrNotFound)
		}

		// Lost the CAS. No write happened; the caller re-reads and decides.
		return fmt.Errorf("summary %s changed concurrently: %w", sumKey, types.ErrConflict)
	}

	if stepRev == 0 {
		_, err = s.steps.Create(ctx, stepKey, stepData)
	} else {
		_, err = s.steps.Update(ctx, stepKey, stepData, stepRev)
	}
	if err != nil {
		// The summary committed but the step write was rejected. Undo the
		// count update so the summary stays consistent with the surviving
		// step; our newRev CAS guarantees no third writer slipped in between.
		if _, rerr := s.summaries.Update(ctx, sumKey, prior.Value(), newRev); rerr != nil {
			s.logger.Error("failed to restore summary after rejected step write",
				"step_key", stepKey, "summary_key", sumKey, "error", rerr)
		}
		if errors.Is(err, jetstream.ErrKeyExists) {
			return fmt.Errorf("step %s already exists: %w", stepKey, types.ErrConflict)
		}

		return fmt.Errorf("failed to write step %s: %w", stepKey, err)
	}

	return nil
}

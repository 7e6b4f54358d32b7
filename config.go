package review

import (
	"fmt"
	"time"
)

// KVBucketConfig configures the NATS JetStream KV bucket names backing the
// engine.
type KVBucketConfig struct {
	// SummaryBucket is the bucket name for ReviewSummary records.
	SummaryBucket string `yaml:"summaryBucket"`

	// StepBucket is the bucket name for ReviewStep records.
	StepBucket string `yaml:"stepBucket"`

	// Replicas is the JetStream replica count for both buckets.
	Replicas int `yaml:"replicas"`
}

// Config is the configuration for the Manager.
//
// All duration fields accept standard Go duration strings like "30s", "5m".
type Config struct {
	// CandidateCount is how many top-ranked summaries GetNewReview fetches
	// as assignment candidates. Larger values widen the pool the random
	// selector spreads writers over; smaller values concentrate assignments
	// on the least-reviewed submissions.
	// Recommended: 20.
	CandidateCount int `yaml:"candidateCount"`

	// MaxRetries bounds the per-call number of transactional assignment
	// attempts in GetNewReview. Once spent, the call fails with
	// ErrNotAssignable even if candidates remain.
	// Recommended: 5.
	MaxRetries int `yaml:"maxRetries"`

	// OperationTimeout bounds each store operation (get, put, list). Zero
	// disables the per-operation deadline and defers to the caller's
	// context.
	// Recommended: 10 seconds.
	OperationTimeout time.Duration `yaml:"operationTimeout"`

	// KVBuckets controls the KV bucket configuration.
	KVBuckets KVBucketConfig `yaml:"kvBuckets"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		CandidateCount:   20,
		MaxRetries:       5,
		OperationTimeout: 10 * time.Second,
		KVBuckets: KVBucketConfig{
			SummaryBucket: "review-summaries",
			StepBucket:    "review-steps",
			Replicas:      1,
		},
	}
}

// SetDefaults fills in missing configuration values with production
// defaults.
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.CandidateCount == 0 {
		cfg.CandidateCount = defaults.CandidateCount
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = defaults.OperationTimeout
	}
	if cfg.KVBuckets.SummaryBucket == "" {
		cfg.KVBuckets.SummaryBucket = defaults.KVBuckets.SummaryBucket
	}
	if cfg.KVBuckets.StepBucket == "" {
		cfg.KVBuckets.StepBucket = defaults.KVBuckets.StepBucket
	}
	if cfg.KVBuckets.Replicas == 0 {
		cfg.KVBuckets.Replicas = defaults.KVBuckets.Replicas
	}
}

// Validate checks configuration constraints and returns an error for invalid
// values.
func (cfg *Config) Validate() error {
	if cfg.CandidateCount <= 0 {
		return fmt.Errorf("CandidateCount must be > 0, got %d", cfg.CandidateCount)
	}
	if cfg.MaxRetries <= 0 {
		return fmt.Errorf("MaxRetries must be > 0, got %d", cfg.MaxRetries)
	}
	if cfg.OperationTimeout < 0 {
		return fmt.Errorf("OperationTimeout must be >= 0, got %v", cfg.OperationTimeout)
	}
	if cfg.KVBuckets.SummaryBucket == "" {
		return fmt.Errorf("SummaryBucket must not be empty")
	}
	if cfg.KVBuckets.StepBucket == "" {
		return fmt.Errorf("StepBucket must not be empty")
	}
	if cfg.KVBuckets.SummaryBucket == cfg.KVBuckets.StepBucket {
		return fmt.Errorf(
			"SummaryBucket and StepBucket must differ, both are %q",
			cfg.KVBuckets.SummaryBucket,
		)
	}

	return nil
}

// TestConfig returns a configuration optimized for fast test execution.
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.CandidateCount = 5
	cfg.MaxRetries = 3
	cfg.OperationTimeout = 5 * time.Second

	return cfg
}

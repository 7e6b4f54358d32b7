package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/coursekit/review/internal/keys"
	"github.com/coursekit/review/internal/logging"
	"github.com/coursekit/review/internal/metrics"
	"github.com/coursekit/review/store"
	"github.com/coursekit/review/strategy"
	"github.com/coursekit/review/types"
)

// Manager assigns review work and tracks the lifecycle of review steps.
//
// Manager is the main entry point of the library. It handles:
//   - Registration of submissions for peer review
//   - Manual reviewer addition and soft removal
//   - Automatic, load-balanced assignment of review work
//   - Reclamation of stale auto-assigned reviews
//   - Key lookups for reviewer work lists and reviewee submissions
//
// Thread Safety:
//   - All methods are safe for concurrent use
//   - Manager holds no in-process coordination state; conflicting writers
//     are resolved by KV compare-and-swap, never by a lock
//
// Every mutating operation commits at most one ReviewStep together with its
// owning ReviewSummary; there is no cross-pair ordering guarantee.
type Manager struct {
	cfg   Config
	store *store.Store

	selector Selector
	metrics  MetricsCollector
	logger   Logger
}

// NewManager creates a Manager and bootstraps its KV buckets.
//
// Returns a concrete *Manager following the "accept interfaces, return
// structs" principle; consumers define their own narrow interfaces for
// mocking if needed.
//
// Parameters:
//   - ctx: Context bounding bucket bootstrap
//   - cfg: Configuration; missing values are defaulted in place
//   - conn: NATS connection with JetStream enabled
//   - opts: Optional dependencies (selector, metrics, logger)
//
// Example:
//
//	cfg := review.DefaultConfig()
//	mgr, err := review.NewManager(ctx, &cfg, natsConn)
func NewManager(ctx context.Context, cfg *Config, conn *nats.Conn, opts ...Option) (*Manager, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if conn == nil {
		return nil, ErrConnectionRequired
	}

	SetDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	options := &managerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	// Safe defaults for optional dependencies avoid nil checks everywhere.
	selector := options.selector
	if selector == nil {
		selector = strategy.NewRandom()
	}
	metricsCollector := options.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}
	logger := options.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}

	st, err := store.Open(ctx, js, store.Config{
		SummaryBucket: cfg.KVBuckets.SummaryBucket,
		StepBucket:    cfg.KVBuckets.StepBucket,
		Replicas:      cfg.KVBuckets.Replicas,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &Manager{
		cfg:      *cfg,
		store:    st,
		selector: selector,
		metrics:  metricsCollector,
		logger:   logger,
	}, nil
}

// NewManagerWithStore creates a Manager over an existing store. Intended for
// tests that manage their own KV buckets.
func NewManagerWithStore(cfg *Config, st *store.Store, opts ...Option) (*Manager, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if st == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}

	SetDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	options := &managerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	selector := options.selector
	if selector == nil {
		selector = strategy.NewRandom()
	}
	metricsCollector := options.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}
	logger := options.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Manager{
		cfg:      *cfg,
		store:    st,
		selector: selector,
		metrics:  metricsCollector,
		logger:   logger,
	}, nil
}

// StartReviewProcess registers a submission for peer review by creating its
// ReviewSummary with all counts zero.
//
// The create is atomic in the store, so two concurrent registrations of the
// same (unit, submission, reviewee) triple cannot both succeed; the loser
// fails with ErrAlreadyStarted.
//
// Returns the new summary's key.
func (m *Manager) StartReviewProcess(ctx context.Context, unitID, submissionKey, revieweeKey string) (string, error) {
	m.metrics.RecordOpStart(types.OpStartReviewProcess)

	ctx, cancel := m.opContext(ctx)
	defer cancel()

	sumKey := keys.SummaryKey(unitID, submissionKey, revieweeKey)
	now := time.Now().UTC()
	sum := &types.ReviewSummary{
		UnitID:        unitID,
		SubmissionKey: submissionKey,
		RevieweeKey:   revieweeKey,
		CreateDate:    now,
		ChangeDate:    now,
	}

	if err := m.store.CreateSummary(ctx, sumKey, sum); err != nil {
		m.metrics.RecordOpResult(types.OpStartReviewProcess, resultFor(err))

		return "", err
	}

	m.metrics.RecordOpResult(types.OpStartReviewProcess, types.ResultSuccess)
	m.logger.Debug("review process started",
		"unit_id", unitID, "summary_key", sumKey)

	return sumKey, nil
}

// loadStepAndSummary loads a step and its owning summary for a pair commit.
//
// The step is read once to locate the summary and again after the summary
// read, and the second copy is the one returned. Step mutations commit only
// through the owning summary's CAS, so with this ordering any concurrent
// pair-commit landing after the summary read bumps the summary revision and
// fails this caller's commit; a step copy staler than the summary revision
// can never reach CommitPair.
func (m *Manager) loadStepAndSummary(ctx context.Context, stepKey string) (*types.ReviewStep, uint64, *types.ReviewSummary, uint64, error) {
	step, _, err := m.store.GetStep(ctx, stepKey)
	if err != nil {
		return nil, 0, nil, 0, err
	}

	sum, sumRev, err := m.store.GetSummary(ctx, step.SummaryKey)
	if err != nil {
		return nil, 0, nil, 0, err
	}

	step, stepRev, err := m.store.GetStep(ctx, stepKey)
	if err != nil {
		return nil, 0, nil, 0, err
	}

	return step, stepRev, sum, sumRev, nil
}

// opContext applies the configured per-operation timeout, if any.
func (m *Manager) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.OperationTimeout > 0 {
		return context.WithTimeout(ctx, m.cfg.OperationTimeout)
	}

	return context.WithCancel(ctx)
}

// resultFor maps an error to its metric result label.
func resultFor(err error) string {
	switch {
	case err == nil:
		return types.ResultSuccess
	case errors.Is(err, types.ErrNotFound):
		return types.ResultNotFound
	case errors.Is(err, types.ErrRemoved):
		return types.ResultRemoved
	case errors.Is(err, types.ErrTransition):
		return types.ResultTransition
	case errors.Is(err, types.ErrAlreadyStarted):
		return types.ResultAlreadyStarted
	case errors.Is(err, types.ErrNotAssignable):
		return types.ResultNotAssignable
	case errors.Is(err, types.ErrConstraint):
		return types.ResultConstraint
	case errors.Is(err, types.ErrConflict):
		return types.ResultConflict
	default:
		return types.ResultError
	}
}

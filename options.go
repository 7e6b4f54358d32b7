package review

// Option configures a Manager with optional dependencies.
type Option func(*managerOptions)

// managerOptions holds optional Manager configuration.
type managerOptions struct {
	selector Selector
	metrics  MetricsCollector
	logger   Logger
}

// WithSelector sets a custom candidate selector.
//
// The default selector picks candidates uniformly at random to spread
// concurrent callers' writes. Tests typically substitute strategy.NewHead()
// for deterministic candidate order.
//
// Example:
//
//	mgr, err := review.NewManager(ctx, &cfg, nc, review.WithSelector(strategy.NewHead()))
func WithSelector(selector Selector) Option {
	return func(o *managerOptions) {
		o.selector = selector
	}
}

// WithMetrics sets a metrics collector.
//
// Example:
//
//	collector := metrics.NewPrometheus(nil, "review")
//	mgr, err := review.NewManager(ctx, &cfg, nc, review.WithMetrics(collector))
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *managerOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
//
// Example:
//
//	logger := logging.NewSlog(slog.Default())
//	mgr, err := review.NewManager(ctx, &cfg, nc, review.WithLogger(logger))
func WithLogger(logger Logger) Option {
	return func(o *managerOptions) {
		o.logger = logger
	}
}

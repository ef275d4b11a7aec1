package bitsetcache

import (
	"log/slog"
	"runtime"

	"github.com/hupe1980/bitsetcache/filter"
	"github.com/hupe1980/bitsetcache/resource"
)

// DefaultName is the cache name used when none is configured.
const DefaultName = "default"

// Config holds the settings of a Cache.
type Config struct {
	// Name identifies the cache in logs and metrics.
	Name string

	// LoadEagerly enables Warm. When false, bitsets are only computed on lookup.
	LoadEagerly bool

	// WarmConcurrency bounds the parallel computations of a single Warm call.
	// If <= 0, runtime.GOMAXPROCS(0) is used.
	WarmConcurrency int

	// MemoryLimitBytes bounds the bytes retained by cached bitsets.
	// If 0, memory is only accounted. Bitsets refused by the limit are still
	// returned to the caller but not cached.
	MemoryLimitBytes int64

	// IOLimitBytesPerSec throttles Warm. If 0, unlimited.
	IOLimitBytesPerSec int64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Name:            DefaultName,
		LoadEagerly:     true,
		WarmConcurrency: runtime.GOMAXPROCS(0),
	}
}

type options struct {
	cfg         Config
	logger      *Logger
	metrics     MetricsObserver
	rc          *resource.Controller
	warmFilters []filter.Filter
}

// Option configures a Cache.
type Option func(*options)

// WithConfig replaces the configuration. Zero values fall back to defaults
// except LoadEagerly.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithName sets the cache name.
func WithName(name string) Option {
	return func(o *options) {
		o.cfg.Name = name
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := bitsetcache.NewJSONLogger(slog.LevelDebug)
//	c := bitsetcache.New(bitsetcache.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsObserver configures an observer for cache events.
// Pass nil to disable metrics.
//
// Example with BasicMetricsObserver:
//
//	metrics := &bitsetcache.BasicMetricsObserver{}
//	c := bitsetcache.New(bitsetcache.WithMetricsObserver(metrics))
//	// ... use c ...
//	fmt.Printf("Hits: %d\n", metrics.GetStats().Hits)
func WithMetricsObserver(m MetricsObserver) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithResourceController shares a resource controller between caches, e.g.
// to enforce one memory budget per node. It takes precedence over
// MemoryLimitBytes and IOLimitBytesPerSec.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithMemoryLimit sets the memory limit for cached bitsets.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.cfg.MemoryLimitBytes = bytes
	}
}

// WithWarmFilters registers the filters Warm precomputes for new segments.
func WithWarmFilters(filters ...filter.Filter) Option {
	return func(o *options) {
		for _, f := range filters {
			if f != nil {
				o.warmFilters = append(o.warmFilters, f)
			}
		}
	}
}

// WithEagerLoading enables or disables Warm.
func WithEagerLoading(enabled bool) Option {
	return func(o *options) {
		o.cfg.LoadEagerly = enabled
	}
}

// WithWarmConcurrency bounds the parallel computations of a Warm call.
func WithWarmConcurrency(n int) Option {
	return func(o *options) {
		o.cfg.WarmConcurrency = n
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		cfg:     DefaultConfig(),
		logger:  NoopLogger(),
		metrics: NoopMetricsObserver{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	if o.cfg.Name == "" {
		o.cfg.Name = DefaultName
	}
	if o.cfg.WarmConcurrency <= 0 {
		o.cfg.WarmConcurrency = runtime.GOMAXPROCS(0)
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metrics == nil {
		o.metrics = NoopMetricsObserver{}
	}
	if o.rc == nil {
		o.rc = resource.NewController(resource.Config{
			MemoryLimitBytes:   o.cfg.MemoryLimitBytes,
			MaxWarmers:         int64(o.cfg.WarmConcurrency),
			IOLimitBytesPerSec: o.cfg.IOLimitBytesPerSec,
		})
	}
	return o
}

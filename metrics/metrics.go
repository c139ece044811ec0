// Package metrics exports resolver events as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/megayours/tma-session/auth"
	"github.com/megayours/tma-session/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collector.
type Config struct {
	// Namespace is the metrics namespace (default: "tma_session").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for validation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collector.
type Option func(*Config)

func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the registry the metrics are registered with.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "tma_session",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector implements auth.Recorder on Prometheus metrics.
type Collector struct {
	passesTotal        *prometheus.CounterVec
	cacheHitsTotal     *prometheus.CounterVec
	validationsTotal   *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
	logoutsTotal       prometheus.Counter
}

var _ auth.Recorder = (*Collector)(nil)

// New registers the metrics and returns the collector. Registering twice
// with the same registry panics, as promauto does.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		passesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "passes_total",
			Help:        "Total number of resolution passes by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		cacheHitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cache_hits_total",
			Help:        "Total number of passes served from the cached session",
			ConstLabels: config.ConstLabels,
		}, []string{"provider"}),

		validationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "validations_total",
			Help:        "Total number of backend validations by provider and result",
			ConstLabels: config.ConstLabels,
		}, []string{"provider", "result"}),

		validationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "validation_duration_seconds",
			Help:        "Backend validation duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"provider"}),

		logoutsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "logouts_total",
			Help:        "Total number of logouts",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (c *Collector) PassCompleted(outcome string) {
	c.passesTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) CacheHit(p session.Provider) {
	c.cacheHitsTotal.WithLabelValues(p.String()).Inc()
}

func (c *Collector) Validation(p session.Provider, result string, elapsed time.Duration) {
	c.validationsTotal.WithLabelValues(p.String(), result).Inc()
	c.validationDuration.WithLabelValues(p.String()).Observe(elapsed.Seconds())
}

func (c *Collector) Logout() {
	c.logoutsTotal.Inc()
}

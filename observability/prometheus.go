package observability

import (
	"time"

	"github.com/hupe1980/bitsetcache"
	"github.com/hupe1980/bitsetcache/filter"
	"github.com/hupe1980/bitsetcache/model"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "bitsetcache"
	subsystem = "filter_cache"
)

var _ bitsetcache.MetricsObserver = (*PrometheusObserver)(nil)

// PrometheusObserver implements bitsetcache.MetricsObserver.
// Filters are not used as labels; their number is unbounded.
type PrometheusObserver struct {
	hits         prometheus.Counter
	misses       prometheus.Counter
	loads        *prometheus.CounterVec
	loadDuration prometheus.Histogram
	entries      prometheus.Gauge
	bytes        prometheus.Gauge
	removals     *prometheus.CounterVec
	evictions    *prometheus.CounterVec
}

// NewPrometheusObserver creates the metrics of one cache and registers them
// with reg. name becomes the "cache" constant label.
func NewPrometheusObserver(reg prometheus.Registerer, name string) (*PrometheusObserver, error) {
	labels := prometheus.Labels{"cache": name}

	o := &PrometheusObserver{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "hits_total",
			ConstLabels: labels,
			Help:        "Total number of lookups served by a cached or in-flight bitset",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "misses_total",
			ConstLabels: labels,
			Help:        "Total number of lookups that computed the bitset",
		}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "loads_total",
			ConstLabels: labels,
			Help:        "Total number of bitset computations",
		}, []string{"status"}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "load_duration_seconds",
			ConstLabels: labels,
			Help:        "Latency of bitset computations",
			Buckets:     prometheus.DefBuckets,
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "entries",
			ConstLabels: labels,
			Help:        "Current number of cached bitsets",
		}),
		bytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "size_bytes",
			ConstLabels: labels,
			Help:        "Current retained size of cached bitsets in bytes",
		}),
		removals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "removals_total",
			ConstLabels: labels,
			Help:        "Total number of cached bitsets removed",
		}, []string{"reason"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "segment_evictions_total",
			ConstLabels: labels,
			Help:        "Total number of segments whose bitsets were dropped",
		}, []string{"reason"}),
	}

	for _, c := range []prometheus.Collector{
		o.hits, o.misses, o.loads, o.loadDuration, o.entries, o.bytes, o.removals, o.evictions,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// OnHit implements bitsetcache.MetricsObserver.
func (o *PrometheusObserver) OnHit(filter.Key) {
	o.hits.Inc()
}

// OnMiss implements bitsetcache.MetricsObserver.
func (o *PrometheusObserver) OnMiss(filter.Key) {
	o.misses.Inc()
}

// OnLoad implements bitsetcache.MetricsObserver.
func (o *PrometheusObserver) OnLoad(_ filter.Key, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	o.loads.WithLabelValues(status).Inc()
	o.loadDuration.Observe(duration.Seconds())
}

// OnCache implements bitsetcache.MetricsObserver.
func (o *PrometheusObserver) OnCache(_ model.SegmentID, _ filter.Key, bytes int64) {
	o.entries.Inc()
	o.bytes.Add(float64(bytes))
}

// OnRemoval implements bitsetcache.MetricsObserver.
func (o *PrometheusObserver) OnRemoval(_ model.SegmentID, _ filter.Key, bytes int64, reason string) {
	o.entries.Dec()
	o.bytes.Sub(float64(bytes))
	o.removals.WithLabelValues(reason).Inc()
}

// OnEvict implements bitsetcache.MetricsObserver.
func (o *PrometheusObserver) OnEvict(_ model.SegmentID, reason string) {
	o.evictions.WithLabelValues(reason).Inc()
}

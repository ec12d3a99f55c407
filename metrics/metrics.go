// Package metrics exports tree mutation metrics to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "treepath"

// Result label values
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Recorder records tree repository mutations. It satisfies
// repository.Recorder.
type Recorder struct {
	mutations   *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	rewritten   prometheus.Histogram
	cacheEvents *prometheus.CounterVec
}

// NewRecorder registers the tree metrics with reg. Pass
// prometheus.DefaultRegisterer to expose them on the default handler.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Total tree mutations by operation and result",
		}, []string{"op", "result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mutation_duration_seconds",
			Help:      "Time to apply a tree mutation, including the commit",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 1},
		}, []string{"op"}),
		rewritten: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "descendants_rewritten",
			Help:      "Descendant paths rewritten by a single move",
			Buckets:   []float64{0, 1, 10, 100, 1000, 10000},
		}),
		cacheEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Tree cache lookups and invalidations by event",
		}, []string{"event"}),
	}
}

// ObserveMutation records one completed mutation
func (r *Recorder) ObserveMutation(op string, rewritten int, elapsed time.Duration, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	r.mutations.WithLabelValues(op, result).Inc()
	r.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	if err == nil && rewritten > 0 {
		r.rewritten.Observe(float64(rewritten))
	}
}

// CacheHit counts a cache lookup that found an entry
func (r *Recorder) CacheHit() {
	r.cacheEvents.WithLabelValues("hit").Inc()
}

// CacheMiss counts a cache lookup that found nothing
func (r *Recorder) CacheMiss() {
	r.cacheEvents.WithLabelValues("miss").Inc()
}

// CacheInvalidated counts a cache flush after a write
func (r *Recorder) CacheInvalidated() {
	r.cacheEvents.WithLabelValues("invalidate").Inc()
}

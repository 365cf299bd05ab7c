// Package metrics exposes Prometheus instrumentation for the evaluation
// pipeline. The Collector satisfies the llm.Metrics interface so gateway
// middleware can record without importing Prometheus types directly.
package metrics

import (
	"net/http"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector registers and serves Prometheus metrics. Counter and histogram
// vectors are created lazily on first use; a metric's label set is fixed by
// the tags of its first observation.
type Collector struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec

	jobsTotal    *prometheus.CounterVec
	unitsTotal   *prometheus.CounterVec
	unitDuration *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry:   registry,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		jobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evalproc_jobs_total",
				Help: "Total number of evaluation jobs by terminal status",
			},
			[]string{"status"},
		),
		unitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evalproc_units_total",
				Help: "Total number of evaluation units by outcome",
			},
			[]string{"status", "provider"},
		),
		unitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evalproc_unit_duration_seconds",
				Help:    "Evaluation unit duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider"},
		),
	}
	registry.MustRegister(c.jobsTotal, c.unitsTotal, c.unitDuration)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// JobFinished records a job reaching a terminal status.
func (c *Collector) JobFinished(status string) {
	c.jobsTotal.WithLabelValues(status).Inc()
}

// UnitEvaluated records one evaluation unit outcome and its duration.
func (c *Collector) UnitEvaluated(status, provider string, seconds float64) {
	c.unitsTotal.WithLabelValues(status, provider).Inc()
	c.unitDuration.WithLabelValues(provider).Observe(seconds)
}

// IncrementCounter implements llm.Metrics.
func (c *Collector) IncrementCounter(name string, tags map[string]string, value float64) {
	labels, values := splitTags(tags)

	c.mu.Lock()
	vec, ok := c.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: name}, labels)
		if err := c.registry.Register(vec); err != nil {
			c.mu.Unlock()
			return
		}
		c.counters[name] = vec
	}
	c.mu.Unlock()

	counter, err := vec.GetMetricWithLabelValues(values...)
	if err != nil {
		return
	}
	counter.Add(value)
}

// RecordHistogram implements llm.Metrics.
func (c *Collector) RecordHistogram(name string, tags map[string]string, value float64) {
	labels, values := splitTags(tags)

	c.mu.Lock()
	vec, ok := c.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Help:    name,
			Buckets: prometheus.DefBuckets,
		}, labels)
		if err := c.registry.Register(vec); err != nil {
			c.mu.Unlock()
			return
		}
		c.histograms[name] = vec
	}
	c.mu.Unlock()

	histogram, err := vec.GetMetricWithLabelValues(values...)
	if err != nil {
		return
	}
	histogram.Observe(value)
}

// splitTags returns label names sorted for stable vector identity, with
// values in matching order.
func splitTags(tags map[string]string) (labels, values []string) {
	labels = make([]string, 0, len(tags))
	for k := range tags {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	values = make([]string, 0, len(labels))
	for _, k := range labels {
		values = append(values, tags[k])
	}
	return labels, values
}

package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "negotiator"

// Metrics is safe to use as a nil pointer, every method is then a no-op.
type Metrics struct {
	negotiations *prometheus.CounterVec
	retries      *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	truncations  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		negotiations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "negotiations_total",
			Help:      "Content negotiations by resulting format and status class.",
		}, []string{"format", "status"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_retries_total",
			Help:      "Compatibility retries that produced the final response.",
		}, []string{"reason"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by outcome.",
		}, []string{"outcome"}),
		truncations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "truncated_bodies_total",
			Help:      "Bodies cut at the content size budget.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.negotiations, m.retries, m.cacheLookups, m.truncations)
	}

	return m
}

func (m *Metrics) ObserveNegotiation(format string, status int) {
	if m == nil {
		return
	}
	m.negotiations.WithLabelValues(format, StatusClass(status)).Inc()
}

func (m *Metrics) ObserveRetry(reason string) {
	if m == nil || reason == "" {
		return
	}
	m.retries.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveTruncation() {
	if m == nil {
		return
	}
	m.truncations.Inc()
}

// StatusClass buckets HTTP codes as "2xx".."5xx" and keeps synthetic codes verbatim.
func StatusClass(status int) string {
	if status >= 100 && status < 600 {
		return strconv.Itoa(status/100) + "xx"
	}
	return strconv.Itoa(status)
}

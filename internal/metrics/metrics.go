// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics holds the Prometheus collectors for a single run.
// Collectors live on a private registry so nothing leaks between runs or
// tests; the registry can be dumped in text exposition format at exit.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fetch_papers"

// Record outcomes.
const (
	OutcomeParsed   = "parsed"
	OutcomeSkipped  = "skipped"
	OutcomeIndustry = "industry"
)

// Metrics groups the run collectors. A nil *Metrics is valid and discards
// every observation.
type Metrics struct {
	Registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpRetries   *prometheus.CounterVec
	records       *prometheus.CounterVec
	batchDuration prometheus.Histogram
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "E-utilities HTTP responses by endpoint and status code.",
		}, []string{"endpoint", "code"}),
		httpRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_retries_total",
			Help:      "Retried E-utilities requests by endpoint.",
		}, []string{"endpoint"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Paper records by outcome (parsed, skipped, industry).",
		}, []string{"outcome"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of one EFetch batch including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
	m.Registry.MustRegister(m.httpRequests, m.httpRetries, m.records, m.batchDuration)
	return m
}

// ObserveResponse counts one HTTP response. code 0 stands for a transport error.
func (m *Metrics) ObserveResponse(endpoint string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
}

// ObserveRetry counts one retry of endpoint.
func (m *Metrics) ObserveRetry(endpoint string) {
	if m == nil {
		return
	}
	m.httpRetries.WithLabelValues(endpoint).Inc()
}

// AddRecords adds n records with the given outcome.
func (m *Metrics) AddRecords(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.records.WithLabelValues(outcome).Add(float64(n))
}

// ObserveBatch records the duration of one batch.
func (m *Metrics) ObserveBatch(d time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.Observe(d.Seconds())
}

// WriteTextfile writes the registry to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}

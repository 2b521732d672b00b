package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the router service. No label is ever
// derived from prompt text.
type Metrics struct {
	RequestTotal      *prometheus.CounterVec
	RouteTotal        *prometheus.CounterVec
	RouteDurationMs   *prometheus.HistogramVec
	ConfidenceBucket  *prometheus.HistogramVec
	FallbackTotal     *prometheus.CounterVec
	FilterActionTotal *prometheus.CounterVec
	RateLimitHitTotal *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "imagerouter_http_request_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "status"}),

		RouteTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "imagerouter_route_total",
			Help: "Routing decisions by intent and decision source.",
		}, []string{"intent", "source", "overridden"}),

		RouteDurationMs: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "imagerouter_route_duration_ms",
			Help:    "Time spent classifying and extracting, in milliseconds.",
			Buckets: []float64{0.1, 0.5, 1, 5, 25, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"source"}),

		ConfidenceBucket: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "imagerouter_route_confidence",
			Help:    "Distribution of confidence scores by intent.",
			Buckets: []float64{0.3, 0.5, 0.7, 0.75, 0.8, 0.9, 0.95, 1},
		}, []string{"intent"}),

		FallbackTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "imagerouter_fallback_total",
			Help: "Assisted classifications answered by the rule classifier instead.",
		}, []string{"reason"}),

		FilterActionTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "imagerouter_filter_action_total",
			Help: "Egress guard actions.",
		}, []string{"filter", "action"}),

		RateLimitHitTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "imagerouter_rate_limit_hit_total",
			Help: "Requests rejected or downgraded by a limit.",
		}, []string{"dimension"}),
	}
}

// RouteLabels holds the label values for recording a routing decision.
type RouteLabels struct {
	Intent     string
	Source     string
	Overridden bool
	Confidence float64
	DurationMs float64
}

func (m *Metrics) RecordRoute(l RouteLabels) {
	m.RouteTotal.WithLabelValues(l.Intent, l.Source, strconv.FormatBool(l.Overridden)).Inc()
	m.RouteDurationMs.WithLabelValues(l.Source).Observe(l.DurationMs)
	m.ConfidenceBucket.WithLabelValues(l.Intent).Observe(l.Confidence)
}

func (m *Metrics) RecordRequest(route string, status int) {
	m.RequestTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) RecordFallback(reason string) {
	m.FallbackTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordFilterAction(filter, action string) {
	m.FilterActionTotal.WithLabelValues(filter, action).Inc()
}

func (m *Metrics) RecordRateLimitHit(dimension string) {
	m.RateLimitHitTotal.WithLabelValues(dimension).Inc()
}

// Package metrics holds the Prometheus collectors updated by the response
// parser.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	// ParsesTotal counts parses by response mode and outcome.
	ParsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guzzle_response_parses_total",
			Help: "Response parses",
		},
		[]string{"mode", "outcome"},
	)

	// ParseDuration records parse duration in seconds by response mode.
	ParseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guzzle_response_parse_duration_seconds",
			Help:    "Response parse duration",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
		},
		[]string{"mode"},
	)

	// VisitsTotal counts Visit calls per location.
	VisitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guzzle_visitor_visits_total",
			Help: "Visitor visits",
		},
		[]string{"location"},
	)

	// ErrorsTotal counts failed parses by issue code.
	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guzzle_response_errors_total",
			Help: "Response parse errors",
		},
		[]string{"code"},
	)
)

func init() {
	prometheus.MustRegister(
		ParsesTotal,
		ParseDuration,
		VisitsTotal,
		ErrorsTotal,
	)
}

// Outcome maps an error to an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

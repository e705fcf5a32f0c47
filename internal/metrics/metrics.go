package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fitscore"

// Fit-score outcomes.
const (
	OutcomeSuccess       = "success"
	OutcomeNotFound      = "not_found"
	OutcomeFetchError    = "fetch_error"
	OutcomeProviderError = "provider_error"
	OutcomeInvalidOutput = "invalid_output"
	OutcomeMisconfigured = "misconfigured"
)

// Persona match outcomes.
const (
	MatchFound        = "matched"
	MatchBelowFloor   = "below_floor"
	MatchNoCandidates = "no_candidates"
	MatchError        = "error"
)

// Metrics holds the scoring collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FitRequests      *prometheus.CounterVec
	FitDuration      prometheus.Histogram
	DimensionClamped *prometheus.CounterVec
	PersonaMatches   *prometheus.CounterVec
}

// New registers the scoring collectors on a fresh registry that also carries
// the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FitRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fit_requests_total",
				Help:      "Total number of fit score calculations by outcome",
			},
			[]string{"outcome"},
		),
		FitDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fit_duration_seconds",
				Help:      "Duration of fit score calculations in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		DimensionClamped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dimension_clamped_total",
				Help:      "Total number of provider dimension scores clamped into range",
			},
			[]string{"dimension"},
		),
		PersonaMatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "persona_matches_total",
				Help:      "Total number of persona match lookups by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (m *Metrics) ObserveFit(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FitRequests.WithLabelValues(outcome).Inc()
	m.FitDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveClamp(dimension string) {
	if m == nil {
		return
	}
	m.DimensionClamped.WithLabelValues(dimension).Inc()
}

func (m *Metrics) ObservePersonaMatch(outcome string) {
	if m == nil {
		return
	}
	m.PersonaMatches.WithLabelValues(outcome).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

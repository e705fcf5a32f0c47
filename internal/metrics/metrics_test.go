package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetricsExposition(t *testing.T) {
	m := New()

	m.ObserveFit(OutcomeSuccess, 1500*time.Millisecond)
	m.ObserveFit(OutcomeNotFound, time.Millisecond)
	m.ObserveClamp("point_of_need")
	m.ObservePersonaMatch(MatchBelowFloor)

	body := scrape(t, m)

	assert.Contains(t, body, `fitscore_fit_requests_total{outcome="success"} 1`)
	assert.Contains(t, body, `fitscore_fit_requests_total{outcome="not_found"} 1`)
	assert.Contains(t, body, `fitscore_fit_duration_seconds_count 2`)
	assert.Contains(t, body, `fitscore_dimension_clamped_total{dimension="point_of_need"} 1`)
	assert.Contains(t, body, `fitscore_persona_matches_total{outcome="below_floor"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	m.ObserveFit(OutcomeSuccess, time.Second)
	m.ObserveClamp("context_fit")
	m.ObservePersonaMatch(MatchFound)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

package scoring

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spigell/fitscore/internal/ai"
	"github.com/spigell/fitscore/internal/crm"
	"github.com/spigell/fitscore/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const validResponse = `{
  "point_of_need": 15,
  "pain_alignment": 12,
  "willingness_to_pay": 10,
  "impact_potential": 18,
  "context_fit": 14,
  "total_score": 69,
  "summary": "Strong operational need with a reasonable budget."
}`

func fitFixture() *fakeRecords {
	records := newFakeRecords()
	records.contacts["c1"] = &crm.Contact{
		ID:        "c1",
		FirstName: "Grace",
		LastName:  "Hopper",
		Title:     "Head of Engineering",
		Notes:     "Looking to automate release reporting",
		Company:   &crm.Company{CompanyName: "Navy Labs", Industry: "Defense"},
	}
	records.products["prod1"] = &crm.Product{ID: "prod1", Name: "Release Radar", ValueProp: "Automated release reports", Price: price(1500)}
	records.pipelines["c1"] = &crm.Pipeline{ContactID: "c1", Pipeline: "prospect", Stage: "meeting"}
	records.personas = []*crm.Persona{{
		ID:         "p1",
		TenantID:   tenant,
		Goals:      "Ship faster",
		PainPoints: "Slow manual reporting",
	}}
	return records
}

func TestCalculateFitScoreSuccess(t *testing.T) {
	records := fitFixture()
	completer := &stubCompleter{text: validResponse}
	scorer := NewFitScorer(records, completer, zap.NewNop(), FitConfig{Model: "gemini-test"})

	res := scorer.CalculateFitScore(context.Background(), "c1", "prod1", "p1")

	require.True(t, res.Success, res.Error)
	assert.NoError(t, res.Err)
	assert.Equal(t, "c1", res.ContactID)
	assert.Equal(t, "prod1", res.ProductID)
	assert.Equal(t, "p1", res.PersonaID)
	assert.Equal(t, &Scores{
		PointOfNeed:      15,
		PainAlignment:    12,
		WillingnessToPay: 10,
		ImpactPotential:  18,
		ContextFit:       14,
		TotalScore:       69,
	}, res.Scores)
	assert.Equal(t, "Strong operational need with a reasonable budget.", res.Summary)
	assert.Equal(t, validResponse, res.RawResponse)
	assert.Equal(t, 69, res.Total())

	req := completer.lastRequest()
	assert.Equal(t, "gemini-test", req.Model)
	assert.InDelta(t, 0.7, req.Temperature, 1e-6)
	assert.Equal(t, ai.ResponseFormatJSON, req.ResponseFormat)
	assert.Equal(t, SystemPrompt(), req.SystemMessage)
	assert.Contains(t, req.UserMessage, "Goals: Ship faster")
	assert.Contains(t, req.UserMessage, "Pain points: Slow manual reporting")
	assert.Contains(t, req.UserMessage, "Budget sensitivity: Low - Early stage")
	assert.Contains(t, req.UserMessage, "Price: USD 1,500.00")
}

func TestCalculateFitScoreWithoutPersonaUsesNotes(t *testing.T) {
	records := fitFixture()
	completer := &stubCompleter{text: validResponse}
	scorer := NewFitScorer(records, completer, nil, FitConfig{})

	res := scorer.CalculateFitScore(context.Background(), "c1", "prod1", "")

	require.True(t, res.Success, res.Error)
	assert.Zero(t, records.callCount("persona"))
	assert.Contains(t, completer.lastRequest().UserMessage, "Goals: Looking to automate release reporting")
	assert.Contains(t, completer.lastRequest().UserMessage, "Pain points: Not specified")
}

func TestCalculateFitScoreUnknownPersonaStillScores(t *testing.T) {
	records := fitFixture()
	completer := &stubCompleter{text: validResponse}
	scorer := NewFitScorer(records, completer, nil, FitConfig{})

	res := scorer.CalculateFitScore(context.Background(), "c1", "prod1", "missing-persona")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, records.callCount("persona"))
	assert.Contains(t, completer.lastRequest().UserMessage, "Goals: Looking to automate release reporting")
}

func TestCalculateFitScoreClampsDimensions(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	m := metrics.New()
	completer := &stubCompleter{text: `{
		"point_of_need": 25,
		"pain_alignment": -4,
		"willingness_to_pay": "12",
		"impact_potential": 12.6,
		"context_fit": 20,
		"total_score": 150,
		"summary": "Out of range"
	}`}
	scorer := NewFitScorer(fitFixture(), completer, zap.New(core), FitConfig{Metrics: m})

	res := scorer.CalculateFitScore(context.Background(), "c1", "prod1", "")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 20, res.Scores.PointOfNeed)
	assert.Equal(t, 0, res.Scores.PainAlignment)
	assert.Equal(t, 12, res.Scores.WillingnessToPay)
	assert.Equal(t, 13, res.Scores.ImpactPotential)
	assert.Equal(t, 20, res.Scores.ContextFit)
	assert.Equal(t, 65, res.Scores.TotalScore)

	clampLogs := observed.FilterMessage("dimension score out of range, clamping").All()
	require.Len(t, clampLogs, 2)
	assert.Equal(t, keyPointOfNeed, clampLogs[0].ContextMap()["dimension"])
	assert.Equal(t, keyPainAlignment, clampLogs[1].ContextMap()["dimension"])

	body := scrapeMetrics(t, m)
	assert.Contains(t, body, `fitscore_dimension_clamped_total{dimension="point_of_need"} 1`)
	assert.Contains(t, body, `fitscore_fit_requests_total{outcome="success"} 1`)
}

func TestCalculateFitScoreInvariants(t *testing.T) {
	t.Parallel()

	responses := []string{
		`{"point_of_need": 100, "pain_alignment": 100, "willingness_to_pay": 100, "impact_potential": 100, "context_fit": 100, "total_score": 500, "summary": "max"}`,
		`{"point_of_need": -100, "pain_alignment": -1, "willingness_to_pay": 0, "impact_potential": -0.4, "context_fit": -20, "total_score": -5, "summary": "min"}`,
		`{"point_of_need": 19.5, "pain_alignment": 20.4, "willingness_to_pay": 3, "impact_potential": 7, "context_fit": "n/a", "total_score": 0, "summary": "mixed"}`,
		`{"point_of_need": null, "pain_alignment": true, "willingness_to_pay": "", "impact_potential": 21, "context_fit": 1e9, "total_score": "x", "summary": 42}`,
	}

	for _, raw := range responses {
		raw := raw
		t.Run(raw[:30], func(t *testing.T) {
			t.Parallel()
			scorer := NewFitScorer(fitFixture(), &stubCompleter{text: raw}, nil, FitConfig{})

			res := scorer.CalculateFitScore(context.Background(), "c1", "prod1", "")
			require.True(t, res.Success, res.Error)

			s := res.Scores
			for _, v := range []int{s.PointOfNeed, s.PainAlignment, s.WillingnessToPay, s.ImpactPotential, s.ContextFit} {
				assert.GreaterOrEqual(t, v, 0)
				assert.LessOrEqual(t, v, 20)
			}
			assert.Equal(t, s.PointOfNeed+s.PainAlignment+s.WillingnessToPay+s.ImpactPotential+s.ContextFit, s.TotalScore)
			assert.GreaterOrEqual(t, s.TotalScore, 0)
			assert.LessOrEqual(t, s.TotalScore, 100)
		})
	}
}

func TestCalculateFitScoreParsingFallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{name: "fenced", text: "```json\n" + validResponse + "\n```"},
		{name: "prose around object", text: "Here is the evaluation:\n" + validResponse + "\nLet me know if you need more."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			scorer := NewFitScorer(fitFixture(), &stubCompleter{text: tt.text}, nil, FitConfig{})

			res := scorer.CalculateFitScore(context.Background(), "c1", "prod1", "")

			require.True(t, res.Success, res.Error)
			assert.Equal(t, 69, res.Scores.TotalScore)
			assert.Equal(t, tt.text, res.RawResponse)
		})
	}
}

func TestCalculateFitScoreFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		sentinel error
		message  string
	}{
		{name: "empty output", text: "   ", sentinel: ErrNoOutput, message: "No output received"},
		{name: "not json", text: "I cannot score this contact.", sentinel: ErrInvalidJSON, message: "invalid JSON response"},
		{name: "broken object", text: "{point_of_need: 5,}", sentinel: ErrInvalidJSON, message: "invalid JSON response"},
		{name: "array", text: "[1,2,3]", sentinel: ErrInvalidJSON, message: "invalid JSON response"},
		{
			name:     "missing total",
			text:     `{"point_of_need": 1, "pain_alignment": 1, "willingness_to_pay": 1, "impact_potential": 1, "context_fit": 1, "summary": "x"}`,
			sentinel: ErrMissingField,
			message:  "missing required field: total_score",
		},
		{
			name:     "missing summary",
			text:     `{"point_of_need": 1, "pain_alignment": 1, "willingness_to_pay": 1, "impact_potential": 1, "context_fit": 1, "total_score": 5}`,
			sentinel: ErrMissingField,
			message:  "missing required field: summary",
		},
		{
			name:     "missing first dimension",
			text:     `{"pain_alignment": 1, "willingness_to_pay": 1, "impact_potential": 1, "context_fit": 1, "total_score": 4, "summary": "x"}`,
			sentinel: ErrMissingField,
			message:  "missing required field: point_of_need",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			scorer := NewFitScorer(fitFixture(), &stubCompleter{text: tt.text}, nil, FitConfig{})

			res := scorer.CalculateFitScore(context.Background(), "c1", "prod1", "p1")

			assert.False(t, res.Success)
			assert.Equal(t, tt.message, res.Error)
			assert.ErrorIs(t, res.Err, tt.sentinel)
			assert.Nil(t, res.Scores)
			assert.Equal(t, "c1", res.ContactID)
			assert.Equal(t, "prod1", res.ProductID)
			assert.Equal(t, "p1", res.PersonaID)
			assert.Equal(t, -1, res.Total())
		})
	}
}

func TestCalculateFitScoreContactNotFound(t *testing.T) {
	records := fitFixture()
	completer := &stubCompleter{text: validResponse}
	scorer := NewFitScorer(records, completer, nil, FitConfig{})

	res := scorer.CalculateFitScore(context.Background(), "c-404", "prod1", "p1")

	assert.False(t, res.Success)
	assert.Equal(t, "Contact not found: c-404", res.Error)
	assert.ErrorIs(t, res.Err, ErrContactNotFound)
	assert.Zero(t, completer.calls())

	// every lookup settles before preconditions are checked
	assert.Equal(t, 1, records.callCount("contact"))
	assert.Equal(t, 1, records.callCount("product"))
	assert.Equal(t, 1, records.callCount("pipeline"))
	assert.Equal(t, 1, records.callCount("persona"))
}

func TestCalculateFitScoreProductNotFound(t *testing.T) {
	completer := &stubCompleter{text: validResponse}
	scorer := NewFitScorer(fitFixture(), completer, nil, FitConfig{})

	res := scorer.CalculateFitScore(context.Background(), "c1", "prod-404", "")

	assert.False(t, res.Success)
	assert.Equal(t, "Product not found: prod-404", res.Error)
	assert.ErrorIs(t, res.Err, ErrProductNotFound)
	assert.Zero(t, completer.calls())
}

func TestCalculateFitScoreFetchError(t *testing.T) {
	records := fitFixture()
	records.productErr = errors.New("connection reset")
	scorer := NewFitScorer(records, &stubCompleter{text: validResponse}, nil, FitConfig{})

	res := scorer.CalculateFitScore(context.Background(), "c1", "prod1", "")

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrRecordFetch)
	assert.Equal(t, "get product prod1: connection reset", res.Error)
}

func TestCalculateFitScoreProviderError(t *testing.T) {
	providerErr := errors.New("generate content: 429 resource exhausted")
	scorer := NewFitScorer(fitFixture(), &stubCompleter{err: providerErr}, nil, FitConfig{})

	res := scorer.CalculateFitScore(context.Background(), "c1", "prod1", "")

	assert.False(t, res.Success)
	assert.Equal(t, providerErr.Error(), res.Error)
	assert.ErrorIs(t, res.Err, ErrProvider)
	assert.ErrorIs(t, res.Err, providerErr)
}

func TestCalculateFitScoreMissingAPIKey(t *testing.T) {
	m := metrics.New()
	completer := ai.CompleterFunc(func(context.Context, ai.Request) (*ai.Response, error) {
		return nil, ai.ErrMissingAPIKey
	})
	scorer := NewFitScorer(fitFixture(), completer, nil, FitConfig{Metrics: m})

	res := scorer.CalculateFitScore(context.Background(), "c1", "prod1", "")

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ai.ErrMissingAPIKey)
	assert.Contains(t, scrapeMetrics(t, m), `fitscore_fit_requests_total{outcome="misconfigured"} 1`)
}

func TestCalculateFitScoreNilResponseIsNoOutput(t *testing.T) {
	completer := ai.CompleterFunc(func(context.Context, ai.Request) (*ai.Response, error) {
		return nil, nil
	})
	scorer := NewFitScorer(fitFixture(), completer, nil, FitConfig{})

	res := scorer.CalculateFitScore(context.Background(), "c1", "prod1", "")

	assert.ErrorIs(t, res.Err, ErrNoOutput)
}

func scrapeMetrics(t *testing.T, m *metrics.Metrics) string {
	t.Helper()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

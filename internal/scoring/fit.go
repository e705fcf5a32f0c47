package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spigell/fitscore/internal/ai"
	"github.com/spigell/fitscore/internal/crm"
	"github.com/spigell/fitscore/internal/logger"
	"github.com/spigell/fitscore/internal/metrics"
	"github.com/spigell/fitscore/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTemperature  = 0.7
	defaultMaxLogLength = 200
)

// Scores are the clamped dimension scores and their recomputed total.
type Scores struct {
	PointOfNeed      int `json:"pointOfNeed"`
	PainAlignment    int `json:"painAlignment"`
	WillingnessToPay int `json:"willingnessToPay"`
	ImpactPotential  int `json:"impactPotential"`
	ContextFit       int `json:"contextFit"`
	TotalScore       int `json:"totalScore"`
}

// FitResult is either a success carrying Scores or a failure carrying Error.
// Err holds the typed cause of a failure for errors.Is checks.
type FitResult struct {
	Success     bool    `json:"success"`
	Error       string  `json:"error,omitempty"`
	ContactID   string  `json:"contactId"`
	ProductID   string  `json:"productId"`
	PersonaID   string  `json:"personaId,omitempty"`
	Scores      *Scores `json:"scores,omitempty"`
	Summary     string  `json:"summary,omitempty"`
	RawResponse string  `json:"rawResponse,omitempty"`

	Err error `json:"-"`
}

// Total returns the total score, or -1 for failed results.
func (r *FitResult) Total() int {
	if r == nil || !r.Success || r.Scores == nil {
		return -1
	}
	return r.Scores.TotalScore
}

type FitConfig struct {
	Model        string
	MaxLogLength int
	Metrics      *metrics.Metrics
}

type FitScorer struct {
	records   crm.Records
	completer ai.Completer
	logger    *zap.Logger
	model     string
	maxLogLen int
	metrics   *metrics.Metrics
}

func NewFitScorer(records crm.Records, completer ai.Completer, log *zap.Logger, cfg FitConfig) *FitScorer {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxLogLength <= 0 {
		cfg.MaxLogLength = defaultMaxLogLength
	}

	return &FitScorer{
		records:   records,
		completer: completer,
		logger:    log,
		model:     strings.TrimSpace(cfg.Model),
		maxLogLen: cfg.MaxLogLength,
		metrics:   cfg.Metrics,
	}
}

type fitInputs struct {
	contact  *crm.Contact
	product  *crm.Product
	pipeline *crm.Pipeline
	persona  *crm.Persona
}

// CalculateFitScore scores how well the product fits the contact. personaID is optional.
// Failures are reported in the result, never as a panic or a separate error.
func (s *FitScorer) CalculateFitScore(ctx context.Context, contactID, productID, personaID string) *FitResult {
	started := time.Now()
	log := logger.WithFit(s.logger, contactID, productID, personaID)

	result := &FitResult{
		ContactID: contactID,
		ProductID: productID,
		PersonaID: personaID,
	}

	scores, summary, raw, err := s.calculate(ctx, log, contactID, productID, personaID)
	elapsed := time.Since(started)
	if err != nil {
		log.Warn("fit score calculation failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		s.metrics.ObserveFit(outcome(err), elapsed)

		result.Error = err.Error()
		result.Err = err
		return result
	}

	log.Info("fit score calculated",
		zap.Int("total_score", scores.TotalScore),
		zap.Duration("elapsed", elapsed),
	)
	s.metrics.ObserveFit(metrics.OutcomeSuccess, elapsed)

	result.Success = true
	result.Scores = scores
	result.Summary = summary
	result.RawResponse = raw
	return result
}

func (s *FitScorer) calculate(ctx context.Context, log *zap.Logger, contactID, productID, personaID string) (*Scores, string, string, error) {
	in, err := s.fetch(ctx, contactID, productID, personaID)
	if err != nil {
		return nil, "", "", err
	}
	if in.contact == nil {
		return nil, "", "", contactNotFound(contactID)
	}
	if in.product == nil {
		return nil, "", "", productNotFound(productID)
	}
	if personaID != "" && in.persona == nil {
		log.Warn("persona not found, scoring without persona")
	}

	prompt := buildUserPrompt(deriveFields(in.contact, in.product, in.pipeline, in.persona))

	log.Debug("fit score request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.Preview(prompt, s.maxLogLen)),
	)

	resp, err := s.completer.Complete(ctx, ai.Request{
		Model:          s.model,
		Temperature:    DefaultTemperature,
		SystemMessage:  SystemPrompt(),
		UserMessage:    prompt,
		ResponseFormat: ai.ResponseFormatJSON,
	})
	if err != nil {
		return nil, "", "", providerFailed(err)
	}

	var raw string
	if resp != nil {
		raw = resp.Text
	}

	log.Debug("fit score response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.Preview(raw, s.maxLogLen)),
	)

	data, err := parseResponse(raw)
	if err != nil {
		return nil, "", "", err
	}
	if err := checkRequired(data); err != nil {
		return nil, "", "", err
	}

	scores := s.normalizeScores(log, data)
	return scores, coerceString(data[keySummary]), raw, nil
}

// fetch loads all records concurrently and waits for every lookup to settle.
func (s *FitScorer) fetch(ctx context.Context, contactID, productID, personaID string) (*fitInputs, error) {
	in := &fitInputs{}
	var g errgroup.Group

	g.Go(func() error {
		contact, err := s.records.GetContact(ctx, contactID)
		if err != nil {
			return fmt.Errorf("get contact %s: %w", contactID, err)
		}
		in.contact = contact
		return nil
	})
	g.Go(func() error {
		product, err := s.records.GetProduct(ctx, productID)
		if err != nil {
			return fmt.Errorf("get product %s: %w", productID, err)
		}
		in.product = product
		return nil
	})
	g.Go(func() error {
		pipeline, err := s.records.GetPipeline(ctx, contactID)
		if err != nil {
			return fmt.Errorf("get pipeline for contact %s: %w", contactID, err)
		}
		in.pipeline = pipeline
		return nil
	})
	if personaID != "" {
		g.Go(func() error {
			persona, err := s.records.GetPersona(ctx, personaID)
			if err != nil {
				return fmt.Errorf("get persona %s: %w", personaID, err)
			}
			in.persona = persona
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fetchFailed(err)
	}
	return in, nil
}

func (s *FitScorer) normalizeScores(log *zap.Logger, data map[string]any) *Scores {
	values := make(map[string]int, len(dimensionKeys))
	total := 0

	for _, key := range dimensionKeys {
		v, ok := coerceFloat(data[key])
		if !ok {
			log.Warn("dimension score is not a number, using 0",
				zap.String("dimension", key),
				zap.Any("value", data[key]),
			)
			v = 0
		}

		clamped := clamp(v, minDimension, maxDimension)
		if clamped != v {
			log.Warn("dimension score out of range, clamping",
				zap.String("dimension", key),
				zap.Float64("value", v),
				zap.Float64("clamped", clamped),
			)
			s.metrics.ObserveClamp(key)
		}

		score := int(math.Round(clamped))
		values[key] = score
		total += score
	}

	if provided, ok := coerceFloat(data[keyTotalScore]); ok && int(math.Round(provided)) != total {
		log.Debug("provider total score replaced",
			zap.Float64("provided", provided),
			zap.Int("recomputed", total),
		)
	}

	return &Scores{
		PointOfNeed:      values[keyPointOfNeed],
		PainAlignment:    values[keyPainAlignment],
		WillingnessToPay: values[keyWillingnessToPay],
		ImpactPotential:  values[keyImpactPotential],
		ContextFit:       values[keyContextFit],
		TotalScore:       int(clamp(float64(total), minTotal, maxTotal)),
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ai.ErrMissingAPIKey):
		return metrics.OutcomeMisconfigured
	case errors.Is(err, ErrContactNotFound), errors.Is(err, ErrProductNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrRecordFetch):
		return metrics.OutcomeFetchError
	case errors.Is(err, ErrNoOutput), errors.Is(err, ErrInvalidJSON), errors.Is(err, ErrMissingField):
		return metrics.OutcomeInvalidOutput
	default:
		return metrics.OutcomeProviderError
	}
}

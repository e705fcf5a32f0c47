package filtering

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spigell/fitscore/internal/scoring"
	"github.com/spigell/fitscore/internal/utils"
	"go.uber.org/zap"
)

// FitCalculator scores a contact against a product.
type FitCalculator interface {
	CalculateFitScore(ctx context.Context, contactID, productID, personaID string) *scoring.FitResult
}

type FitScoreConfig struct {
	ProductID       string
	MinimumFitScore int
	ExcludeFile     string
	// Delay is the pause between consecutive provider calls.
	Delay time.Duration
}

type fitScoreFilter struct {
	enabled bool
	reason  string
	config  FitScoreConfig
	scorer  FitCalculator
	logger  *zap.Logger
}

// NewFitScore creates the step that scores every candidate and drops the ones below
// the minimum total score.
func NewFitScore(cfg FitScoreConfig, scorer FitCalculator, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ProductID = strings.TrimSpace(cfg.ProductID)
	cfg.ExcludeFile = strings.TrimSpace(cfg.ExcludeFile)

	return &fitScoreFilter{
		enabled: true,
		config:  cfg,
		scorer:  scorer,
		logger:  logger,
	}
}

func (f *fitScoreFilter) Name() string { return "fit_score" }

func (f *fitScoreFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *fitScoreFilter) IsEnabled() bool { return f.enabled }

func (f *fitScoreFilter) Validate() error {
	if f.scorer == nil {
		return errors.New("fit scorer is not configured")
	}
	if f.config.ProductID == "" {
		return errors.New("product id is required")
	}
	if f.config.MinimumFitScore < 0 || f.config.MinimumFitScore > 100 {
		return fmt.Errorf("minimum fit score must be between 0 and 100, got %d", f.config.MinimumFitScore)
	}
	return nil
}

func (f *fitScoreFilter) Apply(ctx context.Context, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()
	approved := make([]*Candidate, 0, initial)

	for i, candidate := range c.Items {
		if i > 0 && f.config.Delay > 0 {
			if err := utils.WaitFor(ctx, f.config.Delay); err != nil {
				return c, Step{}, err
			}
		}

		contactID := candidate.Contact.ID
		res := f.scorer.CalculateFitScore(ctx, contactID, f.config.ProductID, candidate.PersonaID)
		candidate.Result = res

		if !res.Success {
			f.logger.Warn("fit scoring failed, keeping candidate",
				zap.String("contact_id", contactID),
				zap.String("error", res.Error),
			)
			approved = append(approved, candidate)
			continue
		}

		if res.Total() < f.config.MinimumFitScore {
			f.logger.Info("contact rejected by fit score",
				zap.String("contact_id", contactID),
				zap.Int("total_score", res.Total()),
				zap.String("summary", res.Summary),
			)
			f.exclude(candidate, res.Summary)
			continue
		}

		f.logger.Info("contact approved by fit score",
			zap.String("contact_id", contactID),
			zap.Int("total_score", res.Total()),
		)
		approved = append(approved, candidate)
	}

	c.Items = approved

	f.logger.Info("fit scoring completed",
		zap.Int("initial_contacts", initial),
		zap.Int("approved_contacts", len(approved)),
	)

	return c, Step{Initial: initial, Dropped: initial - len(approved), Left: len(approved)}, nil
}

func (f *fitScoreFilter) exclude(candidate *Candidate, reason string) {
	if f.config.ExcludeFile == "" {
		return
	}

	rejected := &Candidates{Items: []*Candidate{candidate}}
	if err := AppendExclusions(f.config.ExcludeFile, rejected, ExcludeActorAI, reason); err != nil {
		f.logger.Warn("failed to append contact to exclude file",
			zap.String("contact_id", candidate.Contact.ID),
			zap.Error(err),
		)
		return
	}

	f.logger.Info("contact appended to exclude file",
		zap.String("contact_id", candidate.Contact.ID),
		zap.String("exclude_file", f.config.ExcludeFile),
	)
}

func (f *fitScoreFilter) Status() Status {
	details := map[string]string{
		"product_id":        f.config.ProductID,
		"minimum_fit_score": strconv.Itoa(f.config.MinimumFitScore),
	}
	if f.config.ExcludeFile != "" {
		details["exclude_file"] = f.config.ExcludeFile
	}
	return Status{Name: f.Name(), Enabled: f.enabled, Reason: f.reason, Details: details}
}

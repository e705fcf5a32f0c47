package filtering

import (
	"context"
	"errors"
	"strings"

	"github.com/spigell/fitscore/internal/scoring"
	"go.uber.org/zap"
)

// PersonaFinder resolves the best persona for a contact.
type PersonaFinder interface {
	FindMatchingPersona(ctx context.Context, contactID, tenantID string, opts scoring.MatchOptions) *scoring.PersonaMatch
}

type personaFilter struct {
	enabled  bool
	reason   string
	finder   PersonaFinder
	tenantID string
	logger   *zap.Logger
}

// NewPersona creates the step that assigns a matching persona to every candidate.
// It never drops candidates.
func NewPersona(finder PersonaFinder, tenantID string, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &personaFilter{
		enabled:  true,
		finder:   finder,
		tenantID: strings.TrimSpace(tenantID),
		logger:   logger,
	}
}

func (f *personaFilter) Name() string { return "persona" }

func (f *personaFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *personaFilter) IsEnabled() bool { return f.enabled }

func (f *personaFilter) Validate() error {
	if f.finder == nil {
		return errors.New("persona matcher is not configured")
	}
	if f.tenantID == "" {
		return errors.New("tenant id is required")
	}
	return nil
}

func (f *personaFilter) Apply(ctx context.Context, c *Candidates) (*Candidates, Step, error) {
	matched := 0
	for _, candidate := range c.Items {
		if candidate.PersonaID != "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return c, Step{}, err
		}

		match := f.finder.FindMatchingPersona(ctx, candidate.Contact.ID, f.tenantID, scoring.MatchOptions{})
		if id := match.ID(); id != "" {
			candidate.PersonaID = id
			matched++
			f.logger.Debug("persona assigned",
				zap.String("contact_id", candidate.Contact.ID),
				zap.String("persona_id", id),
			)
		}
	}

	f.logger.Info("persona matching completed",
		zap.Int("candidates", c.Len()),
		zap.Int("matched", matched),
	)

	return c, Step{Initial: c.Len(), Left: c.Len()}, nil
}

func (f *personaFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.enabled,
		Reason:  f.reason,
		Details: map[string]string{"tenant_id": f.tenantID},
	}
}

package filtering

import (
	"context"
	"fmt"
	"sort"

	"github.com/spigell/fitscore/internal/crm"
	"github.com/spigell/fitscore/internal/scoring"
	"go.uber.org/zap"
)

// Filter represents a single ranking step applied to candidates.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	Apply(ctx context.Context, c *Candidates) (*Candidates, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// Candidate is a contact moving through the ranking pipeline.
type Candidate struct {
	Contact   *crm.Contact       `json:"contact"`
	PersonaID string             `json:"personaId,omitempty"`
	Result    *scoring.FitResult `json:"result,omitempty"`
}

type Candidates struct {
	Items []*Candidate
}

func NewCandidates(contacts []*crm.Contact) *Candidates {
	c := &Candidates{Items: make([]*Candidate, 0, len(contacts))}
	for _, contact := range contacts {
		if contact == nil {
			continue
		}
		c.Items = append(c.Items, &Candidate{Contact: contact})
	}
	return c
}

func (c *Candidates) Len() int {
	return len(c.Items)
}

// Exclude drops candidates whose contact id is in ids and returns the dropped ids.
func (c *Candidates) Exclude(ids []string) []string {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	var excluded []string
	kept := c.Items[:0]
	for _, candidate := range c.Items {
		if _, ok := drop[candidate.Contact.ID]; ok {
			excluded = append(excluded, candidate.Contact.ID)
			continue
		}
		kept = append(kept, candidate)
	}
	c.Items = kept
	return excluded
}

// SortByScore orders candidates by descending total score. Failed results go last.
func (c *Candidates) SortByScore() {
	sort.SliceStable(c.Items, func(i, j int) bool {
		return c.Items[i].Result.Total() > c.Items[j].Result.Total()
	})
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the enabled filters in order and sorts the survivors by score.
func Run(ctx context.Context, logger *zap.Logger, steps []Filter, c *Candidates) (*Candidates, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			logger.Info("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		c = next
	}

	c.SortByScore()
	return c, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

package filtering

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	ExcludeActorAI   = "ai"
	ExcludeActorUser = "user"
)

// Exclusions is the on-disk list of contacts the ranking pipeline must skip.
type Exclusions struct {
	Items []*Exclusion
}

type Exclusion struct {
	ID         string
	Name       string
	Company    string
	ExcludedAt time.Time
	Actor      string
	Reason     string `json:",omitempty"`
}

// LoadExclusions reads an exclusion file. A missing or empty file is an empty list.
func LoadExclusions(path string) (*Exclusions, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Exclusions{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Size() == 0 {
		return &Exclusions{}, nil
	}

	var excluded Exclusions
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &excluded, nil
}

func (e *Exclusions) Append(s *Exclusions) {
	e.Items = append(e.Items, s.Items...)
}

func (e *Exclusions) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

func (e *Exclusions) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

// ToExclusions converts candidates into exclusion entries stamped with the current time.
func (c *Candidates) ToExclusions(actor, reason string) *Exclusions {
	excluded := &Exclusions{}
	for _, candidate := range c.Items {
		excluded.Items = append(excluded.Items, &Exclusion{
			ID:         candidate.Contact.ID,
			Name:       candidate.Contact.DisplayName(),
			Company:    candidate.Contact.CompanyName(),
			ExcludedAt: time.Now().UTC(),
			Actor:      actor,
			Reason:     reason,
		})
	}
	return excluded
}

// AppendExclusions adds candidates to the exclusion file at path, creating it when needed.
func AppendExclusions(path string, c *Candidates, actor, reason string) error {
	excluded, err := LoadExclusions(path)
	if err != nil {
		return fmt.Errorf("load exclusions: %w", err)
	}

	excluded.Append(c.ToExclusions(actor, reason))

	if err := excluded.ToFile(path); err != nil {
		return fmt.Errorf("write exclusions: %w", err)
	}
	return nil
}

type excludeFileFilter struct {
	path   string
	logger *zap.Logger
}

// NewExcludeFile creates a filter that removes contacts listed in the exclusion file.
func NewExcludeFile(path string, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &excludeFileFilter{path: strings.TrimSpace(path), logger: logger}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(string) {}

func (f *excludeFileFilter) IsEnabled() bool { return true }

func (f *excludeFileFilter) Validate() error { return nil }

func (f *excludeFileFilter) Apply(_ context.Context, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()
	if f.path == "" {
		return c, Step{Initial: initial, Left: initial}, nil
	}

	excluded, err := LoadExclusions(f.path)
	if err != nil {
		return c, Step{}, fmt.Errorf("getting excluded contacts from file: %w", err)
	}

	removed := c.Exclude(excluded.IDs())
	if len(removed) > 0 {
		f.logger.Info("excluding contacts based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_contacts", removed),
			zap.Int("contacts_left", c.Len()),
		)
	}

	return c, Step{Initial: initial, Dropped: len(removed), Left: c.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

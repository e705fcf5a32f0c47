package filtering

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spigell/fitscore/internal/scoring"
	"github.com/spigell/fitscore/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonaFilterAssignsMatches(t *testing.T) {
	records, err := store.LoadFile(filepath.Join("..", "store", "testdata", "fixtures.json"))
	require.NoError(t, err)

	ctx := context.Background()
	listed, err := records.ListContacts(ctx, "tenant-demo")
	require.NoError(t, err)

	filter := NewPersona(scoring.NewPersonaMatcher(records, nil, nil), "tenant-demo", nil)
	require.NoError(t, filter.Validate())

	out, step, err := filter.Apply(ctx, NewCandidates(listed))
	require.NoError(t, err)

	assert.Equal(t, Step{Initial: 3, Left: 3}, step)

	got := map[string]string{}
	for _, candidate := range out.Items {
		got[candidate.Contact.ID] = candidate.PersonaID
	}
	assert.Equal(t, map[string]string{
		"contact-ceo":   "persona-exec",
		"contact-sales": "persona-sales",
		"contact-bare":  "",
	}, got)
}

type finderFunc func(ctx context.Context, contactID, tenantID string, opts scoring.MatchOptions) *scoring.PersonaMatch

func (f finderFunc) FindMatchingPersona(ctx context.Context, contactID, tenantID string, opts scoring.MatchOptions) *scoring.PersonaMatch {
	return f(ctx, contactID, tenantID, opts)
}

func TestPersonaFilterKeepsPresetPersona(t *testing.T) {
	calls := 0
	finder := finderFunc(func(_ context.Context, _, _ string, _ scoring.MatchOptions) *scoring.PersonaMatch {
		calls++
		return &scoring.PersonaMatch{}
	})

	c := NewCandidates(contacts("a", "b"))
	c.Items[0].PersonaID = "preset"

	_, _, err := NewPersona(finder, "t1", nil).Apply(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, "preset", c.Items[0].PersonaID)
	assert.Empty(t, c.Items[1].PersonaID)
}

func TestPersonaFilterValidate(t *testing.T) {
	finder := finderFunc(func(context.Context, string, string, scoring.MatchOptions) *scoring.PersonaMatch { return nil })

	assert.EqualError(t, NewPersona(nil, "t1", nil).Validate(), "persona matcher is not configured")
	assert.EqualError(t, NewPersona(finder, " ", nil).Validate(), "tenant id is required")
}

func TestPersonaFilterStopsOnCancelledContext(t *testing.T) {
	finder := finderFunc(func(context.Context, string, string, scoring.MatchOptions) *scoring.PersonaMatch {
		t.Fatal("finder must not be called")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewPersona(finder, "t1", nil).Apply(ctx, NewCandidates(contacts("a")))
	assert.ErrorIs(t, err, context.Canceled)
}

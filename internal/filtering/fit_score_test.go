package filtering

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spigell/fitscore/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fitFunc func(ctx context.Context, contactID, productID, personaID string) *scoring.FitResult

func (f fitFunc) CalculateFitScore(ctx context.Context, contactID, productID, personaID string) *scoring.FitResult {
	return f(ctx, contactID, productID, personaID)
}

type recordedCall struct {
	contactID string
	productID string
	personaID string
}

func TestFitScoreFilterDropsLowScores(t *testing.T) {
	excludeFile := filepath.Join(t.TempDir(), "excluded.json")

	var (
		mu    sync.Mutex
		calls []recordedCall
	)
	scorer := fitFunc(func(_ context.Context, contactID, productID, personaID string) *scoring.FitResult {
		mu.Lock()
		calls = append(calls, recordedCall{contactID, productID, personaID})
		mu.Unlock()

		switch contactID {
		case "strong":
			res := scored(80)
			res.Summary = "Great fit"
			return res
		case "weak":
			res := scored(30)
			res.Summary = "No budget this year"
			return res
		default:
			return &scoring.FitResult{ContactID: contactID, Error: "generate content: quota"}
		}
	})

	c := NewCandidates(contacts("weak", "strong", "broken"))
	c.Items[1].PersonaID = "persona-1"

	filter := NewFitScore(FitScoreConfig{
		ProductID:       "prod-1",
		MinimumFitScore: 50,
		ExcludeFile:     excludeFile,
	}, scorer, nil)
	require.NoError(t, filter.Validate())

	out, step, err := filter.Apply(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, Step{Initial: 3, Dropped: 1, Left: 2}, step)
	assert.Equal(t, []string{"strong", "broken"}, ids(out))
	assert.Equal(t, 80, out.Items[0].Result.Total())
	assert.Equal(t, "generate content: quota", out.Items[1].Result.Error)

	assert.Equal(t, []recordedCall{
		{"weak", "prod-1", ""},
		{"strong", "prod-1", "persona-1"},
		{"broken", "prod-1", ""},
	}, calls)

	excluded, err := LoadExclusions(excludeFile)
	require.NoError(t, err)
	require.Len(t, excluded.Items, 1)
	assert.Equal(t, "weak", excluded.Items[0].ID)
	assert.Equal(t, ExcludeActorAI, excluded.Items[0].Actor)
	assert.Equal(t, "No budget this year", excluded.Items[0].Reason)
}

func TestFitScoreFilterKeepsScoreAtThreshold(t *testing.T) {
	scorer := fitFunc(func(context.Context, string, string, string) *scoring.FitResult { return scored(50) })

	out, step, err := NewFitScore(FitScoreConfig{ProductID: "p", MinimumFitScore: 50}, scorer, nil).
		Apply(context.Background(), NewCandidates(contacts("a")))
	require.NoError(t, err)

	assert.Equal(t, Step{Initial: 1, Left: 1}, step)
	assert.Equal(t, 1, out.Len())
}

func TestFitScoreFilterValidate(t *testing.T) {
	t.Parallel()

	scorer := fitFunc(func(context.Context, string, string, string) *scoring.FitResult { return nil })

	tests := []struct {
		name   string
		cfg    FitScoreConfig
		scorer FitCalculator
		expect string
	}{
		{name: "no scorer", cfg: FitScoreConfig{ProductID: "p"}, expect: "fit scorer is not configured"},
		{name: "no product", cfg: FitScoreConfig{ProductID: " "}, scorer: scorer, expect: "product id is required"},
		{name: "negative minimum", cfg: FitScoreConfig{ProductID: "p", MinimumFitScore: -1}, scorer: scorer, expect: "minimum fit score must be between 0 and 100, got -1"},
		{name: "minimum too high", cfg: FitScoreConfig{ProductID: "p", MinimumFitScore: 101}, scorer: scorer, expect: "minimum fit score must be between 0 and 100, got 101"},
		{name: "valid", cfg: FitScoreConfig{ProductID: "p", MinimumFitScore: 100}, scorer: scorer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := NewFitScore(tt.cfg, tt.scorer, nil).Validate()
			if tt.expect == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.expect)
		})
	}
}

func TestFitScoreFilterDelayHonoursCancellation(t *testing.T) {
	calls := 0
	scorer := fitFunc(func(context.Context, string, string, string) *scoring.FitResult {
		calls++
		return scored(90)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	filter := NewFitScore(FitScoreConfig{ProductID: "p", Delay: time.Hour}, scorer, nil)
	_, _, err := filter.Apply(ctx, NewCandidates(contacts("a", "b")))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

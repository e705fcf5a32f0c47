package gemini

import (
	"context"
	"fmt"
	"sync"

	"github.com/spigell/fitscore/internal/ai"
	"go.uber.org/zap"
)

// KeyFunc resolves the API key when the provider is first used.
type KeyFunc func() (string, error)

// Lazy defers client construction until the first completion request.
// Construction happens once; its outcome, including a missing key, is reused.
type Lazy struct {
	key       KeyFunc
	model     string
	logger    *zap.Logger
	maxLogLen int

	build func(ctx context.Context, apiKey string) (*Generator, error)

	once      sync.Once
	generator *Generator
	err       error
}

func NewLazy(key KeyFunc, model string, log *zap.Logger, maxLogLength int) *Lazy {
	if log == nil {
		log = zap.NewNop()
	}

	l := &Lazy{
		key:       key,
		model:     model,
		logger:    log,
		maxLogLen: maxLogLength,
	}
	l.build = func(ctx context.Context, apiKey string) (*Generator, error) {
		return NewGenerator(ctx, apiKey, l.model, l.logger, l.maxLogLen)
	}

	return l
}

func (l *Lazy) Complete(ctx context.Context, req ai.Request) (*ai.Response, error) {
	l.once.Do(func() {
		l.generator, l.err = l.init(ctx)
	})
	if l.err != nil {
		return nil, l.err
	}

	return l.generator.Complete(ctx, req)
}

func (l *Lazy) init(ctx context.Context) (*Generator, error) {
	if l.key == nil {
		return nil, ai.ErrMissingAPIKey
	}

	apiKey, err := l.key()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrMissingAPIKey, err)
	}

	generator, err := l.build(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	l.logger.Info("gemini provider initialized", zap.String("model", generator.Model()))
	return generator, nil
}

// Model returns the configured model, or the default when none was set.
func (l *Lazy) Model() string {
	if l.model == "" {
		return DefaultModel
	}
	return l.model
}

package ai

import (
	"context"
	"errors"
)

// ErrMissingAPIKey is returned by providers that were started without credentials.
// It surfaces on first use rather than at start-up.
var ErrMissingAPIKey = errors.New("ai provider api key is not configured")

// ResponseFormatJSON asks the provider to answer with a JSON object only.
const ResponseFormatJSON = "json_object"

// Request is a single-turn completion request.
type Request struct {
	Model          string
	Temperature    float32
	SystemMessage  string
	UserMessage    string
	ResponseFormat string
}

// Response carries the textual output of a completion.
type Response struct {
	Text  string
	Model string
}

// Completer is the text-completion contract consumed by the scoring subsystem.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// CompleterFunc adapts a plain function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (*Response, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

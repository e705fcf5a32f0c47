package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spigell/fitscore/internal/ai"
	"github.com/spigell/fitscore/internal/logger"
	"github.com/spigell/fitscore/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	ProviderName = "gemini"
	DefaultModel = "gemini-2.5-flash"

	defaultMaxLogLength = 200
	jsonMIMEType        = "application/json"
)

// modelsAPI is the subset of genai.Models used by the generator.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator wraps the Google GenAI client and implements ai.Completer.
type Generator struct {
	models    modelsAPI
	modelName string
	logger    *zap.Logger
	maxLogLen int
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, log *zap.Logger, maxLogLength int) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ai.ErrMissingAPIKey
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, model, log, maxLogLength), nil
}

func newGenerator(models modelsAPI, model string, log *zap.Logger, maxLogLength int) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Generator{
		models:    models,
		modelName: model,
		logger:    logger.WithProvider(log, ProviderName, model),
		maxLogLen: maxLogLength,
	}
}

// Complete sends a single-turn request to Gemini and returns the concatenated text parts.
func (g *Generator) Complete(ctx context.Context, req ai.Request) (*ai.Response, error) {
	if g == nil || g.models == nil {
		return nil, errors.New("gemini generator is not initialized")
	}

	prompt := strings.TrimSpace(req.UserMessage)
	if prompt == "" {
		return nil, errors.New("prompt must not be empty")
	}

	model := g.modelName
	if m := strings.TrimSpace(req.Model); m != "" {
		model = m
	}

	temperature := req.Temperature
	config := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if system := strings.TrimSpace(req.SystemMessage); system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if req.ResponseFormat == ai.ResponseFormatJSON {
		config.ResponseMIMEType = jsonMIMEType
	}

	g.logger.Debug("gemini generate content request",
		zap.String("request_model", model),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.Preview(prompt, g.maxLogLen)),
	)

	resp, err := g.models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	output := collectText(resp)

	g.logger.Debug("gemini generate content response",
		zap.String("request_model", model),
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.Preview(output, g.maxLogLen)),
	)

	return &ai.Response{Text: output, Model: model}, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

// collectText joins the non-empty text parts of every candidate.
// An empty string is a valid result; callers decide what no output means.
func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

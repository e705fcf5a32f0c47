// Package mcptools exposes fit scoring and persona matching as MCP tools.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spigell/fitscore/internal/scoring"
	"go.uber.org/zap"
)

const ServerName = "fitscore"

// FitCalculator scores a contact against a product.
type FitCalculator interface {
	CalculateFitScore(ctx context.Context, contactID, productID, personaID string) *scoring.FitResult
}

// PersonaFinder resolves the best persona for a contact.
type PersonaFinder interface {
	FindMatchingPersona(ctx context.Context, contactID, tenantID string, opts scoring.MatchOptions) *scoring.PersonaMatch
}

// Tools holds the dependencies of the tool handlers.
type Tools struct {
	Scorer  FitCalculator
	Matcher PersonaFinder
	Logger  *zap.Logger
}

type FitScoreInput struct {
	ContactID string `json:"contactId" jsonschema:"CRM contact id"`
	ProductID string `json:"productId" jsonschema:"CRM product id"`
	PersonaID string `json:"personaId,omitempty" jsonschema:"Persona id to score against"`
	TenantID  string `json:"tenantId,omitempty" jsonschema:"Tenant used to resolve a persona when personaId is empty"`
}

type PersonaMatchInput struct {
	ContactID     string `json:"contactId" jsonschema:"CRM contact id"`
	TenantID      string `json:"tenantId" jsonschema:"Tenant whose personas are ranked"`
	ReturnDetails bool   `json:"returnDetails,omitempty" jsonschema:"Include confidence and the per-persona breakdown"`
}

// NewServer creates an MCP server with all tools registered.
func NewServer(t *Tools, version string) *mcp.Server {
	if t.Logger == nil {
		t.Logger = zap.NewNop()
	}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: version,
	}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "calculate_fit_score",
		Description: "Score how well a product fits a CRM contact across five 0-20 dimensions (total 0-100)",
	}, t.CalculateFitScore)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "find_matching_persona",
		Description: "Find the tenant persona that best matches a CRM contact",
	}, t.FindMatchingPersona)

	return srv
}

func (t *Tools) CalculateFitScore(ctx context.Context, _ *mcp.CallToolRequest, in FitScoreInput) (*mcp.CallToolResult, any, error) {
	contactID := strings.TrimSpace(in.ContactID)
	productID := strings.TrimSpace(in.ProductID)
	if contactID == "" || productID == "" {
		return toolError("contactId and productId are required"), nil, nil
	}

	personaID := strings.TrimSpace(in.PersonaID)
	if personaID == "" && in.TenantID != "" {
		personaID = t.Matcher.FindMatchingPersona(ctx, contactID, in.TenantID, scoring.MatchOptions{}).ID()
	}

	res := t.Scorer.CalculateFitScore(ctx, contactID, productID, personaID)
	if !res.Success {
		t.Logger.Info("calculate_fit_score failed",
			zap.String("contact_id", contactID),
			zap.String("error", res.Error),
		)
		return toolError("Fit score failed: %s", res.Error), nil, nil
	}

	return toolJSON(res)
}

func (t *Tools) FindMatchingPersona(ctx context.Context, _ *mcp.CallToolRequest, in PersonaMatchInput) (*mcp.CallToolResult, any, error) {
	match := t.Matcher.FindMatchingPersona(ctx, in.ContactID, in.TenantID, scoring.MatchOptions{
		ReturnDetails: in.ReturnDetails,
	})

	if !in.ReturnDetails {
		return toolJSON(map[string]*string{"personaId": match.PersonaID})
	}
	return toolJSON(match)
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

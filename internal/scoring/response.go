package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	keyPointOfNeed      = "point_of_need"
	keyPainAlignment    = "pain_alignment"
	keyWillingnessToPay = "willingness_to_pay"
	keyImpactPotential  = "impact_potential"
	keyContextFit       = "context_fit"
	keyTotalScore       = "total_score"
	keySummary          = "summary"

	minDimension = 0
	maxDimension = 20
	minTotal     = 0
	maxTotal     = 100
)

var requiredKeys = []string{
	keyPointOfNeed,
	keyPainAlignment,
	keyWillingnessToPay,
	keyImpactPotential,
	keyContextFit,
	keyTotalScore,
	keySummary,
}

var dimensionKeys = []string{
	keyPointOfNeed,
	keyPainAlignment,
	keyWillingnessToPay,
	keyImpactPotential,
	keyContextFit,
}

// parseResponse decodes the provider text as a JSON object, falling back to the
// outermost brace-delimited substring.
func parseResponse(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, newFitError(ErrNoOutput, "No output received")
	}

	if data, ok := decodeObject(text); ok {
		return data, nil
	}

	if candidate := extractObject(text); candidate != "" {
		if data, ok := decodeObject(candidate); ok {
			return data, nil
		}
	}

	return nil, newFitError(ErrInvalidJSON, "invalid JSON response")
}

func decodeObject(text string) (map[string]any, bool) {
	var data map[string]any
	if err := json.Unmarshal([]byte(text), &data); err != nil || data == nil {
		return nil, false
	}
	return data, true
}

// extractObject returns the text between the first '{' and the last '}'.
func extractObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return ""
	}
	return text[start : end+1]
}

func checkRequired(data map[string]any) error {
	for _, key := range requiredKeys {
		if _, ok := data[key]; !ok {
			return missingField(key)
		}
	}
	return nil
}

// coerceFloat accepts JSON numbers and numeric strings. ok is false for anything else.
func coerceFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, !math.IsNaN(val) && !math.IsInf(val, 0)
	case int:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

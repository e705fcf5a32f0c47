package scoring

import "strings"

const (
	BudgetUnknown        = "Unknown"
	BudgetEarlyStage     = "Low - Early stage"
	BudgetContractStage  = "High - Contract stage"
	BudgetExistingClient = "High - Existing client"
	BudgetModerate       = "Moderate"
)

var (
	earlyStages = map[string]struct{}{
		"interest": {},
		"meeting":  {},
		"proposal": {},
	}
	contractStages = map[string]struct{}{
		"contract":        {},
		"contract-signed": {},
		"kickoff":         {},
		"work-started":    {},
	}
)

const clientPipeline = "client"

// BudgetSensitivity infers how price sensitive a contact is from its pipeline position.
// Stage rules are checked before the pipeline category.
func BudgetSensitivity(stage, pipeline string) string {
	stage = strings.ToLower(strings.TrimSpace(stage))
	pipeline = strings.ToLower(strings.TrimSpace(pipeline))

	if stage == "" || pipeline == "" {
		return BudgetUnknown
	}
	if _, ok := earlyStages[stage]; ok {
		return BudgetEarlyStage
	}
	if _, ok := contractStages[stage]; ok {
		return BudgetContractStage
	}
	if pipeline == clientPipeline {
		return BudgetExistingClient
	}

	return BudgetModerate
}

package scoring

import "testing"

func TestBudgetSensitivity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		stage    string
		pipeline string
		expect   string
	}{
		{name: "missing stage", stage: "", pipeline: "client", expect: BudgetUnknown},
		{name: "missing pipeline", stage: "meeting", pipeline: "", expect: BudgetUnknown},
		{name: "blank values", stage: "  ", pipeline: " ", expect: BudgetUnknown},
		{name: "interest", stage: "interest", pipeline: "prospect", expect: BudgetEarlyStage},
		{name: "meeting mixed case", stage: "Meeting", pipeline: "prospect", expect: BudgetEarlyStage},
		{name: "proposal", stage: "PROPOSAL", pipeline: "client", expect: BudgetEarlyStage},
		{name: "contract", stage: "contract", pipeline: "prospect", expect: BudgetContractStage},
		{name: "contract signed beats prospect", stage: "contract-signed", pipeline: "prospect", expect: BudgetContractStage},
		{name: "kickoff", stage: "Kickoff", pipeline: "client", expect: BudgetContractStage},
		{name: "work started", stage: "work-started", pipeline: "partner", expect: BudgetContractStage},
		{name: "existing client", stage: "renewal", pipeline: "Client", expect: BudgetExistingClient},
		{name: "moderate", stage: "qualified", pipeline: "prospect", expect: BudgetModerate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := BudgetSensitivity(tt.stage, tt.pipeline); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

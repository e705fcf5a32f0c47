package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spigell/fitscore/internal/scoring"
	"go.uber.org/zap"
)

const PromptNoPersona = "none (score without a persona)"

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Calculate the fit score of a product for a contact",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runFit(cmd)
	},
}

func init() {
	rootCmd.AddCommand(fitCmd)

	fitCmd.Flags().String("contact", "", "contact id")
	fitCmd.Flags().String("product", "", "product id")
	fitCmd.Flags().String("persona", "", "persona id. Resolved from --tenant when empty")
	fitCmd.Flags().String("tenant", "", "tenant id used to resolve a persona")
	fitCmd.Flags().BoolP("interactive", "i", false, "choose the persona from the ranked candidates")

	fitCmd.MarkFlagRequired("contact")
	fitCmd.MarkFlagRequired("product")
}

func runFit(cmd *cobra.Command) error {
	ctx := cmd.Context()

	a, err := newApplication(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	contactID, _ := cmd.Flags().GetString("contact")
	productID, _ := cmd.Flags().GetString("product")
	personaID, _ := cmd.Flags().GetString("persona")
	tenantID, _ := cmd.Flags().GetString("tenant")
	interactive, _ := cmd.Flags().GetBool("interactive")

	if personaID == "" && tenantID != "" {
		if interactive {
			personaID, err = selectPersona(ctx, a.matcher, contactID, tenantID)
			if err != nil {
				return err
			}
		} else {
			personaID = a.matcher.FindMatchingPersona(ctx, contactID, tenantID, scoring.MatchOptions{}).ID()
		}
		a.logger.Info("persona resolved", zap.String("contact_id", contactID), zap.String("persona_id", personaID))
	}

	res := a.scorer.CalculateFitScore(ctx, contactID, productID, personaID)
	if err := printJSON(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("fit score failed: %s", res.Error)
	}
	return nil
}

// selectPersona prompts for one of the ranked personas with the best match preselected.
func selectPersona(ctx context.Context, matcher *scoring.PersonaMatcher, contactID, tenantID string) (string, error) {
	match := matcher.FindMatchingPersona(ctx, contactID, tenantID, scoring.MatchOptions{ReturnDetails: true})
	if match.Error != "" {
		return "", fmt.Errorf("matching personas: %s", match.Error)
	}

	items := personaItems(match.MatchDetails)
	cursor := len(items) - 1
	for i, detail := range match.MatchDetails {
		if detail.PersonaID == match.ID() {
			cursor = i
		}
	}

	prompt := promptui.Select{
		Label:     fmt.Sprintf("Choose a persona and press ENTER (confidence %d%%)", match.Confidence),
		Items:     items,
		CursorPos: cursor,
		Size:      10,
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return "", err
	}
	if idx >= len(match.MatchDetails) {
		return "", nil
	}
	return match.MatchDetails[idx].PersonaID, nil
}

func personaItems(details []scoring.MatchDetail) []string {
	items := make([]string, 0, len(details)+1)
	for _, d := range details {
		items = append(items, fmt.Sprintf("%s %s / score %.2f / %s",
			d.PersonaID, d.Name, d.Score, strings.Join(d.Reasons, ", "),
		))
	}
	return append(items, PromptNoPersona)
}

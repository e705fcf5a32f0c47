package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spigell/fitscore/internal/scoring"
)

var personaCmd = &cobra.Command{
	Use:   "persona",
	Short: "Find the persona that best matches a contact",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApplication(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		contactID, _ := cmd.Flags().GetString("contact")
		tenantID, _ := cmd.Flags().GetString("tenant")
		details, _ := cmd.Flags().GetBool("details")

		match := a.matcher.FindMatchingPersona(cmd.Context(), contactID, tenantID, scoring.MatchOptions{ReturnDetails: details})
		if !details {
			return printJSON(cmd.OutOrStdout(), map[string]*string{"personaId": match.PersonaID})
		}
		return printJSON(cmd.OutOrStdout(), match)
	},
}

func init() {
	rootCmd.AddCommand(personaCmd)

	personaCmd.Flags().String("contact", "", "contact id")
	personaCmd.Flags().String("tenant", "", "tenant id")
	personaCmd.Flags().Bool("details", false, "print confidence and the per-persona breakdown")

	personaCmd.MarkFlagRequired("contact")
	personaCmd.MarkFlagRequired("tenant")
}

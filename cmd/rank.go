package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/fitscore/internal/crm"
	"github.com/spigell/fitscore/internal/filtering"
	"go.uber.org/zap"
)

type rankOptions struct {
	ProductID string
	TenantID  string
	NoScore   bool
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank the contacts of a tenant by their fit for a product",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApplication(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		var opts rankOptions
		opts.ProductID, _ = cmd.Flags().GetString("product")
		opts.TenantID, _ = cmd.Flags().GetString("tenant")
		opts.NoScore, _ = cmd.Flags().GetBool("no-score")

		ranked, err := rank(cmd.Context(), a, opts)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), ranked.Items)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().String("product", "", "product id")
	rankCmd.Flags().String("tenant", "", "tenant id")
	rankCmd.Flags().Int("min-score", 60, "drop contacts scoring below this total")
	rankCmd.Flags().StringP("exclude-file", "e", "", "special file with contacts to exclude. Default is unset.")
	rankCmd.Flags().Bool("no-score", false, "only match personas, skip fit scoring")

	rankCmd.MarkFlagRequired("product")
	rankCmd.MarkFlagRequired("tenant")

	viper.BindPFlag("rank.minimum-fit-score", rankCmd.Flags().Lookup("min-score"))
	viper.BindPFlag("rank.exclude-file", rankCmd.Flags().Lookup("exclude-file"))
}

func rank(ctx context.Context, a *application, opts rankOptions) (*filtering.Candidates, error) {
	lister, err := a.lister()
	if err != nil {
		return nil, err
	}

	items, err := lister.ListContacts(ctx, opts.TenantID)
	if err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}

	contacts := &crm.Contacts{Items: items}
	a.logger.Info("getting tenant contacts", zap.String("tenant_id", opts.TenantID), zap.Int("count", contacts.Len()))
	a.logger.Debug("tenant contacts", zap.Strings("contact_ids", contacts.IDs()))

	if contacts.Len() == 0 {
		a.logger.Info("exiting", zap.String("reason", "no contacts found"))
		return filtering.NewCandidates(nil), nil
	}

	cfg := a.config.Rank
	if cfg == nil {
		cfg = &RankConfig{}
	}

	steps := []filtering.Filter{
		filtering.NewExcludeFile(cfg.ExcludeFile, a.logger),
		filtering.NewPersona(a.matcher, opts.TenantID, a.logger),
		filtering.NewFitScore(filtering.FitScoreConfig{
			ProductID:       opts.ProductID,
			MinimumFitScore: cfg.MinimumFitScore,
			ExcludeFile:     cfg.ExcludeFile,
			Delay:           cfg.Delay,
		}, a.scorer, a.logger),
	}
	if opts.NoScore {
		filtering.DisableByName(steps, "fit_score", "disabled by --no-score flag")
	}

	for _, status := range filtering.Describe(steps) {
		a.logger.Debug("filter status",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	return filtering.Run(ctx, a.logger, steps, filtering.NewCandidates(contacts.Items))
}

package cmd

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"github.com/spigell/fitscore/internal/mcptools"
	"go.uber.org/zap"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the fit score tools over MCP on stdio",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// stdout carries the protocol
		a, err := newApplication(cmd.Context(), "stderr")
		if err != nil {
			return err
		}
		defer a.Close()

		a.logger.Info("starting the fitscore mcp server", zap.String("version", buildVersion()))

		srv := mcptools.NewServer(&mcptools.Tools{
			Scorer:  a.scorer,
			Matcher: a.matcher,
			Logger:  a.logger,
		}, buildVersion())

		return srv.Run(cmd.Context(), &mcp.StdioTransport{})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

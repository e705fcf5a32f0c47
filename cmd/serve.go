package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/fitscore/internal/server"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the fit score HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApplication(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		addr := server.DefaultAddr
		if a.config.Server != nil && a.config.Server.Addr != "" {
			addr = a.config.Server.Addr
		}

		a.logger.Info("starting the fitscore api", zap.String("version", buildVersion()), zap.String("addr", addr))

		srv := server.New(server.Config{Addr: addr}, a.scorer, a.matcher, a.metrics, a.logger)
		return srv.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

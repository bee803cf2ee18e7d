package cli

import (
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tbourn/agritrade-gateway/internal/config"
	"github.com/tbourn/agritrade-gateway/internal/logging"
	"github.com/tbourn/agritrade-gateway/internal/server"
)

// NewServeCommand creates the serve command, which runs the HTTP gateway
// configured from the environment (and .env when present).
func NewServeCommand(version string) *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "Run the HTTP gateway",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load(envFile)

			cfg, err := config.Load()
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			logger := logging.Setup(cfg.LogLevel, cfg.LogPretty, cmd.ErrOrStderr())

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv, err := server.New(ctx, cfg, logger, version)
			if err != nil {
				return WrapExitError(ExitCommandError, "start gateway", err)
			}
			return srv.Run(ctx, nil)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	return cmd
}

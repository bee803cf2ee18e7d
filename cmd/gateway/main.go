// Command gateway runs the agritrade backend-for-frontend HTTP server.
//
// Configuration comes from the environment; a .env file in the working
// directory is loaded first when present.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/agritrade-gateway/internal/config"
	"github.com/tbourn/agritrade-gateway/internal/logging"
	"github.com/tbourn/agritrade-gateway/internal/server"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// @title       Agritrade Gateway API
// @version     1.0
// @description Backend-for-frontend for the agricultural trading app: validated, idempotent submissions and cached reads in front of the accounting API.
// @BasePath    /api/v1
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogPretty, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, logger, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start gateway")
	}
	if err := srv.Run(ctx, nil); err != nil {
		logger.Fatal().Err(err).Msg("gateway stopped with error")
	}
}

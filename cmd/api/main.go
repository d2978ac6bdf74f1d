package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"studio/internal/app"
	"studio/internal/infra"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("bootstrap failed")
	}
	defer rt.Close()

	server := infra.NewHTTPServer(cfg, rt.Handler())
	logger.Info().
		Str("addr", server.Addr()).
		Bool("postgres", cfg.UsePostgres()).
		Bool("synthetic", rt.Client.Synthetic()).
		Msg("API listening")

	if err := server.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("http server failed")
		return
	}
	logger.Info().Msg("server stopped")
}

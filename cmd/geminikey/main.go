package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"studio/internal/adapter/repo"
	"studio/internal/infra"
	"studio/internal/infra/credentials"
)

func main() {
	_ = godotenv.Load()

	var keyFlag, sourceFlag string
	flag.StringVar(&keyFlag, "key", "", "Gemini API key (falls back to GEMINI_API_KEY)")
	flag.StringVar(&sourceFlag, "source", "cli", "Recorded alongside the key")
	flag.Parse()

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	if key == "" {
		fmt.Fprintln(os.Stderr, "GEMINI API key is required via -key or environment")
		os.Exit(1)
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if !cfg.UsePostgres() {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLoggerTo(os.Stderr, cfg.AppEnv).With().Str("cmd", "geminikey").Logger()
	runner := infra.NewSQLRunner(pool, logger)
	if err := repo.NewProjectRepository(runner).EnsureSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ensure schema: %v\n", err)
		os.Exit(1)
	}

	store := credentials.NewStore(runner)
	updated, err := store.SetGeminiAPIKey(ctx, key, sourceFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist gemini api key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("GEMINI API key stored at %s\n", updated.Format(time.RFC3339))
}

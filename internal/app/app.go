// Package app assembles the configured stores, endpoint client and
// orchestrator shared by the API server and the CLI.
package app

import (
	"context"
	"fmt"
	"net/http"

	"studio/internal/adapter/repo"
	"studio/internal/domain"
	"studio/internal/generation"
	"studio/internal/http/handlers"
	httpapi "studio/internal/http/httpapi"
	"studio/internal/infra"
	"studio/internal/infra/credentials"
	"studio/internal/providers/genai"
	"studio/internal/retry"
	"studio/internal/storage"
)

type Runtime struct {
	Config       *infra.Config
	Logger       infra.Logger
	Projects     domain.ProjectRepository
	Files        *storage.FileStore
	Client       *genai.Client
	Orchestrator *generation.Orchestrator

	db      handlers.Pinger
	closers []func()
}

// Bootstrap opens the metadata store selected by cfg (Postgres when
// DATABASE_URL is set, SQLite otherwise), the file store and the endpoint
// client, and wires the orchestrator on top.
func Bootstrap(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Logger: logger}

	apiKey := cfg.GeminiAPIKey
	if cfg.UsePostgres() {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, pool.Close)
		rt.db = pool

		runner := infra.NewSQLRunner(pool, logger.With().Str("component", "sql").Logger())
		pg := repo.NewProjectRepository(runner)
		if err := pg.EnsureSchema(ctx); err != nil {
			rt.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		rt.Projects = pg

		if apiKey == "" {
			apiKey = storedGeminiKey(ctx, runner, logger)
		}
	} else {
		sqlite, err := repo.OpenSQLiteProjectRepository(cfg.SQLitePath, &logger)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func() { _ = sqlite.Close() })
		rt.db = sqlite
		rt.Projects = sqlite
	}

	files, err := storage.NewFileStore(storage.Options{
		BasePath:   cfg.StoragePath,
		BaseURL:    cfg.StorageBaseURL,
		SigningKey: cfg.StorageSigningKey,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Files = files

	client, err := genai.NewClient(genai.Options{
		APIKey:     apiKey,
		BaseURL:    cfg.GeminiBaseURL,
		ImageModel: cfg.GeminiImageModel,
		VideoModel: cfg.GeminiVideoModel,
		TextModel:  cfg.GeminiTextModel,
		Logger:     &logger,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Client = client
	if client.Synthetic() {
		logger.Warn().Msg("no Gemini API key configured, using synthetic generation")
	}

	deps := generation.Deps{
		Store:  files,
		Retry:  retry.Policy{MaxAttempts: retry.DefaultMaxAttempts, BaseDelay: cfg.RetryBaseDelay},
		Logger: &logger,
	}
	orch, err := generation.NewOrchestrator(generation.Options{
		Image:      generation.NewImageTask(client, deps),
		Video:      generation.NewVideoTask(client, deps),
		Text:       generation.NewTextTask(client, deps),
		Repo:       rt.Projects,
		Presigner:  files,
		PresignTTL: cfg.PresignTTL,
		Deadline:   cfg.GenerationDeadline,
		Logger:     &logger,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Orchestrator = orch
	return rt, nil
}

func storedGeminiKey(ctx context.Context, runner infra.SQLExecutor, logger infra.Logger) string {
	key, err := credentials.NewStore(runner).GeminiAPIKey(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to read stored Gemini API key")
		return ""
	}
	return key
}

// Handler builds the HTTP API on top of the runtime.
func (rt *Runtime) Handler() http.Handler {
	app := handlers.NewApp(handlers.App{
		Generator:  rt.Orchestrator,
		Projects:   rt.Projects,
		Files:      rt.Files,
		Presigner:  rt.Files,
		PresignTTL: rt.Config.PresignTTL,
		DB:         rt.db,
		Logger:     &rt.Logger,
	})
	return httpapi.NewRouter(app, httpapi.RouterOptions{
		Logger:          rt.Logger,
		AllowedOrigins:  rt.Config.CORSAllowedOrigins,
		RateLimitPerMin: rt.Config.RateLimitPerMin,
	})
}

// Close releases stores in reverse opening order.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var errNoDatabaseURL = errors.New("DATABASE_URL is empty")

// NewDBPool connects the Postgres project store.
func NewDBPool(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// poolConfig rejects an empty URL, which pgx would otherwise resolve from
// libpq defaults.
func poolConfig(cfg *Config) (*pgxpool.Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	url := strings.TrimSpace(cfg.DatabaseURL)
	if url == "" {
		return nil, errNoDatabaseURL
	}

	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	maxConns := cfg.DBMaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	poolCfg.MaxConns = int32(maxConns)
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute
	if _, ok := poolCfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = serviceName
	}

	return poolCfg, nil
}

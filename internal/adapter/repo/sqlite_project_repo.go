package repo

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// ProjectRepositorySQLite implements domain.ProjectRepository on a local
// SQLite file for development and CLI runs.
type ProjectRepositorySQLite struct {
	db     *sql.DB
	logger zerolog.Logger
}

// OpenSQLiteProjectRepository opens or creates the database at path and
// applies the schema. Pass ":memory:" for a throwaway store.
func OpenSQLiteProjectRepository(path string, logger *infra.Logger) (*ProjectRepositorySQLite, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	r := &ProjectRepositorySQLite{db: db, logger: zerolog.New(io.Discard)}
	if logger != nil {
		r.logger = *logger
	}
	if err := r.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *ProjectRepositorySQLite) Close() error {
	return r.db.Close()
}

func (r *ProjectRepositorySQLite) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *ProjectRepositorySQLite) migrate(ctx context.Context) error {
	for _, stmt := range sqlinline.SQLiteSchema {
		if _, err := r.exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *ProjectRepositorySQLite) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	marker, body, err := infra.SplitMarker(query)
	if err != nil {
		return nil, err
	}
	r.logger.Debug().Str("sql", marker).Msg("exec")
	res, err := r.db.ExecContext(ctx, body, args...)
	if err != nil {
		r.logger.Error().Err(err).Str("sql", marker).Msg("exec failed")
	}
	return res, err
}

func (r *ProjectRepositorySQLite) queryRow(ctx context.Context, query string, args ...any) (*sql.Row, error) {
	marker, body, err := infra.SplitMarker(query)
	if err != nil {
		return nil, err
	}
	r.logger.Debug().Str("sql", marker).Msg("query_row")
	return r.db.QueryRowContext(ctx, body, args...), nil
}

// Put inserts the project; a second Put for the same ID is a no-op.
func (r *ProjectRepositorySQLite) Put(ctx context.Context, project *domain.Project) error {
	cols, err := encodeProject(project)
	if err != nil {
		return err
	}
	var completed any
	if project.CompletedAt != nil {
		completed = formatTime(*project.CompletedAt)
	}
	_, err = r.exec(ctx, sqlinline.QSQLiteInsertProject,
		project.ID,
		project.UserID,
		project.Prompt,
		string(cols.platforms),
		string(project.Status),
		string(cols.assets),
		string(cols.errors),
		formatTime(project.CreatedAt),
		completed,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// Update writes the terminal transition of a generating project.
func (r *ProjectRepositorySQLite) Update(ctx context.Context, projectID string, update domain.ProjectUpdate) error {
	assets, errs, err := encodeUpdate(update)
	if err != nil {
		return err
	}
	res, err := r.exec(ctx, sqlinline.QSQLiteFinalizeProject,
		string(update.Status),
		string(assets),
		string(errs),
		formatTime(update.CompletedAt),
		projectID,
	)
	if err != nil {
		return fmt.Errorf("finalize project: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	row, err := r.queryRow(ctx, sqlinline.QSQLiteProjectStatus, projectID)
	if err != nil {
		return err
	}
	var current string
	if err := row.Scan(&current); err != nil {
		if infra.IsNoRows(err) {
			return fmt.Errorf("project %s: %w", projectID, domain.ErrNotFound)
		}
		return fmt.Errorf("load project status: %w", err)
	}
	return transitionConflict(projectID, domain.ProjectStatus(current), update.Status)
}

// GetByID fetches a project by its identifier.
func (r *ProjectRepositorySQLite) GetByID(ctx context.Context, projectID string) (*domain.Project, error) {
	row, err := r.queryRow(ctx, sqlinline.QSQLiteSelectProjectByID, projectID)
	if err != nil {
		return nil, err
	}
	var (
		p                       domain.Project
		status, createdAt       string
		platforms, assets, errs string
		completedAt             sql.NullString
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Prompt, &platforms, &status, &assets, &errs, &createdAt, &completedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, fmt.Errorf("project %s: %w", projectID, domain.ErrNotFound)
		}
		return nil, err
	}
	p.Status = domain.ProjectStatus(status)
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	if completedAt.Valid && completedAt.String != "" {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("decode completed_at: %w", err)
		}
		p.CompletedAt = &t
	}
	cols := projectColumns{platforms: []byte(platforms), assets: []byte(assets), errors: []byte(errs)}
	if err := decodeProject(&p, cols); err != nil {
		return nil, err
	}
	return &p, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

var _ domain.ProjectRepository = (*ProjectRepositorySQLite)(nil)

package infra

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// SQLExecutor is the query surface the Postgres adapters depend on.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

// ErrMissingMarker is returned for queries without a leading "--sql <uuid>" line.
var ErrMissingMarker = errors.New("sql marker missing or invalid")

var markerRegexp = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// SQLRunner executes marked queries on a pgx pool and logs every call under its marker.
type SQLRunner struct {
	Pool   *pgxpool.Pool
	Logger zerolog.Logger
}

func NewSQLRunner(pool *pgxpool.Pool, logger zerolog.Logger) *SQLRunner {
	return &SQLRunner{Pool: pool, Logger: logger}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	marker, trimmed, err := SplitMarker(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	r.Logger.Debug().Str("sql", marker).Msg("exec")
	tag, err := r.Pool.Exec(ctx, trimmed, args...)
	if err != nil {
		r.Logger.Error().Err(err).Str("sql", marker).Msg("exec failed")
		return tag, err
	}
	r.Logger.Debug().Str("sql", marker).Int64("rows", tag.RowsAffected()).Msg("exec ok")
	return tag, nil
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	marker, trimmed, err := SplitMarker(query)
	if err != nil {
		return errorRow{err: err}
	}
	r.Logger.Debug().Str("sql", marker).Msg("query_row")
	row := r.Pool.QueryRow(ctx, trimmed, args...)
	return loggingRow{row: row, logger: r.Logger, marker: marker}
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	marker, trimmed, err := SplitMarker(query)
	if err != nil {
		return nil, err
	}
	r.Logger.Debug().Str("sql", marker).Msg("query")
	rows, err := r.Pool.Query(ctx, trimmed, args...)
	if err != nil {
		r.Logger.Error().Err(err).Str("sql", marker).Msg("query failed")
		return nil, err
	}
	return loggingRows{Rows: rows, logger: r.Logger, marker: marker}, nil
}

type loggingRow struct {
	row    pgx.Row
	logger zerolog.Logger
	marker string
}

func (l loggingRow) Scan(dest ...any) error {
	err := l.row.Scan(dest...)
	if err != nil && !IsNoRows(err) {
		l.logger.Error().Err(err).Str("sql", l.marker).Msg("scan failed")
	}
	return err
}

type loggingRows struct {
	pgx.Rows
	logger zerolog.Logger
	marker string
}

func (l loggingRows) Close() {
	l.logger.Debug().Str("sql", l.marker).Msg("rows close")
	l.Rows.Close()
}

type errorRow struct {
	err error
}

func (e errorRow) Scan(dest ...any) error {
	return e.err
}

// IsNoRows reports whether err means a single-row query matched nothing, for
// both pgx and database/sql drivers.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

// SplitMarker validates the marker line of query and returns the marker id
// and the statement body.
func SplitMarker(query string) (string, string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", "", errors.New("empty query")
	}
	lines := strings.Split(trimmed, "\n")
	markerLine := strings.TrimSpace(lines[0])
	if !markerRegexp.MatchString(markerLine) {
		return "", "", ErrMissingMarker
	}
	return strings.TrimPrefix(markerLine, "--sql "), strings.Join(lines[1:], "\n"), nil
}

var _ SQLExecutor = (*SQLRunner)(nil)

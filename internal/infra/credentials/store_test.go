package credentials

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubExecutor struct {
	key     string
	updated time.Time
	err     error
	query   string
	args    []any
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not implemented")
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.query = query
	s.args = args
	return stubRow{key: s.key, updated: s.updated, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	key     string
	updated time.Time
	err     error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != 1 {
		return errors.New("expected one dest")
	}
	switch ptr := dest[0].(type) {
	case *string:
		*ptr = r.key
	case *time.Time:
		*ptr = r.updated
	default:
		return errors.New("invalid dest")
	}
	return nil
}

func TestGeminiAPIKey(t *testing.T) {
	exec := &stubExecutor{key: " abc123 "}
	key, err := NewStore(exec).GeminiAPIKey(context.Background())
	if err != nil {
		t.Fatalf("GeminiAPIKey error: %v", err)
	}
	if key != "abc123" {
		t.Fatalf("expected abc123, got %q", key)
	}
	if len(exec.args) != 1 || exec.args[0] != ProviderGemini {
		t.Fatalf("unexpected args: %v", exec.args)
	}
}

func TestGeminiAPIKeyNoRows(t *testing.T) {
	store := NewStore(&stubExecutor{err: pgx.ErrNoRows})
	key, err := store.GeminiAPIKey(context.Background())
	if err != nil {
		t.Fatalf("GeminiAPIKey error: %v", err)
	}
	if key != "" {
		t.Fatalf("expected empty key, got %q", key)
	}
}

func TestSetGeminiAPIKey(t *testing.T) {
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	exec := &stubExecutor{updated: when}
	updated, err := NewStore(exec).SetGeminiAPIKey(context.Background(), " secret ", " cli ")
	if err != nil {
		t.Fatalf("SetGeminiAPIKey error: %v", err)
	}
	if !updated.Equal(when) {
		t.Fatalf("updated = %v, want %v", updated, when)
	}
	want := []any{ProviderGemini, "secret", "cli"}
	if len(exec.args) != len(want) {
		t.Fatalf("expected %d args, got %d", len(want), len(exec.args))
	}
	for i := range want {
		if exec.args[i] != want[i] {
			t.Fatalf("arg %d = %v, want %v", i, exec.args[i], want[i])
		}
	}
	if !strings.HasPrefix(exec.query, "--sql ") {
		t.Fatalf("query should carry a marker: %q", exec.query)
	}
}

func TestSetGeminiAPIKeyEmpty(t *testing.T) {
	exec := &stubExecutor{}
	if _, err := NewStore(exec).SetGeminiAPIKey(context.Background(), " ", "cli"); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
	if exec.query != "" {
		t.Fatalf("empty key should not reach the database")
	}
}

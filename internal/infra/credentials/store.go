// Package credentials reads and writes provider API keys kept in provider_keys.
package credentials

import (
	"context"
	"errors"
	"strings"
	"time"

	"studio/internal/infra"
	"studio/internal/sqlinline"
)

const ProviderGemini = "gemini"

var ErrEmptyKey = errors.New("credentials: api key is required")

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// GeminiAPIKey returns the stored key, or "" when none has been saved.
func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	return s.APIKey(ctx, ProviderGemini)
}

func (s *Store) APIKey(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectProviderKey, provider)
	var key string
	if err := row.Scan(&key); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(key), nil
}

// SetGeminiAPIKey stores key and reports when the row was last written.
func (s *Store) SetGeminiAPIKey(ctx context.Context, key, source string) (time.Time, error) {
	return s.SetAPIKey(ctx, ProviderGemini, key, source)
}

func (s *Store) SetAPIKey(ctx context.Context, provider, key, source string) (time.Time, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return time.Time{}, ErrEmptyKey
	}
	var updated time.Time
	row := s.sql.QueryRow(ctx, sqlinline.QUpsertProviderKey, provider, key, strings.TrimSpace(source))
	if err := row.Scan(&updated); err != nil {
		return time.Time{}, err
	}
	return updated, nil
}

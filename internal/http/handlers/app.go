package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/generation"
	"studio/internal/infra"
)

// Generator runs one generate call.
type Generator interface {
	Handle(ctx context.Context, in generation.Input) (*generation.Response, error)
}

// Files serves objects behind presigned URLs.
type Files interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Verify(key, expires, signature string) (string, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Generator  Generator
	Projects   domain.ProjectRepository
	Files      Files
	Presigner  generation.Presigner
	PresignTTL time.Duration
	DB         Pinger
	Logger     *infra.Logger
	Now        func() time.Time
}

func NewApp(app App) *App {
	if app.Logger == nil {
		l := zerolog.New(io.Discard)
		app.Logger = &l
	}
	if app.Now == nil {
		app.Now = time.Now
	}
	if app.PresignTTL <= 0 {
		app.PresignTTL = time.Hour
	}
	return &app
}

const (
	codeNotFound  domain.ErrorCode = "NOT_FOUND"
	codeForbidden domain.ErrorCode = "FORBIDDEN"
	codeConflict  domain.ErrorCode = "CONFLICT"
)

type errorEnvelope struct {
	Error *domain.AppError `json:"error"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code domain.ErrorCode, msg string) {
	a.appError(w, status, domain.NewAppError(code, msg, nil, a.Now()))
}

func (a *App) appError(w http.ResponseWriter, status int, appErr *domain.AppError) {
	a.json(w, status, errorEnvelope{Error: appErr})
}

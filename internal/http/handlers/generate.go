package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"studio/internal/domain"
	"studio/internal/generation"
	"studio/internal/middleware"
)

const maxGenerateBody = 64 << 10

type generateRequest struct {
	Prompt    string   `json:"prompt"`
	UserID    string   `json:"user_id"`
	Platforms []string `json:"platforms"`
}

// Generate answers 400 for rejected input and 200 with the blended project
// status for everything else, including partial and failed runs.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxGenerateBody))
	if err := dec.Decode(&req); err != nil {
		a.appError(w, http.StatusBadRequest,
			domain.NewAppError(domain.CodeValidation, "invalid JSON payload", err, a.Now()))
		return
	}

	resp, err := a.Generator.Handle(r.Context(), generation.Input{
		Prompt:    req.Prompt,
		UserID:    req.UserID,
		Platforms: req.Platforms,
		RequestID: middleware.RequestIDFromContext(r.Context()),
	})
	if err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) && appErr.Code == domain.CodeValidation {
			a.appError(w, http.StatusBadRequest, appErr)
			return
		}
		a.Logger.Error().Err(err).Msg("generate: unexpected failure")
		a.error(w, http.StatusInternalServerError, domain.CodeSystem, "internal error")
		return
	}
	a.json(w, http.StatusOK, resp)
}

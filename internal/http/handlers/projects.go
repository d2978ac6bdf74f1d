package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"studio/internal/domain"
	"studio/internal/generation"
)

func (a *App) loadProject(w http.ResponseWriter, r *http.Request) (*domain.Project, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		a.error(w, http.StatusBadRequest, domain.CodeValidation, "project id must be a UUID")
		return nil, false
	}
	project, err := a.Projects.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, codeNotFound, "project not found")
			return nil, false
		}
		a.Logger.Error().Err(err).Str("project_id", id).Msg("projects: lookup failed")
		a.error(w, http.StatusInternalServerError, domain.CodeSystem, "internal error")
		return nil, false
	}
	return project, true
}

func (a *App) GetProject(w http.ResponseWriter, r *http.Request) {
	project, ok := a.loadProject(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, generation.BuildResponse(project, a.Presigner, a.PresignTTL, a.Logger))
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"studio/internal/domain"
	"studio/internal/storage"
)

// File serves an object addressed by a presigned URL.
func (a *App) File(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key, err := a.Files.Verify(q.Get("key"), q.Get("expires"), q.Get("signature"))
	if err != nil {
		if errors.Is(err, storage.ErrInvalidSignature) {
			a.error(w, http.StatusForbidden, codeForbidden, "invalid or expired link")
			return
		}
		a.error(w, http.StatusBadRequest, domain.CodeValidation, "invalid key")
		return
	}
	data, err := a.Files.Read(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			a.error(w, http.StatusNotFound, codeNotFound, "object not found")
			return
		}
		a.Logger.Error().Err(err).Str("key", key).Msg("files: read failed")
		a.error(w, http.StatusInternalServerError, domain.CodeSystem, "internal error")
		return
	}
	contentType := mimeForKey(key)
	if contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

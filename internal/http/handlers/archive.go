package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"

	"studio/internal/assetkey"
	"studio/internal/domain"
	"studio/internal/generation"
	"studio/pkg/zip"
)

// ProjectArchive downloads every stored binary of a project plus a
// project.json manifest and a captions.txt per platform.
func (a *App) ProjectArchive(w http.ResponseWriter, r *http.Request) {
	project, ok := a.loadProject(w, r)
	if !ok {
		return
	}
	if !project.Status.Terminal() {
		a.error(w, http.StatusConflict, codeConflict, "project is still generating")
		return
	}

	prefix := assetkey.Scope{UserID: project.UserID, ProjectID: project.ID}.Prefix() + "/"
	var entries []zip.Asset
	captions := map[domain.Platform][]string{}
	for _, asset := range project.Assets {
		switch asset.Kind {
		case domain.AssetKindCaption:
			if asset.Caption != nil {
				captions[asset.Platform] = append(captions[asset.Platform], asset.Caption.Content)
			}
			continue
		case domain.AssetKindHashtags:
			if asset.Hashtags != nil {
				captions[asset.Platform] = append(captions[asset.Platform], strings.Join(asset.Hashtags.Tags, " "))
			}
			continue
		}
		for _, key := range asset.StorageKeys() {
			data, err := a.Files.Read(r.Context(), key)
			if err != nil {
				a.Logger.Warn().Err(err).Str("project_id", project.ID).Str("key", key).Msg("archive: skipping unreadable object")
				continue
			}
			entries = append(entries, zip.Asset{
				Filename: strings.TrimPrefix(key, prefix),
				MIME:     mimeForKey(key),
				Data:     data,
				Modified: asset.CreatedAt,
			})
		}
	}
	for _, platform := range project.Platforms {
		lines := captions[platform]
		if len(lines) == 0 {
			continue
		}
		entries = append(entries, zip.Asset{
			Filename: fmt.Sprintf("captions/%s.txt", platform),
			MIME:     "text/plain",
			Data:     []byte(strings.Join(lines, "\n\n") + "\n"),
		})
	}
	manifest, err := json.MarshalIndent(generation.BuildResponse(project, nil, 0, a.Logger), "", "  ")
	if err != nil {
		a.error(w, http.StatusInternalServerError, domain.CodeSystem, "internal error")
		return
	}
	entries = append(entries, zip.Asset{Filename: "project.json", MIME: "application/json", Data: manifest})

	archive, err := zip.ArchiveAssets(entries)
	if err != nil {
		a.Logger.Error().Err(err).Str("project_id", project.ID).Msg("archive: build failed")
		a.error(w, http.StatusInternalServerError, domain.CodeSystem, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=project-%s.zip", project.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func mimeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}

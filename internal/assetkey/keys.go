// Package assetkey derives object-store keys for generated assets.
package assetkey

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"studio/internal/domain"
)

// ThumbnailSuffix is inserted before the extension of an image key.
const ThumbnailSuffix = "_thumb"

// Scope identifies the owning user and project.
type Scope struct {
	UserID    string
	ProjectID string
}

// Prefix is the key prefix shared by every asset of the project.
func (s Scope) Prefix() string {
	return fmt.Sprintf("users/%s/projects/%s", url.PathEscape(s.UserID), url.PathEscape(s.ProjectID))
}

// Object returns users/{user}/projects/{project}/{kind}s/{kind}-{NN}{ext}.
// index is the per-kind counter owned by the producing task, starting at 0.
func Object(scope Scope, kind domain.AssetKind, index int, ext string) string {
	if index < 0 {
		index = 0
	}
	ext = normalizeExt(ext)
	name := url.PathEscape(string(kind))
	return fmt.Sprintf("%s/%ss/%s-%02d%s", scope.Prefix(), name, name, index+1, ext)
}

// Thumbnail maps an image key to its thumbnail key.
func Thumbnail(key string) string {
	ext := path.Ext(key)
	return strings.TrimSuffix(key, ext) + ThumbnailSuffix + ext
}

// Parent recovers the image key from a thumbnail key.
func Parent(thumbnailKey string) (string, bool) {
	ext := path.Ext(thumbnailKey)
	base := strings.TrimSuffix(thumbnailKey, ext)
	if !strings.HasSuffix(base, ThumbnailSuffix) {
		return "", false
	}
	return strings.TrimSuffix(base, ThumbnailSuffix) + ext, true
}

// ExtensionForMIME maps a media type to a file extension.
func ExtensionForMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	default:
		return ".bin"
	}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

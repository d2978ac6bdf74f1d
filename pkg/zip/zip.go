// Package zip bundles stored assets into a single archive download.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"
)

type Asset struct {
	Filename string
	MIME     string
	Data     []byte
	Modified time.Time
}

// Write streams the assets as a zip archive to w. Media that is already
// compressed is stored as-is; everything else is deflated.
func Write(w io.Writer, assets []Asset) error {
	zw := zip.NewWriter(w)
	seen := make(map[string]int, len(assets))
	for _, asset := range assets {
		name := strings.TrimLeft(asset.Filename, "/")
		if name == "" {
			continue
		}
		n := seen[name]
		seen[name]++
		if n > 0 {
			name = fmt.Sprintf("%d-%s", n, name)
		}

		hdr := &zip.FileHeader{Name: name, Method: methodFor(asset.MIME)}
		if !asset.Modified.IsZero() {
			hdr.Modified = asset.Modified
		}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("zip: create %s: %w", name, err)
		}
		if _, err := fw.Write(asset.Data); err != nil {
			return fmt.Errorf("zip: write %s: %w", name, err)
		}
	}
	return zw.Close()
}

// ArchiveAssets returns the archive in memory.
func ArchiveAssets(assets []Asset) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, assets); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func methodFor(mime string) uint16 {
	mime = strings.ToLower(mime)
	switch {
	case strings.HasPrefix(mime, "image/png"), strings.HasPrefix(mime, "image/jpeg"),
		strings.HasPrefix(mime, "image/gif"), strings.HasPrefix(mime, "video/"):
		return zip.Store
	default:
		return zip.Deflate
	}
}

// Package imaging resizes generated images to platform sizes and thumbnails.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// DefaultThumbnailEdge is the longest side of a thumbnail in pixels.
const DefaultThumbnailEdge = 320

var ErrEmptyImage = errors.New("imaging: empty image data")

// Dimensions decodes only the header of an encoded image.
func Dimensions(data []byte) (int, int, error) {
	if len(data) == 0 {
		return 0, 0, ErrEmptyImage
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("imaging: decode config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Fit resamples data to exactly width x height and returns PNG bytes. PNGs
// already at the requested size are returned untouched.
func Fit(data []byte, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("imaging: invalid target %dx%d", width, height)
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode config: %w", err)
	}
	if format == "png" && cfg.Width == width && cfg.Height == height {
		return data, nil
	}
	src, err := decode(data)
	if err != nil {
		return nil, err
	}
	return scale(src, width, height)
}

// Thumbnail scales data so its longest edge is maxEdge, preserving aspect ratio.
func Thumbnail(data []byte, maxEdge int) ([]byte, error) {
	if maxEdge <= 0 {
		maxEdge = DefaultThumbnailEdge
	}
	src, err := decode(data)
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w >= h {
		h = max(1, h*maxEdge/w)
		w = maxEdge
	} else {
		w = max(1, w*maxEdge/h)
		h = maxEdge
	}
	return scale(src, w, h)
}

func decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode: %w", err)
	}
	return img, nil
}

func scale(src image.Image, width, height int) ([]byte, error) {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("imaging: encode: %w", err)
	}
	return buf.Bytes(), nil
}

package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestFitResamplesToTarget(t *testing.T) {
	src := encodePNG(t, 64, 48)
	out, err := Fit(src, 120, 63)
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}
	w, h, err := Dimensions(out)
	if err != nil {
		t.Fatalf("Dimensions returned error: %v", err)
	}
	if w != 120 || h != 63 {
		t.Fatalf("dimensions = %dx%d, want 120x63", w, h)
	}
}

func TestFitKeepsMatchingImage(t *testing.T) {
	src := encodePNG(t, 10, 10)
	out, err := Fit(src, 10, 10)
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}
	if !bytes.Equal(out, src) {
		t.Fatalf("matching image should be returned untouched")
	}
}

func TestThumbnailPreservesAspect(t *testing.T) {
	cases := []struct {
		name  string
		w, h  int
		wantW int
		wantH int
	}{
		{name: "portrait", w: 108, h: 135, wantW: 32, wantH: 40},
		{name: "landscape", w: 120, h: 63, wantW: 40, wantH: 21},
		{name: "square", w: 50, h: 50, wantW: 40, wantH: 40},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			out, err := Thumbnail(encodePNG(t, tc.w, tc.h), 40)
			if err != nil {
				t.Fatalf("Thumbnail returned error: %v", err)
			}
			w, h, _ := Dimensions(out)
			if w != tc.wantW || h != tc.wantH {
				t.Fatalf("thumbnail = %dx%d, want %dx%d", w, h, tc.wantW, tc.wantH)
			}
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Thumbnail(nil, 10); !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("Thumbnail(nil) = %v, want ErrEmptyImage", err)
	}
	if _, err := Fit([]byte("not an image"), 10, 10); err == nil {
		t.Fatalf("Fit should reject undecodable data")
	}
}

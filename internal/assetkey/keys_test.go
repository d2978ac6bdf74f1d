package assetkey

import (
	"testing"

	"studio/internal/domain"
)

func TestObjectKeyLayout(t *testing.T) {
	scope := Scope{UserID: "u-1", ProjectID: "p-9"}
	got := Object(scope, domain.AssetKindImage, 0, "png")
	want := "users/u-1/projects/p-9/images/image-01.png"
	if got != want {
		t.Fatalf("Object = %q, want %q", got, want)
	}
	if got := Object(scope, domain.AssetKindVideo, 1, ".MP4"); got != "users/u-1/projects/p-9/videos/video-02.mp4" {
		t.Fatalf("video key = %q", got)
	}
}

func TestObjectKeyEscapesSegments(t *testing.T) {
	scope := Scope{UserID: "../evil", ProjectID: "p/1"}
	got := Object(scope, domain.AssetKindImage, 0, ".png")
	want := "users/..%2Fevil/projects/p%2F1/images/image-01.png"
	if got != want {
		t.Fatalf("Object = %q, want %q", got, want)
	}
}

func TestObjectKeysUniqueWithinProject(t *testing.T) {
	scope := Scope{UserID: "u", ProjectID: "p"}
	seen := map[string]struct{}{}
	for _, kind := range []domain.AssetKind{domain.AssetKindImage, domain.AssetKindVideo} {
		for i := 0; i < 5; i++ {
			key := Object(scope, kind, i, ".bin")
			for _, k := range []string{key, Thumbnail(key)} {
				if _, dup := seen[k]; dup {
					t.Fatalf("duplicate key %q", k)
				}
				seen[k] = struct{}{}
			}
		}
	}
}

func TestThumbnailRoundTrip(t *testing.T) {
	key := "users/u/projects/p/images/image-03.jpg"
	thumb := Thumbnail(key)
	if thumb != "users/u/projects/p/images/image-03_thumb.jpg" {
		t.Fatalf("Thumbnail = %q", thumb)
	}
	parent, ok := Parent(thumb)
	if !ok || parent != key {
		t.Fatalf("Parent = %q, %v; want %q", parent, ok, key)
	}
	if _, ok := Parent(key); ok {
		t.Fatalf("Parent should reject non-thumbnail keys")
	}
}

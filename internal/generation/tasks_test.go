package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"studio/internal/assetkey"
	"studio/internal/domain"
	"studio/internal/providers/genai"
	"studio/internal/retry"
	"studio/internal/storage"
)

func testRequest(platforms ...domain.Platform) Request {
	return Request{ProjectID: "p1", UserID: "u1", Prompt: "Diwali Sale", Platforms: platforms, RequestID: "r1"}
}

func TestPlanImages(t *testing.T) {
	cases := []struct {
		name      string
		platforms []domain.Platform
		want      []string
	}{
		{name: "instagram alternates sizes", platforms: []domain.Platform{domain.PlatformInstagram}, want: []string{"instagram 1080x1080", "instagram 1080x1350", "instagram 1080x1080"}},
		{name: "round robin", platforms: []domain.Platform{domain.PlatformInstagram, domain.PlatformLinkedIn}, want: []string{"instagram 1080x1080", "linkedin 1200x627", "instagram 1080x1350"}},
		{name: "linkedin", platforms: []domain.Platform{domain.PlatformLinkedIn}, want: []string{"linkedin 1200x627", "linkedin 1200x627", "linkedin 1200x627"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slots := planImages(tc.platforms, ImagesPerProject)
			var got []string
			for _, s := range slots {
				got = append(got, fmt.Sprintf("%s %s", s.platform, s.dimensions))
			}
			if strings.Join(got, ",") != strings.Join(tc.want, ",") {
				t.Fatalf("plan = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestImageTaskResizesAndThumbnails(t *testing.T) {
	store := newFileStore(t)
	var calls atomic.Int32
	endpoint := imageFunc(func(ctx context.Context, req genai.ImageRequest) (*genai.ImageResult, error) {
		if calls.Add(1) == 1 {
			return nil, &genai.ServiceError{Kind: genai.KindRateLimited, StatusCode: 429}
		}
		return &genai.ImageResult{Data: pngBytes(t, 64, 48), MIME: "image/png"}, nil
	})
	out := NewImageTask(endpoint, testDeps(t, store)).Run(context.Background(), testRequest(domain.PlatformLinkedIn))
	if out.Failed() {
		t.Fatalf("image task failed: %#v", out.Err)
	}
	if len(out.Assets) != ImagesPerProject {
		t.Fatalf("assets = %d, want %d", len(out.Assets), ImagesPerProject)
	}
	if calls.Load() != ImagesPerProject+1 {
		t.Fatalf("endpoint calls = %d, want one retry on top of %d", calls.Load(), ImagesPerProject)
	}
	for i, a := range out.Assets {
		wantKey := assetkey.Object(assetkey.Scope{UserID: "u1", ProjectID: "p1"}, domain.AssetKindImage, i, ".png")
		if a.Image.StorageKey != wantKey {
			t.Fatalf("key = %s, want %s", a.Image.StorageKey, wantKey)
		}
		if a.Image.ThumbnailKey != assetkey.Thumbnail(wantKey) {
			t.Fatalf("thumbnail key = %s", a.Image.ThumbnailKey)
		}
		if a.Image.Dimensions != (domain.Dimensions{Width: 1200, Height: 627}) {
			t.Fatalf("dimensions = %s", a.Image.Dimensions)
		}
		if _, err := store.Read(context.Background(), a.Image.ThumbnailKey); err != nil {
			t.Fatalf("thumbnail not stored: %v", err)
		}
	}
}

func TestImageTaskKeyCollisionIsSystemError(t *testing.T) {
	store := newFileStore(t)
	first := assetkey.Object(assetkey.Scope{UserID: "u1", ProjectID: "p1"}, domain.AssetKindImage, 0, ".png")
	if err := store.Put(context.Background(), first, []byte("existing")); err != nil {
		t.Fatalf("seed put: %v", err)
	}
	endpoint := imageFunc(func(ctx context.Context, req genai.ImageRequest) (*genai.ImageResult, error) {
		return &genai.ImageResult{Data: pngBytes(t, 8, 8), MIME: "image/png"}, nil
	})
	out := NewImageTask(endpoint, testDeps(t, store)).Run(context.Background(), testRequest(domain.PlatformInstagram))
	if !out.Failed() || out.Err.ErrorCode != domain.CodeSystem {
		t.Fatalf("outcome = %#v, want SYSTEM_ERROR", out.Err)
	}
	if out.Err.Component != domain.ComponentImage {
		t.Fatalf("component = %s", out.Err.Component)
	}
}

func TestImageTaskContentPolicyIsGenerationError(t *testing.T) {
	var calls atomic.Int32
	endpoint := imageFunc(func(ctx context.Context, req genai.ImageRequest) (*genai.ImageResult, error) {
		calls.Add(1)
		return nil, &genai.ServiceError{Kind: genai.KindContentPolicy, Message: "blocked"}
	})
	out := NewImageTask(endpoint, testDeps(t, newFileStore(t))).Run(context.Background(), testRequest(domain.PlatformInstagram))
	if !out.Failed() || out.Err.ErrorCode != domain.CodeGeneration {
		t.Fatalf("outcome = %#v, want GENERATION_ERROR", out.Err)
	}
	if calls.Load() > ImagesPerProject {
		t.Fatalf("terminal errors must not be retried: %d calls", calls.Load())
	}
}

func TestVideoTaskValidatesOutput(t *testing.T) {
	cases := []struct {
		name     string
		result   *genai.VideoResult
		wantCode domain.ErrorCode
		wantFmt  domain.VideoFormat
	}{
		{name: "mp4", result: &genai.VideoResult{Data: []byte("clip"), MIME: "video/mp4", DurationSeconds: 6}, wantFmt: domain.VideoFormatMP4},
		{name: "gif", result: &genai.VideoResult{Data: []byte("GIF89a"), MIME: "image/gif", DurationSeconds: 3}, wantFmt: domain.VideoFormatGIF},
		{name: "too long", result: &genai.VideoResult{Data: []byte("clip"), MIME: "video/mp4", DurationSeconds: 11}, wantCode: domain.CodeGeneration},
		{name: "unknown format", result: &genai.VideoResult{Data: []byte("clip"), MIME: "video/webm", DurationSeconds: 5}, wantCode: domain.CodeGeneration},
		{name: "empty", result: &genai.VideoResult{MIME: "video/mp4", DurationSeconds: 5}, wantCode: domain.CodeGeneration},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			endpoint := videoFunc(func(ctx context.Context, req genai.VideoRequest) (*genai.VideoResult, error) {
				return tc.result, nil
			})
			out := NewVideoTask(endpoint, testDeps(t, newFileStore(t))).Run(context.Background(), testRequest(domain.PlatformInstagram))
			if tc.wantCode != "" {
				if !out.Failed() || out.Err.ErrorCode != tc.wantCode {
					t.Fatalf("outcome err = %#v, want %s", out.Err, tc.wantCode)
				}
				return
			}
			if out.Failed() {
				t.Fatalf("unexpected failure: %#v", out.Err)
			}
			if len(out.Assets) != 1 || out.Assets[0].Video.Format != tc.wantFmt {
				t.Fatalf("assets = %#v", out.Assets)
			}
			if !strings.HasSuffix(out.Assets[0].Video.StorageKey, "video-01."+string(tc.wantFmt)) {
				t.Fatalf("key = %s", out.Assets[0].Video.StorageKey)
			}
		})
	}
}

func TestVideoTaskOnePerPlatform(t *testing.T) {
	endpoint := videoFunc(func(ctx context.Context, req genai.VideoRequest) (*genai.VideoResult, error) {
		return &genai.VideoResult{Data: []byte(req.Platform), MIME: "video/mp4"}, nil
	})
	out := NewVideoTask(endpoint, testDeps(t, newFileStore(t))).Run(context.Background(), testRequest(domain.PlatformInstagram, domain.PlatformLinkedIn))
	if out.Failed() {
		t.Fatalf("unexpected failure: %#v", out.Err)
	}
	if len(out.Assets) != 2 || out.Assets[0].Platform != domain.PlatformInstagram || out.Assets[1].Platform != domain.PlatformLinkedIn {
		t.Fatalf("assets = %#v", out.Assets)
	}
	for _, a := range out.Assets {
		if d := a.Video.DurationSeconds; d != targetDuration("Diwali Sale", a.Platform) {
			t.Fatalf("duration %d should default to the requested target", d)
		}
	}
}

func TestTargetDurationInRange(t *testing.T) {
	for _, prompt := range []string{"a", "Diwali Sale", "Summer launch", "दीवाली सेल", strings.Repeat("x", 500)} {
		for _, p := range []domain.Platform{domain.PlatformInstagram, domain.PlatformLinkedIn} {
			d := targetDuration(prompt, p)
			if d < domain.MinVideoSeconds || d > domain.MaxVideoSeconds {
				t.Fatalf("targetDuration(%q, %s) = %d", prompt, p, d)
			}
			if d != targetDuration(prompt, p) {
				t.Fatalf("targetDuration is not stable")
			}
		}
	}
}

func TestTextTaskBuildsCaptionsAndHashtags(t *testing.T) {
	long := strings.Repeat("word ", 700)
	endpoint := textFunc(func(ctx context.Context, req genai.TextRequest) (*genai.TextResult, error) {
		return &genai.TextResult{
			Captions: []string{long, "Second caption", "  ", "Third caption", "Second caption"},
			Hashtags: []string{"diwali", "#Diwali", "#sale now", "#offers!", "#lights", "#sweets", "#gifts", "#festive"},
		}, nil
	})
	out := NewTextTask(endpoint, testDeps(t, nil)).Run(context.Background(), testRequest(domain.PlatformLinkedIn))
	if out.Failed() {
		t.Fatalf("unexpected failure: %#v", out.Err)
	}
	var captions []domain.Asset
	var sets []domain.Asset
	for _, a := range out.Assets {
		switch a.Kind {
		case domain.AssetKindCaption:
			captions = append(captions, a)
		case domain.AssetKindHashtags:
			sets = append(sets, a)
		}
	}
	if len(captions) != 3 {
		t.Fatalf("captions = %d, want 3", len(captions))
	}
	if n := captions[0].Caption.CharacterCount; n > 3000 || strings.HasSuffix(captions[0].Caption.Content, " ") {
		t.Fatalf("long caption not truncated on a word boundary: %d chars", n)
	}
	if len(sets) != 1 {
		t.Fatalf("hashtag sets = %d, want 1", len(sets))
	}
	want := []string{"#diwali", "#sale", "#now", "#offers", "#lights"}
	if strings.Join(sets[0].Hashtags.Tags, " ") != strings.Join(want, " ") {
		t.Fatalf("tags = %v, want %v", sets[0].Hashtags.Tags, want)
	}
}

func TestTextTaskRejectsThinOutput(t *testing.T) {
	cases := []struct {
		name   string
		result *genai.TextResult
	}{
		{name: "no hashtags", result: &genai.TextResult{Captions: []string{"a", "b", "c"}}},
		{name: "too few hashtags", result: &genai.TextResult{Captions: []string{"a", "b", "c"}, Hashtags: []string{"#one", "#two", "#three", "#four"}}},
		{name: "too few captions", result: &genai.TextResult{Captions: []string{"a", "b"}, Hashtags: []string{"#1", "#2", "#3", "#4", "#5"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			endpoint := textFunc(func(ctx context.Context, req genai.TextRequest) (*genai.TextResult, error) {
				return tc.result, nil
			})
			out := NewTextTask(endpoint, testDeps(t, nil)).Run(context.Background(), testRequest(domain.PlatformInstagram))
			if !out.Failed() || out.Err.ErrorCode != domain.CodeGeneration {
				t.Fatalf("outcome = %#v, want GENERATION_ERROR", out.Err)
			}
		})
	}
}

func TestTruncateWords(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{in: "short", limit: 10, want: "short"},
		{in: "hello brave new world", limit: 13, want: "hello brave"},
		{in: "hello brave new world", limit: 11, want: "hello brave"},
		{in: "unbreakable", limit: 4, want: "unbr"},
		{in: "दीवाली की शुभकामनाएं", limit: 8, want: "दीवाली"},
	}
	for _, tc := range cases {
		if got := truncateWords(tc.in, tc.limit); got != tc.want {
			t.Fatalf("truncateWords(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}

func TestCodeFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want domain.ErrorCode
	}{
		{name: "exhausted", err: &retry.ExhaustedError{Attempts: []retry.Attempt{{Number: 3, Cause: errUnavailable}}}, want: domain.CodeService},
		{name: "unauthorized", err: &genai.ServiceError{Kind: genai.KindUnauthorized}, want: domain.CodeService},
		{name: "malformed", err: fmt.Errorf("wrap: %w", &genai.ServiceError{Kind: genai.KindMalformed}), want: domain.CodeGeneration},
		{name: "empty", err: errEmptyOutput, want: domain.CodeGeneration},
		{name: "invalid asset", err: fmt.Errorf("%w: bad", domain.ErrInvalidAsset), want: domain.CodeGeneration},
		{name: "deadline", err: context.DeadlineExceeded, want: domain.CodeTimeout},
		{name: "storage", err: &storageError{key: "k", err: errors.New("disk full")}, want: domain.CodeService},
		{name: "collision", err: &storageError{key: "k", err: storage.ErrKeyExists}, want: domain.CodeSystem},
		{name: "unknown", err: errors.New("nil map"), want: domain.CodeSystem},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := codeFor(tc.err); got != tc.want {
				t.Fatalf("codeFor = %s, want %s", got, tc.want)
			}
		})
	}
}

package generation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"studio/internal/domain"
	"studio/internal/providers/genai"
	"studio/internal/retry"
	"studio/internal/storage"
)

var fixedNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func noSleep() retry.Policy {
	return retry.Policy{Sleep: func(context.Context, time.Duration) error { return nil }}
}

func newFileStore(t *testing.T) *storage.FileStore {
	t.Helper()
	store, err := storage.NewFileStore(storage.Options{
		BasePath:   t.TempDir(),
		BaseURL:    "http://localhost:8080/v1/files",
		SigningKey: "test-signing-key",
		Now:        clock,
	})
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	return store
}

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("asset-%03d", n.Add(1)) }
}

func testDeps(t *testing.T, store domain.ObjectStore) Deps {
	t.Helper()
	return Deps{Store: store, Retry: noSleep(), Now: clock, NewID: sequentialIDs()}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// memRepo is an in-memory ProjectRepository that records its writes.
type memRepo struct {
	mu        sync.Mutex
	projects  map[string]domain.Project
	puts      int
	updates   []domain.ProjectUpdate
	putErr    error
	updateErr error
}

func newMemRepo() *memRepo {
	return &memRepo{projects: map[string]domain.Project{}}
}

func (r *memRepo) Put(ctx context.Context, p *domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.puts++
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.putErr != nil {
		return r.putErr
	}
	if _, ok := r.projects[p.ID]; !ok {
		r.projects[p.ID] = *p
	}
	return nil
}

func (r *memRepo) Update(ctx context.Context, id string, u domain.ProjectUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
	if r.updateErr != nil {
		return r.updateErr
	}
	p, ok := r.projects[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status, p.Assets, p.Errors, p.CompletedAt = u.Status, u.Assets, u.Errors, &u.CompletedAt
	r.projects[id] = p
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

type imageFunc func(ctx context.Context, req genai.ImageRequest) (*genai.ImageResult, error)

func (f imageFunc) GenerateImage(ctx context.Context, req genai.ImageRequest) (*genai.ImageResult, error) {
	return f(ctx, req)
}

type videoFunc func(ctx context.Context, req genai.VideoRequest) (*genai.VideoResult, error)

func (f videoFunc) GenerateVideo(ctx context.Context, req genai.VideoRequest) (*genai.VideoResult, error) {
	return f(ctx, req)
}

type textFunc func(ctx context.Context, req genai.TextRequest) (*genai.TextResult, error)

func (f textFunc) GenerateText(ctx context.Context, req genai.TextRequest) (*genai.TextResult, error) {
	return f(ctx, req)
}

// stubTask returns a canned outcome, optionally after release is closed.
type stubTask struct {
	component domain.Component
	outcome   Outcome
	release   <-chan struct{}
	panicWith any
	calls     atomic.Int32
}

func (s *stubTask) Component() domain.Component { return s.component }

func (s *stubTask) Run(ctx context.Context, req Request) Outcome {
	s.calls.Add(1)
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	if s.release != nil {
		<-s.release
	}
	out := s.outcome
	out.Component = s.component
	return out
}

func succeeding(component domain.Component, assets ...domain.Asset) *stubTask {
	return &stubTask{component: component, outcome: Outcome{Assets: assets}}
}

func captionAsset(id string, platform domain.Platform, text string) domain.Asset {
	return domain.Asset{ID: id, Kind: domain.AssetKindCaption, Platform: platform, CreatedAt: fixedNow, Caption: domain.NewCaption(text)}
}

var errUnavailable = &genai.ServiceError{Kind: genai.KindUnavailable, StatusCode: 503, Message: "overloaded"}

func isAppError(err error, code domain.ErrorCode) bool {
	var appErr *domain.AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// Package generation runs the image, video and text tasks of one request and
// folds their outcomes into a project.
package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"studio/internal/assetkey"
	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/providers/genai"
	"studio/internal/retry"
	"studio/internal/storage"
)

// Request is the read-only input shared by the three tasks of a project.
type Request struct {
	ProjectID string
	UserID    string
	Prompt    string
	Platforms []domain.Platform
	RequestID string
}

func (r Request) scope() assetkey.Scope {
	return assetkey.Scope{UserID: r.UserID, ProjectID: r.ProjectID}
}

// Outcome is what one task hands back: assets on success, an error record on failure.
type Outcome struct {
	Component domain.Component
	Assets    []domain.Asset
	Err       *domain.GenerationError
}

func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Outcomes holds at most one outcome per component.
type Outcomes map[domain.Component]Outcome

// Task is one generation kind. Run never panics and never returns an error;
// failures come back inside the Outcome.
type Task interface {
	Component() domain.Component
	Run(ctx context.Context, req Request) Outcome
}

type ImageEndpoint interface {
	GenerateImage(ctx context.Context, req genai.ImageRequest) (*genai.ImageResult, error)
}

type VideoEndpoint interface {
	GenerateVideo(ctx context.Context, req genai.VideoRequest) (*genai.VideoResult, error)
}

type TextEndpoint interface {
	GenerateText(ctx context.Context, req genai.TextRequest) (*genai.TextResult, error)
}

// Deps are the collaborators every task needs.
type Deps struct {
	Store  domain.ObjectStore
	Retry  retry.Policy
	Logger *infra.Logger
	Now    func() time.Time
	NewID  func() string
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		l := zerolog.New(io.Discard)
		d.Logger = &l
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = func() string { return ulid.Make().String() }
	}
	return d
}

var errEmptyOutput = errors.New("endpoint returned no usable content")

// outputError marks content that arrived but cannot become a valid asset.
type outputError struct {
	msg string
	err error
}

func (e *outputError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *outputError) Unwrap() error { return e.err }

func invalidOutput(err error, format string, args ...any) error {
	return &outputError{msg: fmt.Sprintf(format, args...), err: err}
}

// storageError wraps a failed object-store write.
type storageError struct {
	key string
	err error
}

func (e *storageError) Error() string {
	return fmt.Sprintf("store %s: %v", e.key, e.err)
}

func (e *storageError) Unwrap() error { return e.err }

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// classifyStorage keeps key collisions and cancellation terminal and retries
// everything else.
func classifyStorage(err error) retry.Classification {
	switch {
	case errors.Is(err, storage.ErrKeyExists),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return retry.Terminal
	default:
		return retry.Retryable
	}
}

func (d Deps) put(ctx context.Context, key string, data []byte) error {
	_, err := retry.Do(ctx, d.Retry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, d.Store.Put(ctx, key, data)
	}, classifyStorage)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &storageError{key: key, err: err}
	}
	return nil
}

// codeFor maps a task failure onto the error taxonomy.
func codeFor(err error) domain.ErrorCode {
	var (
		svc     *genai.ServiceError
		out     *outputError
		stored  *storageError
		panicky *panicError
	)
	switch {
	case errors.As(err, &panicky):
		return domain.CodeSystem
	case errors.As(err, &out), errors.Is(err, errEmptyOutput), errors.Is(err, domain.ErrInvalidAsset):
		return domain.CodeGeneration
	case retry.IsExhausted(err):
		return domain.CodeService
	case errors.As(err, &stored):
		if errors.Is(err, storage.ErrKeyExists) {
			return domain.CodeSystem
		}
		return domain.CodeService
	case errors.As(err, &svc):
		switch svc.Kind {
		case genai.KindContentPolicy, genai.KindMalformed:
			return domain.CodeGeneration
		default:
			return domain.CodeService
		}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return domain.CodeTimeout
	default:
		return domain.CodeSystem
	}
}

func (d Deps) fail(component domain.Component, req Request, err error) Outcome {
	code := codeFor(err)
	msg := err.Error()
	if code == domain.CodeSystem {
		msg = fmt.Sprintf("%s generation failed unexpectedly", component)
	}
	if code == domain.CodeTimeout {
		msg = fmt.Sprintf("%s generation did not finish before the deadline", component)
	}

	event := d.Logger.Warn()
	if code == domain.CodeSystem {
		event = d.Logger.Error()
		var p *panicError
		if errors.As(err, &p) {
			event = event.Bytes("stack", p.stack)
		}
	}
	event.Err(err).
		Str("project_id", req.ProjectID).
		Str("request_id", req.RequestID).
		Str("component", string(component)).
		Str("error_code", string(code)).
		Msg("generation: task failed")

	return Outcome{
		Component: component,
		Err: &domain.GenerationError{
			Component:    component,
			ErrorCode:    code,
			ErrorMessage: msg,
			Timestamp:    d.Now().UTC(),
		},
	}
}

// recoverInto turns a panic in the current goroutine into *errp.
func recoverInto(errp *error) {
	if r := recover(); r != nil {
		*errp = &panicError{value: r, stack: debug.Stack()}
	}
}

// Guard wraps a task so a panic escaping Run becomes a SYSTEM_ERROR outcome.
func Guard(t Task, deps Deps) Task {
	return guardedTask{Task: t, deps: deps.withDefaults()}
}

type guardedTask struct {
	Task
	deps Deps
}

func (g guardedTask) Run(ctx context.Context, req Request) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = g.deps.fail(g.Component(), req, &panicError{value: r, stack: debug.Stack()})
		}
	}()
	out = g.Task.Run(ctx, req)
	out.Component = g.Component()
	if out.Err != nil {
		out.Err.Component = g.Component()
		out.Assets = nil
	}
	return out
}

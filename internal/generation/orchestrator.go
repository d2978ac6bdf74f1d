package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/infra"
)

// DefaultDeadline is the shared budget of the three tasks.
const DefaultDeadline = 30 * time.Second

// Input is one generate call.
type Input struct {
	Prompt    string
	UserID    string
	Platforms []string
	RequestID string
}

// Options wires an Orchestrator.
type Options struct {
	Image      Task
	Video      Task
	Text       Task
	Repo       domain.ProjectRepository
	Presigner  Presigner
	PresignTTL time.Duration
	Deadline   time.Duration
	Logger     *infra.Logger
	Now        func() time.Time
	NewID      func() string
}

// Orchestrator validates a request, records the project, runs the three tasks
// under one deadline and returns whatever finished in time.
type Orchestrator struct {
	tasks      []Task
	lifecycle  *Lifecycle
	presigner  Presigner
	presignTTL time.Duration
	deadline   time.Duration
	logger     *infra.Logger
	now        func() time.Time
	newID      func() string
}

func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Image == nil || opts.Video == nil || opts.Text == nil {
		return nil, errors.New("generation: image, video and text tasks are required")
	}
	if opts.Repo == nil {
		return nil, errors.New("generation: project repository is required")
	}
	logger := opts.Logger
	if logger == nil {
		l := zerolog.New(io.Discard)
		logger = &l
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = func() string { return uuid.NewString() }
	}
	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	ttl := opts.PresignTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	deps := Deps{Logger: logger, Now: now}
	return &Orchestrator{
		tasks:      []Task{Guard(opts.Image, deps), Guard(opts.Video, deps), Guard(opts.Text, deps)},
		lifecycle:  NewLifecycle(opts.Repo, logger, now),
		presigner:  opts.Presigner,
		presignTTL: ttl,
		deadline:   deadline,
		logger:     logger,
		now:        now,
		newID:      newID,
	}, nil
}

// Validate checks input without side effects and returns the parsed platforms.
func (o *Orchestrator) Validate(in Input) ([]domain.Platform, *domain.AppError) {
	if err := domain.ValidatePrompt(in.Prompt); err != nil {
		return nil, domain.NewAppError(domain.CodeValidation, "prompt must be at least 3 characters", err, o.now()).
			WithDetail("field", "prompt")
	}
	if strings.TrimSpace(in.UserID) == "" {
		return nil, domain.NewAppError(domain.CodeValidation, "user_id is required", nil, o.now()).
			WithDetail("field", "user_id")
	}
	if len(in.Platforms) == 0 {
		return nil, domain.NewAppError(domain.CodeValidation, "at least one platform is required", nil, o.now()).
			WithDetail("field", "platforms")
	}
	platforms, err := domain.NormalizePlatforms(in.Platforms)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeValidation, "unsupported platform", err, o.now()).
			WithDetail("field", "platforms").
			WithDetail("supported", []domain.Platform{domain.PlatformInstagram, domain.PlatformLinkedIn})
	}
	return platforms, nil
}

// Handle runs one generate call. The only error it returns is a validation
// *domain.AppError; every later failure is reported inside the Response.
func (o *Orchestrator) Handle(ctx context.Context, in Input) (*Response, error) {
	platforms, appErr := o.Validate(in)
	if appErr != nil {
		o.logger.Info().
			Str("request_id", in.RequestID).
			Str("error_code", string(appErr.Code)).
			Msg("generation: rejected request")
		return nil, appErr
	}

	project := domain.NewProject(o.newID(), strings.TrimSpace(in.UserID), in.Prompt, platforms, o.now())
	// A failed create write is logged by the lifecycle and generation goes on.
	_ = o.lifecycle.Create(ctx, project)

	req := Request{
		ProjectID: project.ID,
		UserID:    project.UserID,
		Prompt:    project.Prompt,
		Platforms: project.Platforms,
		RequestID: in.RequestID,
	}
	started := o.now()
	outcomes := o.fanOut(ctx, req)
	result := Combine(outcomes)

	// Finalize moves the in-memory project before writing; a failed write is
	// logged there and the response is still returned.
	_ = o.lifecycle.Finalize(ctx, project, result)

	o.logger.Info().
		Str("project_id", project.ID).
		Str("request_id", in.RequestID).
		Str("status", string(result.Status)).
		Int("assets", len(result.Assets)).
		Int("errors", len(result.Errors)).
		Dur("elapsed", o.now().Sub(started)).
		Msg("generation: request finished")

	return BuildResponse(project, o.presigner, o.presignTTL, o.logger), nil
}

// fanOut starts every task and collects outcomes until all arrive or the
// deadline passes. Tasks still running are cancelled and their results,
// whenever they come, are dropped.
func (o *Orchestrator) fanOut(ctx context.Context, req Request) Outcomes {
	taskCtx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()

	results := make(chan Outcome, len(o.tasks))
	for _, task := range o.tasks {
		go func() {
			results <- task.Run(taskCtx, req)
		}()
	}

	outcomes := make(Outcomes, len(o.tasks))
collect:
	for len(outcomes) < len(o.tasks) {
		select {
		case out := <-results:
			outcomes[out.Component] = out
		case <-taskCtx.Done():
			break collect
		}
	}

	cancelled := errors.Is(ctx.Err(), context.Canceled)
	for _, task := range o.tasks {
		component := task.Component()
		if _, ok := outcomes[component]; ok {
			continue
		}
		o.logger.Warn().
			Str("project_id", req.ProjectID).
			Str("request_id", req.RequestID).
			Str("component", string(component)).
			Dur("deadline", o.deadline).
			Bool("cancelled", cancelled).
			Msg("generation: task abandoned")
		msg := fmt.Sprintf("%s generation did not finish within %s", component, o.deadline)
		if cancelled {
			msg = fmt.Sprintf("%s generation was cancelled before it finished", component)
		}
		outcomes[component] = Outcome{
			Component: component,
			Err: &domain.GenerationError{
				Component:    component,
				ErrorCode:    domain.CodeTimeout,
				ErrorMessage: msg,
				Timestamp:    o.now().UTC(),
			},
		}
	}
	return outcomes
}

package generation

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/infra"
)

// DefaultWriteTimeout bounds each metadata write.
const DefaultWriteTimeout = 5 * time.Second

// Lifecycle owns the two writes of a project: creation and the single
// terminal transition.
type Lifecycle struct {
	repo         domain.ProjectRepository
	logger       *infra.Logger
	now          func() time.Time
	writeTimeout time.Duration
}

func NewLifecycle(repo domain.ProjectRepository, logger *infra.Logger, now func() time.Time) *Lifecycle {
	if logger == nil {
		l := zerolog.New(io.Discard)
		logger = &l
	}
	if now == nil {
		now = time.Now
	}
	return &Lifecycle{repo: repo, logger: logger, now: now, writeTimeout: DefaultWriteTimeout}
}

// writeContext detaches the write from request cancellation so a project that
// was generated is still recorded when the caller has gone away.
func (l *Lifecycle) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), l.writeTimeout)
}

// Create writes the generating record.
func (l *Lifecycle) Create(ctx context.Context, p *domain.Project) error {
	wctx, cancel := l.writeContext(ctx)
	defer cancel()
	if err := l.repo.Put(wctx, p); err != nil {
		l.logger.Error().Err(err).
			Str("project_id", p.ID).
			Str("user_id", p.UserID).
			Msg("lifecycle: create write failed")
		return fmt.Errorf("create project %s: %w", p.ID, err)
	}
	l.logger.Info().
		Str("project_id", p.ID).
		Str("user_id", p.UserID).
		Str("status", string(p.Status)).
		Msg("lifecycle: project created")
	return nil
}

// Finalize moves p to the result's terminal status in memory, then persists it.
// The in-memory transition stands even when the write fails.
func (l *Lifecycle) Finalize(ctx context.Context, p *domain.Project, res Result) error {
	update, err := p.Finalize(res.Status, res.Assets, res.Errors, l.now())
	if err != nil {
		l.logger.Error().Err(err).
			Str("project_id", p.ID).
			Str("status", string(p.Status)).
			Str("target", string(res.Status)).
			Msg("lifecycle: rejected transition")
		return err
	}

	wctx, cancel := l.writeContext(ctx)
	defer cancel()
	if err := l.repo.Update(wctx, p.ID, update); err != nil {
		l.logger.Error().Err(err).
			Str("project_id", p.ID).
			Str("status", string(update.Status)).
			Msg("lifecycle: finalize write failed")
		return fmt.Errorf("finalize project %s: %w", p.ID, err)
	}
	l.logger.Info().
		Str("project_id", p.ID).
		Str("status", string(update.Status)).
		Int("assets", len(update.Assets)).
		Int("errors", len(update.Errors)).
		Msg("lifecycle: project finalized")
	return nil
}

package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ProjectStatus enumerates project lifecycle states.
type ProjectStatus string

const (
	ProjectStatusGenerating ProjectStatus = "generating"
	ProjectStatusComplete   ProjectStatus = "complete"
	ProjectStatusPartial    ProjectStatus = "partial"
	ProjectStatusFailed     ProjectStatus = "failed"
)

// MinPromptLength is measured in runes after trimming.
const MinPromptLength = 3

// Terminal reports whether no further transition is allowed.
func (s ProjectStatus) Terminal() bool {
	switch s {
	case ProjectStatusComplete, ProjectStatusPartial, ProjectStatusFailed:
		return true
	default:
		return false
	}
}

// Project is the lifecycle record of one generate request.
type Project struct {
	ID          string            `json:"project_id"`
	UserID      string            `json:"user_id"`
	Prompt      string            `json:"prompt"`
	Platforms   []Platform        `json:"platforms"`
	Status      ProjectStatus     `json:"status"`
	Assets      []Asset           `json:"assets"`
	Errors      []GenerationError `json:"errors"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// ProjectUpdate carries the fields written by the single terminal transition.
type ProjectUpdate struct {
	Status      ProjectStatus
	Assets      []Asset
	Errors      []GenerationError
	CompletedAt time.Time
}

// ValidatePrompt rejects prompts shorter than MinPromptLength runes.
func ValidatePrompt(prompt string) error {
	trimmed := strings.TrimSpace(prompt)
	if utf8.RuneCountInString(trimmed) < MinPromptLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrInvalidPrompt, MinPromptLength)
	}
	return nil
}

// NewProject returns a project in the generating state.
func NewProject(id, userID, prompt string, platforms []Platform, now time.Time) *Project {
	return &Project{
		ID:        id,
		UserID:    userID,
		Prompt:    strings.TrimSpace(prompt),
		Platforms: append([]Platform(nil), platforms...),
		Status:    ProjectStatusGenerating,
		Assets:    []Asset{},
		Errors:    []GenerationError{},
		CreatedAt: now.UTC(),
	}
}

// Finalize performs the only transition out of generating.
func (p *Project) Finalize(status ProjectStatus, assets []Asset, errs []GenerationError, at time.Time) (ProjectUpdate, error) {
	if p.Status != ProjectStatusGenerating {
		return ProjectUpdate{}, fmt.Errorf("%w: project %s is already %s", ErrInvalidTransition, p.ID, p.Status)
	}
	if !status.Terminal() {
		return ProjectUpdate{}, fmt.Errorf("%w: project %s cannot move to %q", ErrInvalidTransition, p.ID, status)
	}
	completed := at.UTC()
	p.Status = status
	p.Assets = append([]Asset{}, assets...)
	p.Errors = append([]GenerationError{}, errs...)
	p.CompletedAt = &completed
	return ProjectUpdate{
		Status:      p.Status,
		Assets:      p.Assets,
		Errors:      p.Errors,
		CompletedAt: completed,
	}, nil
}

package repo

import (
	"encoding/json"
	"fmt"

	"studio/internal/domain"
)

// projectColumns holds the JSON-encoded columns shared by every backend.
type projectColumns struct {
	platforms []byte
	assets    []byte
	errors    []byte
}

func encodeProject(p *domain.Project) (projectColumns, error) {
	var cols projectColumns
	var err error
	if cols.platforms, err = marshalList(p.Platforms); err != nil {
		return cols, fmt.Errorf("encode platforms: %w", err)
	}
	if cols.assets, err = marshalList(p.Assets); err != nil {
		return cols, fmt.Errorf("encode assets: %w", err)
	}
	if cols.errors, err = marshalList(p.Errors); err != nil {
		return cols, fmt.Errorf("encode errors: %w", err)
	}
	return cols, nil
}

func encodeUpdate(u domain.ProjectUpdate) (assets, errs []byte, err error) {
	if assets, err = marshalList(u.Assets); err != nil {
		return nil, nil, fmt.Errorf("encode assets: %w", err)
	}
	if errs, err = marshalList(u.Errors); err != nil {
		return nil, nil, fmt.Errorf("encode errors: %w", err)
	}
	return assets, errs, nil
}

func decodeProject(p *domain.Project, cols projectColumns) error {
	p.Platforms = []domain.Platform{}
	p.Assets = []domain.Asset{}
	p.Errors = []domain.GenerationError{}
	if err := unmarshalList(cols.platforms, &p.Platforms); err != nil {
		return fmt.Errorf("decode platforms: %w", err)
	}
	if err := unmarshalList(cols.assets, &p.Assets); err != nil {
		return fmt.Errorf("decode assets: %w", err)
	}
	if err := unmarshalList(cols.errors, &p.Errors); err != nil {
		return fmt.Errorf("decode errors: %w", err)
	}
	return nil
}

// marshalList encodes nil slices as [] so the columns never hold null.
func marshalList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func unmarshalList[T any](raw []byte, dst *[]T) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// transitionConflict turns a finalize write that matched no generating row
// into the right error: nil when the row already holds the requested status.
func transitionConflict(projectID string, current domain.ProjectStatus, want domain.ProjectStatus) error {
	if current == want {
		return nil
	}
	return fmt.Errorf("%w: project %s is already %s", domain.ErrInvalidTransition, projectID, current)
}

package domain

import (
	"context"
	"time"
)

// ProjectRepository is the metadata store. Put and Update are idempotent for
// the same project ID.
type ProjectRepository interface {
	Put(ctx context.Context, project *Project) error
	Update(ctx context.Context, projectID string, update ProjectUpdate) error
	GetByID(ctx context.Context, projectID string) (*Project, error)
}

// ObjectStore is the append-only binary store for generated media.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	PresignedURL(key string, ttl time.Duration) (string, error)
}

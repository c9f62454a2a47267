package repositories

import (
	"context"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
)

// ProgressStore persists the in-flight snapshot of one analysis job.
// Load returns (nil, nil) when nothing is stored or the snapshot has expired.
type ProgressStore interface {
	Save(ctx context.Context, progress *entities.JobProgress) error
	Load(ctx context.Context) (*entities.JobProgress, error)
	Clear(ctx context.Context) error
}

// ProgressStoreProvider hands out a store bound to a user or session scope
type ProgressStoreProvider interface {
	ForScope(scope string) ProgressStore
}

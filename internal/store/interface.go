package store

import (
	"context"

	"github.com/socialstudio/ugc-collector/internal/models"
)

// Store defines the persistence operations the ingestion pipeline needs.
type Store interface {
	// ExistingPermalinks returns the subset of the given permalinks that are
	// already persisted, as a membership set.
	ExistingPermalinks(ctx context.Context, permalinks []string) (map[string]struct{}, error)
	// InsertPost persists one post.
	InsertPost(ctx context.Context, post models.Post) error
	// AppendRun appends a sealed collection run to the history log.
	AppendRun(ctx context.Context, run models.CollectionRun) error
}

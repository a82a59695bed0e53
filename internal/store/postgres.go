package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/socialstudio/ugc-collector/internal/models"
)

// PostgresStore persists posts and run history in Postgres.
type PostgresStore struct {
	db *sqlx.DB
}

// Ensure PostgresStore implements Store
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to Postgres with the given DSN.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing connection; used by tests.
func NewPostgresStoreFromDB(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// ExistingPermalinks performs the batched membership lookup with a single
// IN query, avoiding one round trip per permalink.
func (s *PostgresStore) ExistingPermalinks(ctx context.Context, permalinks []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(permalinks) == 0 {
		return existing, nil
	}

	query, args, err := sqlx.In(`SELECT permalink FROM posts WHERE permalink IN (?)`, permalinks)
	if err != nil {
		return nil, fmt.Errorf("failed to build permalink lookup: %w", err)
	}

	var found []string
	if err := s.db.SelectContext(ctx, &found, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to look up existing permalinks: %w", err)
	}

	for _, permalink := range found {
		existing[permalink] = struct{}{}
	}
	return existing, nil
}

// InsertPost persists one post. The permalink unique constraint backs the
// dedup invariant even if two runs race.
func (s *PostgresStore) InsertPost(ctx context.Context, post models.Post) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (
			id, platform, author_username, permalink, caption, media_type,
			media_url, thumbnail_url, likes_count, comments_count, hashtags,
			status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (permalink) DO NOTHING`,
		post.ID, post.Platform, post.AuthorUsername, post.Permalink,
		post.Caption, post.MediaType, post.MediaURL, post.ThumbnailURL,
		post.LikesCount, post.CommentsCount, pq.Array(post.Hashtags),
		post.Status, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert post %s: %w", post.Permalink, err)
	}

	logrus.Debugf("Inserted post %s", post.Permalink)
	return nil
}

// AppendRun appends one sealed run to the history table.
func (s *PostgresStore) AppendRun(ctx context.Context, run models.CollectionRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collection_runs (
			id, requested_at, finished_at, mode, items_fetched, items_stored,
			errors, success
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.RequestedAt, run.FinishedAt, run.Mode,
		run.ItemsFetched, run.ItemsStored, pq.Array(run.Errors), run.Success,
	)
	if err != nil {
		return fmt.Errorf("failed to append run %s: %w", run.ID, err)
	}
	return nil
}

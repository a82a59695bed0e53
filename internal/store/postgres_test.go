package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialstudio/ugc-collector/internal/models"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewPostgresStoreFromDB(sqlx.NewDb(db, "postgres")), mock
}

func TestExistingPermalinks_BatchedLookup(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"permalink"}).
		AddRow("https://www.instagram.com/p/a/").
		AddRow("https://www.instagram.com/p/c/")

	mock.ExpectQuery(`SELECT permalink FROM posts WHERE permalink IN \(\$1, \$2, \$3\)`).
		WithArgs(
			"https://www.instagram.com/p/a/",
			"https://www.instagram.com/p/b/",
			"https://www.instagram.com/p/c/",
		).
		WillReturnRows(rows)

	existing, err := store.ExistingPermalinks(context.Background(), []string{
		"https://www.instagram.com/p/a/",
		"https://www.instagram.com/p/b/",
		"https://www.instagram.com/p/c/",
	})

	require.NoError(t, err)
	assert.Len(t, existing, 2)
	assert.Contains(t, existing, "https://www.instagram.com/p/a/")
	assert.Contains(t, existing, "https://www.instagram.com/p/c/")
	assert.NotContains(t, existing, "https://www.instagram.com/p/b/")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistingPermalinks_EmptyBatchSkipsQuery(t *testing.T) {
	store, mock := newMockStore(t)

	existing, err := store.ExistingPermalinks(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, existing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistingPermalinks_LookupErrorPropagates(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT permalink FROM posts`).
		WillReturnError(assert.AnError)

	existing, err := store.ExistingPermalinks(context.Background(), []string{"https://www.instagram.com/p/a/"})

	assert.Nil(t, existing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to look up existing permalinks")
}

func TestInsertPost(t *testing.T) {
	store, mock := newMockStore(t)

	post := models.Post{
		ID:             "abc123",
		Platform:       "instagram",
		AuthorUsername: "wanderer",
		Permalink:      "https://www.instagram.com/p/abc123/",
		Caption:        "sunset #travel",
		MediaType:      models.MediaTypeImage,
		MediaURL:       "https://owned.blob.core.windows.net/ugc-media/ugc/1-a.jpg",
		LikesCount:     12,
		CommentsCount:  3,
		Hashtags:       []string{"travel"},
		Status:         "new",
		CreatedAt:      time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec(`INSERT INTO posts`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.InsertPost(context.Background(), post))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPost_ErrorWrapsPermalink(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO posts`).
		WillReturnError(assert.AnError)

	err := store.InsertPost(context.Background(), models.Post{Permalink: "https://www.instagram.com/p/x/"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "https://www.instagram.com/p/x/")
}

func TestAppendRun(t *testing.T) {
	store, mock := newMockStore(t)

	run := models.CollectionRun{
		ID:           "run-1",
		RequestedAt:  time.Now().UTC(),
		FinishedAt:   time.Now().UTC(),
		Mode:         models.ModeHashtag,
		ItemsFetched: 5,
		ItemsStored:  3,
		Errors:       []string{"persist x: boom"},
		Success:      true,
	}

	mock.ExpectExec(`INSERT INTO collection_runs`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.AppendRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPartition(t *testing.T) {
	posts := []models.Post{
		{Permalink: "https://www.instagram.com/p/a/"},
		{Permalink: "https://www.instagram.com/p/b/"},
		{Permalink: "https://www.instagram.com/p/c/"},
	}
	existing := map[string]struct{}{
		"https://www.instagram.com/p/b/": {},
	}

	fresh, known := Partition(posts, existing)

	require.Len(t, fresh, 2)
	require.Len(t, known, 1)
	assert.Equal(t, "https://www.instagram.com/p/a/", fresh[0].Permalink)
	assert.Equal(t, "https://www.instagram.com/p/c/", fresh[1].Permalink)
	assert.Equal(t, "https://www.instagram.com/p/b/", known[0].Permalink)
}

func TestPartition_EmptyMembership(t *testing.T) {
	posts := []models.Post{{Permalink: "https://www.instagram.com/p/a/"}}

	fresh, known := Partition(posts, map[string]struct{}{})

	assert.Len(t, fresh, 1)
	assert.Empty(t, known)
}

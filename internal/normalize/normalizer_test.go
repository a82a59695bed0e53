package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialstudio/ugc-collector/internal/models"
)

func validImageItem(id string) models.RawItem {
	return models.RawItem{
		"id":            id,
		"url":           "https://www.instagram.com/p/" + id + "/",
		"displayUrl":    "https://scontent.cdninstagram.com/v/t51.2885-15/" + id + ".jpg",
		"caption":       "sunset vibes #travel #sunset",
		"ownerUsername": "wanderer",
		"likesCount":    float64(12),
		"commentsCount": float64(3),
		"timestamp":     "2026-08-01T10:00:00Z",
	}
}

func TestNormalize_ImageItem(t *testing.T) {
	posts, err := Normalize([]models.RawItem{validImageItem("abc123")})
	require.NoError(t, err)
	require.Len(t, posts, 1)

	post := posts[0]
	assert.Equal(t, "abc123", post.ID)
	assert.Equal(t, "instagram", post.Platform)
	assert.Equal(t, "wanderer", post.AuthorUsername)
	assert.Equal(t, "https://www.instagram.com/p/abc123/", post.Permalink)
	assert.Equal(t, models.MediaTypeImage, post.MediaType)
	assert.Equal(t, 12, post.LikesCount)
	assert.Equal(t, 3, post.CommentsCount)
	assert.Equal(t, "new", post.Status)
	assert.Equal(t, []string{"travel", "sunset"}, post.Hashtags)
}

func TestNormalize_VideoDetection(t *testing.T) {
	item := validImageItem("vid1")
	item["videoUrl"] = "https://scontent.cdninstagram.com/v/t50.2886-16/vid1.mp4"

	posts, err := Normalize([]models.RawItem{item})
	require.NoError(t, err)
	require.Len(t, posts, 1)

	assert.Equal(t, models.MediaTypeVideo, posts[0].MediaType)
	assert.Equal(t, "https://scontent.cdninstagram.com/v/t50.2886-16/vid1.mp4", posts[0].MediaURL)
}

func TestNormalize_ThumbnailResolution(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(models.RawItem)
		expected string
	}{
		{
			name:     "Display URL wins",
			mutate:   func(item models.RawItem) {},
			expected: "https://scontent.cdninstagram.com/v/t51.2885-15/vid1.jpg",
		},
		{
			name: "First auxiliary image",
			mutate: func(item models.RawItem) {
				delete(item, "displayUrl")
				item["images"] = []interface{}{"https://example.com/cover.jpg"}
			},
			expected: "https://example.com/cover.jpg",
		},
		{
			name: "Extension substitution",
			mutate: func(item models.RawItem) {
				delete(item, "displayUrl")
				item["videoUrl"] = "https://media.example.com/videos/clip.mp4"
			},
			expected: "https://media.example.com/videos/clip.jpg",
		},
		{
			name: "CDN path reconstruction",
			mutate: func(item models.RawItem) {
				delete(item, "displayUrl")
				item["videoUrl"] = "https://scontent.cdninstagram.com/o1/v/t16/f2/m86/Xy9zAbCdEf?efg=q"
			},
			expected: "https://scontent.cdninstagram.com/v/t51.2885-15/Xy9zAbCdEf.jpg",
		},
		{
			name: "All sources empty",
			mutate: func(item models.RawItem) {
				delete(item, "displayUrl")
				item["videoUrl"] = "https://media.example.com/videos/clip"
			},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := validImageItem("vid1")
			item["videoUrl"] = "https://scontent.cdninstagram.com/v/t50.2886-16/vid1.mp4"
			tt.mutate(item)

			posts, err := Normalize([]models.RawItem{item})
			require.NoError(t, err)
			require.Len(t, posts, 1)
			assert.Equal(t, tt.expected, posts[0].ThumbnailURL)
		})
	}
}

func TestNormalize_ExtensionSubstitutionPrecedesReconstruction(t *testing.T) {
	item := validImageItem("vid2")
	delete(item, "displayUrl")
	item["videoUrl"] = "https://scontent.cdninstagram.com/o1/v/t16/f2/m86/AQ0_xYz-1.mp4"

	posts, err := Normalize([]models.RawItem{item})
	require.NoError(t, err)
	require.Len(t, posts, 1)

	// Extension substitution fires before CDN reconstruction and yields a
	// .jpg on the same path.
	assert.Equal(t, "https://scontent.cdninstagram.com/o1/v/t16/f2/m86/AQ0_xYz-1.jpg", posts[0].ThumbnailURL)
}

func TestNormalize_HashtagUnion(t *testing.T) {
	item := validImageItem("tags1")
	item["caption"] = "morning run #fitness #Run"
	item["hashtags"] = []interface{}{"fitness", "#outdoors"}

	posts, err := Normalize([]models.RawItem{item})
	require.NoError(t, err)
	require.Len(t, posts, 1)

	assert.Equal(t, []string{"fitness", "Run", "outdoors"}, posts[0].Hashtags)
}

func TestNormalize_Defaults(t *testing.T) {
	item := models.RawItem{
		"id":         "min1",
		"url":        "https://www.instagram.com/p/min1/",
		"displayUrl": "https://scontent.cdninstagram.com/min1.jpg",
		// no caption, counters or owner
	}

	posts, err := Normalize([]models.RawItem{item})
	require.NoError(t, err)
	require.Len(t, posts, 1)

	post := posts[0]
	assert.Equal(t, "unknown", post.AuthorUsername)
	assert.Zero(t, post.LikesCount)
	assert.Zero(t, post.CommentsCount)
	assert.Empty(t, post.Hashtags)
	assert.False(t, post.CreatedAt.IsZero())
}

func TestNormalize_NegativeCountersClampToZero(t *testing.T) {
	item := validImageItem("neg1")
	item["likesCount"] = float64(-5)
	item["commentsCount"] = "many"

	posts, err := Normalize([]models.RawItem{item})
	require.NoError(t, err)
	require.Len(t, posts, 1)

	assert.Zero(t, posts[0].LikesCount)
	assert.Zero(t, posts[0].CommentsCount)
}

func TestNormalize_DropsMalformedItems(t *testing.T) {
	items := []models.RawItem{
		validImageItem("good1"),
		{}, // missing everything
		{"id": "nomedia", "url": "https://www.instagram.com/p/nomedia/"},
		{"url": "https://www.instagram.com/p/noid/", "displayUrl": "https://x.test/a.jpg"},
		validImageItem("good2"),
	}

	posts, err := Normalize(items)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "good1", posts[0].ID)
	assert.Equal(t, "good2", posts[1].ID)
}

func TestNormalize_SentinelErrorBatch(t *testing.T) {
	items := []models.RawItem{
		{"error": "no_items", "errorDescription": "No posts found for the given hashtag"},
	}

	posts, err := Normalize(items)
	assert.Nil(t, posts)
	require.Error(t, err)

	var emptyErr *EmptyResultError
	require.ErrorAs(t, err, &emptyErr)
	assert.Contains(t, err.Error(), "no items for given input")
	assert.Contains(t, err.Error(), "No posts found for the given hashtag")
}

func TestNormalize_SentinelAmongPostsIsSkipped(t *testing.T) {
	items := []models.RawItem{
		validImageItem("keep1"),
		{"error": "partial_failure"},
	}

	posts, err := Normalize(items)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "keep1", posts[0].ID)
}

func TestNormalize_EmptyInput(t *testing.T) {
	posts, err := Normalize(nil)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

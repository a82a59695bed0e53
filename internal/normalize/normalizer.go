package normalize

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/socialstudio/ugc-collector/internal/models"
)

// EmptyResultError means the provider answered with a sentinel error item
// instead of posts. It is fatal for the whole batch.
type EmptyResultError struct {
	Description string
}

func (e *EmptyResultError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("no items for given input: %s", e.Description)
	}
	return "no items for given input"
}

var hashtagPattern = regexp.MustCompile(`#(\w+)`)

// cdnVideoPattern matches provider CDN video URLs whose path carries no file
// extension, capturing the host and the video filename so a thumbnail path
// can be reconstructed.
var cdnVideoPattern = regexp.MustCompile(`^(https://[^/]*(?:cdninstagram\.com|fbcdn\.net))/(?:[^?]+/)?([A-Za-z0-9_-]{8,})(?:\?.*)?$`)

// Normalize converts raw provider items into canonical posts. Malformed items
// are dropped, never fatal; a sole sentinel error item rejects the batch.
func Normalize(items []models.RawItem) ([]models.Post, error) {
	if len(items) == 1 {
		if desc, ok := sentinelError(items[0]); ok {
			return nil, &EmptyResultError{Description: desc}
		}
	}

	posts := make([]models.Post, 0, len(items))
	for i, item := range items {
		if _, ok := sentinelError(item); ok {
			logrus.Debugf("Skipping sentinel error item at index %d", i)
			continue
		}

		post, ok := normalizeItem(item)
		if !ok {
			logrus.Debugf("Dropping malformed item at index %d", i)
			continue
		}
		posts = append(posts, post)
	}

	return posts, nil
}

// normalizeItem maps one raw item onto a Post. It returns false when the
// item lacks the fields a post cannot exist without.
func normalizeItem(item models.RawItem) (models.Post, bool) {
	id := stringField(item, "id")
	permalink := stringField(item, "url")
	videoURL := stringField(item, "videoUrl")
	displayURL := stringField(item, "displayUrl")

	if id == "" || permalink == "" {
		return models.Post{}, false
	}

	mediaType := models.MediaTypeImage
	mediaURL := displayURL
	if videoURL != "" {
		mediaType = models.MediaTypeVideo
		mediaURL = videoURL
	}
	if mediaURL == "" {
		return models.Post{}, false
	}

	caption := stringField(item, "caption")

	author := stringField(item, "ownerUsername")
	if author == "" {
		author = "unknown"
	}

	post := models.Post{
		ID:             id,
		Platform:       "instagram",
		AuthorUsername: author,
		Permalink:      permalink,
		Caption:        caption,
		MediaType:      mediaType,
		MediaURL:       mediaURL,
		LikesCount:     intField(item, "likesCount"),
		CommentsCount:  intField(item, "commentsCount"),
		Hashtags:       collectHashtags(caption, item),
		Status:         "new",
		CreatedAt:      timestampField(item, "timestamp"),
	}

	if mediaType == models.MediaTypeVideo {
		post.ThumbnailURL = resolveThumbnail(item, videoURL)
	} else {
		post.ThumbnailURL = displayURL
	}

	return post, true
}

// resolveThumbnail picks a thumbnail for a video post. The first source that
// yields a non-empty value wins; an empty result is not an error.
func resolveThumbnail(item models.RawItem, videoURL string) string {
	if display := stringField(item, "displayUrl"); display != "" {
		return display
	}

	if images, ok := item["images"].([]interface{}); ok && len(images) > 0 {
		if first, ok := images[0].(string); ok && first != "" {
			return first
		}
	}

	if thumb := swapVideoExtension(videoURL); thumb != "" {
		return thumb
	}

	if m := cdnVideoPattern.FindStringSubmatch(videoURL); m != nil {
		return fmt.Sprintf("%s/v/t51.2885-15/%s.jpg", m[1], m[2])
	}

	return ""
}

// swapVideoExtension derives an image URL by substituting the video file
// extension, e.g. .mp4 -> .jpg.
func swapVideoExtension(videoURL string) string {
	parsed, err := url.Parse(videoURL)
	if err != nil || parsed.Path == "" {
		return ""
	}

	ext := path.Ext(parsed.Path)
	if ext != ".mp4" && ext != ".mov" && ext != ".webm" {
		return ""
	}

	parsed.Path = strings.TrimSuffix(parsed.Path, ext) + ".jpg"
	return parsed.String()
}

// collectHashtags unions caption-extracted tags with the item's explicit
// hashtag list, preserving first-seen order and case.
func collectHashtags(caption string, item models.RawItem) []string {
	seen := make(map[string]struct{})
	var tags []string

	add := func(tag string) {
		if tag == "" {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	for _, m := range hashtagPattern.FindAllStringSubmatch(caption, -1) {
		add(m[1])
	}

	if list, ok := item["hashtags"].([]interface{}); ok {
		for _, raw := range list {
			if tag, ok := raw.(string); ok {
				add(strings.TrimPrefix(tag, "#"))
			}
		}
	}

	return tags
}

// sentinelError reports whether the item is a request-level error sentinel
// rather than a post.
func sentinelError(item models.RawItem) (string, bool) {
	if _, present := item["error"]; !present {
		return "", false
	}

	desc := stringField(item, "errorDescription")
	if desc == "" {
		desc = stringField(item, "error")
	}
	return desc, true
}

func stringField(item models.RawItem, key string) string {
	value, ok := item[key].(string)
	if !ok {
		return ""
	}
	return value
}

// intField tolerates the numeric shapes JSON decoding can produce and
// defaults anything else, including negatives, to 0.
func intField(item models.RawItem, key string) int {
	var n int
	switch value := item[key].(type) {
	case float64:
		n = int(value)
	case int:
		n = value
	default:
		return 0
	}
	if n < 0 {
		return 0
	}
	return n
}

func timestampField(item models.RawItem, key string) time.Time {
	raw := stringField(item, key)
	if raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return ts
		}
	}
	return time.Now().UTC()
}

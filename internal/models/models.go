package models

import "time"

// Collection modes supported by a ScrapeRequest.
const (
	ModeHashtag  = "hashtag"
	ModeHashtags = "hashtags"
	ModeURLs     = "urls"
)

// Media types for a collected post.
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// ScrapeRequest describes one collection request. It is immutable once
// submitted to a run.
type ScrapeRequest struct {
	Mode            string        `json:"mode"` // "hashtag", "hashtags" or "urls"
	Targets         []string      `json:"targets"`
	ResultsLimit    int           `json:"results_limit"`
	FreshnessWindow time.Duration `json:"freshness_window,omitempty"`
}

// RawItem is a single untyped record as returned by the scraping provider.
// It may represent a post or a sentinel error and is never persisted as-is.
type RawItem map[string]interface{}

// Post is the canonical normalized record produced from a RawItem.
type Post struct {
	ID             string    `json:"id" db:"id"`
	Platform       string    `json:"platform" db:"platform"`
	AuthorUsername string    `json:"author_username" db:"author_username"`
	Permalink      string    `json:"permalink" db:"permalink"` // dedup key, globally unique in the store
	Caption        string    `json:"caption" db:"caption"`
	MediaType      string    `json:"media_type" db:"media_type"` // "image" or "video"
	MediaURL       string    `json:"media_url" db:"media_url"`
	ThumbnailURL   string    `json:"thumbnail_url,omitempty" db:"thumbnail_url"`
	LikesCount     int       `json:"likes_count" db:"likes_count"`
	CommentsCount  int       `json:"comments_count" db:"comments_count"`
	Hashtags       []string  `json:"hashtags" db:"-"`
	Status         string    `json:"status" db:"status"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// MediaAsset is the transient rehosting state for one of a post's URLs.
// ResultURL is always populated after rehosting: either the freshly stored
// URL or SourceURL unchanged.
type MediaAsset struct {
	SourceURL   string `json:"source_url"`
	NeedsRehost bool   `json:"needs_rehost"`
	ResultURL   string `json:"result_url"`
	Rehosted    bool   `json:"rehosted"`
}

// CollectionRun is the outcome record of one ingestion run. It is created at
// run start, sealed at run end and immutable after logging.
type CollectionRun struct {
	ID           string    `json:"id" db:"id"`
	RequestedAt  time.Time `json:"requested_at" db:"requested_at"`
	FinishedAt   time.Time `json:"finished_at" db:"finished_at"`
	Mode         string    `json:"mode" db:"mode"`
	ItemsFetched int       `json:"items_fetched" db:"items_fetched"`
	ItemsStored  int       `json:"items_stored" db:"items_stored"`
	Errors       []string  `json:"errors" db:"-"`
	Success      bool      `json:"success" db:"success"`
}

// ProgressEvent is one step/percentage report emitted while a run executes.
// Within a run, Percentage is monotonically non-decreasing and reaches 100
// only on the terminal event.
type ProgressEvent struct {
	Step       string    `json:"step"`
	Percentage int       `json:"percentage"`
	Current    int       `json:"current,omitempty"`
	Total      int       `json:"total,omitempty"`
	Message    string    `json:"message,omitempty"`
	At         time.Time `json:"at"`
}

package media

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/socialstudio/ugc-collector/internal/config"
	"github.com/socialstudio/ugc-collector/internal/models"
	"github.com/socialstudio/ugc-collector/internal/storage"
)

// hotlinkBlockedHosts are provider CDN host fragments known to refuse direct
// hotlinking; only URLs on these hosts are rehosted.
var hotlinkBlockedHosts = []string{
	"cdninstagram.com",
	"fbcdn.net",
}

// Rehoster copies remote media into owned blob storage through an image
// proxy. Any fetch-or-upload failure falls back to the original URL and is
// never fatal to the owning post.
type Rehoster struct {
	proxyURL  string
	retries   int
	batchSize int
	client    *resty.Client
	blobs     storage.BlobStore
}

// NewRehoster creates a rehoster from explicit configuration.
func NewRehoster(cfg *config.Config, blobs storage.BlobStore) *Rehoster {
	return &Rehoster{
		proxyURL:  cfg.ImageProxyURL,
		retries:   cfg.RehostRetries,
		batchSize: cfg.RehostBatchSize,
		client:    resty.New().SetTimeout(cfg.RehostTimeout),
		blobs:     blobs,
	}
}

// NeedsRehost reports whether a source URL sits on a CDN that blocks
// hotlinking.
func NeedsRehost(sourceURL string) bool {
	parsed, err := url.Parse(sourceURL)
	if err != nil || parsed.Host == "" {
		return false
	}

	for _, host := range hotlinkBlockedHosts {
		if parsed.Host == host || strings.HasSuffix(parsed.Host, "."+host) {
			return true
		}
	}
	return false
}

// RehostAsset resolves one asset. ResultURL is always populated on return.
func (r *Rehoster) RehostAsset(ctx context.Context, asset models.MediaAsset) models.MediaAsset {
	asset.NeedsRehost = NeedsRehost(asset.SourceURL)
	asset.ResultURL = asset.SourceURL
	asset.Rehosted = false

	if !asset.NeedsRehost || asset.SourceURL == "" {
		return asset
	}

	hosted, err := r.copyToStorage(ctx, asset.SourceURL)
	if err != nil {
		logrus.Warnf("Rehost failed for %s, keeping source URL: %v", asset.SourceURL, err)
		return asset
	}

	asset.ResultURL = hosted
	asset.Rehosted = true
	return asset
}

// RehostPosts rewrites the media and thumbnail URLs of the given posts in
// place. The two assets of one post run in parallel; posts advance in fixed
// batches so outbound connections stay bounded. One failing asset never
// cancels its siblings.
func (r *Rehoster) RehostPosts(ctx context.Context, posts []models.Post) {
	for start := 0; start < len(posts); start += r.batchSize {
		end := start + r.batchSize
		if end > len(posts) {
			end = len(posts)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(post *models.Post) {
				defer wg.Done()
				r.rehostPost(ctx, post)
			}(&posts[i])
		}
		wg.Wait()
	}
}

func (r *Rehoster) rehostPost(ctx context.Context, post *models.Post) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		asset := r.RehostAsset(ctx, models.MediaAsset{SourceURL: post.MediaURL})
		post.MediaURL = asset.ResultURL
	}()

	if post.ThumbnailURL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			asset := r.RehostAsset(ctx, models.MediaAsset{SourceURL: post.ThumbnailURL})
			post.ThumbnailURL = asset.ResultURL
		}()
	}

	wg.Wait()
}

// copyToStorage fetches the source bytes through the proxy and uploads them
// under a fresh key, returning the stored public URL.
func (r *Rehoster) copyToStorage(ctx context.Context, sourceURL string) (string, error) {
	data, contentType, err := r.fetchViaProxy(ctx, sourceURL)
	if err != nil {
		return "", err
	}

	key := storageKey(sourceURL)
	if err := r.blobs.Upload(ctx, key, data, contentType); err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}

	return r.blobs.PublicURL(key), nil
}

// fetchViaProxy downloads the source bytes, retrying a bounded number of
// times on any failure.
func (r *Rehoster) fetchViaProxy(ctx context.Context, sourceURL string) ([]byte, string, error) {
	var lastErr error

	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		resp, err := r.client.R().
			SetContext(ctx).
			SetQueryParam("url", sourceURL).
			Get(r.proxyURL)

		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode() != 200 {
			lastErr = fmt.Errorf("proxy returned status %d", resp.StatusCode())
			continue
		}

		return resp.Body(), resp.Header().Get("Content-Type"), nil
	}

	return nil, "", fmt.Errorf("proxy fetch failed after %d attempts: %w", r.retries+1, lastErr)
}

// storageKey builds a collision-resistant key under the ugc/ namespace,
// keeping the source file extension when it is recognizable.
func storageKey(sourceURL string) string {
	ext := ""
	if parsed, err := url.Parse(sourceURL); err == nil {
		ext = path.Ext(parsed.Path)
		if len(ext) > 5 {
			ext = ""
		}
	}

	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("ugc/%d-%s%s", time.Now().UnixNano(), suffix, ext)
}

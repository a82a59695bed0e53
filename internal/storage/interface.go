package storage

import "context"

// BlobStore defines the contract for the owned media store.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(key string) string
}

package storage

import "context"

// BlobStore persists artifact bytes under a key and returns a stable URL the
// service owns, decoupling user-facing results from vendor-hosted locations.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

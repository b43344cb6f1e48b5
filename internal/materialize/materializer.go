// Package materialize copies vendor-hosted artifacts into storage the
// service owns, so result URLs outlive the vendor's hosting.
package materialize

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mediaforge/internal/domain"
	"mediaforge/internal/metrics"
	"mediaforge/internal/storage"
)

type Materializer struct {
	httpClient *http.Client
	store      storage.BlobStore
	maxBytes   int64
	logger     zerolog.Logger
}

func New(store storage.BlobStore, transferTimeout time.Duration, maxBytes int64, logger zerolog.Logger) *Materializer {
	if transferTimeout == 0 {
		transferTimeout = 60 * time.Second
	}
	return &Materializer{
		httpClient: &http.Client{Timeout: transferTimeout},
		store:      store,
		maxBytes:   maxBytes,
		logger:     logger,
	}
}

// Materialize downloads the vendor artifact and re-uploads it under a path
// keyed by owner and generation. Oversized payloads are rejected outright,
// never truncated. The returned errors wrap domain.ErrFetchFailed,
// domain.ErrTooLarge, or domain.ErrUploadFailed so the caller can
// distinguish a lost artifact from one still reachable at the vendor.
func (m *Materializer) Materialize(ctx context.Context, externalURL, ownerID, generationID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, externalURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", domain.ErrFetchFailed, resp.StatusCode)
	}
	if resp.ContentLength > m.maxBytes {
		metrics.ArtifactsTooLarge.Inc()
		return "", fmt.Errorf("%w: content length %d", domain.ErrTooLarge, resp.ContentLength)
	}

	// Read one byte past the ceiling so an unlabeled oversized stream is
	// detected instead of silently cut off.
	data, err := io.ReadAll(io.LimitReader(resp.Body, m.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", domain.ErrFetchFailed, err)
	}
	if int64(len(data)) > m.maxBytes {
		metrics.ArtifactsTooLarge.Inc()
		return "", fmt.Errorf("%w: body exceeds %d bytes", domain.ErrTooLarge, m.maxBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	key := artifactKey(ownerID, generationID, externalURL, contentType)
	url, err := m.store.Put(ctx, key, data, contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}

	m.logger.Info().
		Str("generation_id", generationID).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("materialize: artifact stored")
	return url, nil
}

func artifactKey(ownerID, generationID, externalURL, contentType string) string {
	name := path.Base(strings.SplitN(externalURL, "?", 2)[0])
	if name == "" || name == "." || name == "/" || len(name) > 128 {
		name = "artifact"
	}
	if path.Ext(name) == "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			name += exts[0]
		}
	}
	return fmt.Sprintf("generations/%s/%s/%s", ownerID, generationID, name)
}

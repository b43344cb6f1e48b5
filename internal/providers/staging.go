package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mediaforge/internal/domain"
	"mediaforge/internal/storage"
)

// maxInlineBytes bounds caller-supplied inline payloads. Larger inputs must
// arrive as pre-hosted URLs.
const maxInlineBytes = 25 * 1024 * 1024

// ClientOptions configures one adapter's vendor connection.
type ClientOptions struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Retries int
	Logger  zerolog.Logger
}

func (o ClientOptions) client() *apiClient {
	timeout := o.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return newAPIClient(o.BaseURL, o.APIKey, timeout, o.Retries, o.Logger)
}

// stageInline uploads an inline payload to durable storage and returns a
// fetchable URL for vendors that cannot accept raw bytes.
func stageInline(ctx context.Context, store storage.BlobStore, data []byte, mime, kind string) (string, error) {
	if store == nil {
		return "", fmt.Errorf("%w: inline %s input not supported without blob storage", domain.ErrInvalidInput, kind)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty %s payload", domain.ErrInvalidInput, kind)
	}
	if len(data) > maxInlineBytes {
		return "", fmt.Errorf("%w: inline %s payload too large", domain.ErrInvalidInput, kind)
	}
	key := fmt.Sprintf("uploads/%s/%s%s", kind, uuid.NewString(), extensionForMIME(mime))
	return store.Put(ctx, key, data, mime)
}

func extensionForMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "video/mp4":
		return ".mp4"
	default:
		return ".bin"
	}
}

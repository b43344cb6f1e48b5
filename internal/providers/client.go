package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"mediaforge/internal/domain"
)

// apiClient is the HTTP core shared by every adapter: bearer auth, bounded
// timeouts, and exponential-backoff retry on clearly transient conditions.
// An explicit vendor rejection is final and is never retried.
type apiClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
	retries    int
}

func newAPIClient(baseURL, apiKey string, timeout time.Duration, retries int, logger zerolog.Logger) *apiClient {
	if retries < 1 {
		retries = 1
	}
	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		retries:    retries,
	}
}

type filePart struct {
	field    string
	filename string
	mime     string
	data     []byte
}

func (c *apiClient) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, payload, "application/json", out)
}

func (c *apiClient) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

// postMultipart builds the form body once and replays it on retry.
func (c *apiClient) postMultipart(ctx context.Context, path string, fields map[string]string, files []filePart, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("encode form field: %w", err)
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.filename)
		if err != nil {
			return fmt.Errorf("encode form file: %w", err)
		}
		if _, err := part.Write(f.data); err != nil {
			return fmt.Errorf("encode form file: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("finalize form: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, buf.Bytes(), mw.FormDataContentType(), out)
}

func (c *apiClient) do(ctx context.Context, method, path string, body []byte, contentType string, out any) error {
	op := func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			// Connection-level failure: transient, worth another attempt.
			return fmt.Errorf("%w: %v", domain.ErrVendorUnavailable, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("%w: read response: %v", domain.ErrVendorUnavailable, err)
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if out == nil || len(raw) == 0 {
				return nil
			}
			if err := json.Unmarshal(raw, out); err != nil {
				return backoff.Permanent(fmt.Errorf("%w: decode response: %v", domain.ErrVendorRejected, err))
			}
			return nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: status %d", domain.ErrVendorUnavailable, resp.StatusCode)
		default:
			// 4xx is the vendor's answer, not a glitch. Retrying would
			// re-submit a request the vendor already declined.
			return backoff.Permanent(fmt.Errorf("%w: status %d: %s", domain.ErrVendorRejected, resp.StatusCode, vendorErrorDetail(raw)))
		}
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(retryBackOff(), uint64(c.retries-1)),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		c.logger.Warn().Err(err).Str("method", method).Str("path", path).Msg("vendor call failed")
		return err
	}
	return nil
}

func retryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	return b
}

// vendorErrorDetail pulls a human-readable message out of common vendor
// error envelopes, falling back to the raw body.
func vendorErrorDetail(raw []byte) string {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		for _, s := range []string{envelope.Error, envelope.Message, envelope.Detail} {
			if s != "" {
				return s
			}
		}
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// requireHTTPURL validates a caller-supplied media reference.
func requireHTTPURL(raw, field string) error {
	if raw == "" {
		return fmt.Errorf("%w: %s is required", domain.ErrInvalidInput, field)
	}
	if len(raw) > 2048 {
		return fmt.Errorf("%w: %s too long", domain.ErrInvalidInput, field)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s must be an http(s) url", domain.ErrInvalidInput, field)
	}
	return nil
}

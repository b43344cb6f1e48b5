package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"mediaforge/internal/domain"
)

func testClient(baseURL string, retries int) *apiClient {
	return newAPIClient(baseURL, "test-key", 5*time.Second, retries, zerolog.Nop())
}

func TestDoRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	err := testClient(srv.URL, 3).getJSON(context.Background(), "/thing", &out)
	require.NoError(t, err)
	require.True(t, out.OK)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestDoDoesNotRetryRejections(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"prompt too spicy"}`))
	}))
	defer srv.Close()

	err := testClient(srv.URL, 3).getJSON(context.Background(), "/thing", nil)
	require.ErrorIs(t, err, domain.ErrVendorRejected)
	require.Contains(t, err.Error(), "prompt too spicy")
	require.EqualValues(t, 1, atomic.LoadInt32(&calls), "a 4xx answer must not be retried")
}

func TestDoExhaustsRetriesOnPersistentOutage(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := testClient(srv.URL, 2).getJSON(context.Background(), "/thing", nil)
	require.ErrorIs(t, err, domain.ErrVendorUnavailable)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestDoSendsBearerAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	require.NoError(t, testClient(srv.URL, 1).getJSON(context.Background(), "/thing", nil))
}

func TestVendorErrorDetail(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`{"error":"bad prompt"}`, "bad prompt"},
		{`{"message":"quota exceeded"}`, "quota exceeded"},
		{`{"detail":"nope"}`, "nope"},
		{`plain text body`, "plain text body"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, vendorErrorDetail([]byte(c.raw)))
	}
}

func TestRequireHTTPURL(t *testing.T) {
	require.NoError(t, requireHTTPURL("https://cdn.example.com/a.mp4", "video_url"))
	require.ErrorIs(t, requireHTTPURL("", "video_url"), domain.ErrInvalidInput)
	require.ErrorIs(t, requireHTTPURL("ftp://example.com/a", "video_url"), domain.ErrInvalidInput)
	require.ErrorIs(t, requireHTTPURL("not a url", "video_url"), domain.ErrInvalidInput)
}

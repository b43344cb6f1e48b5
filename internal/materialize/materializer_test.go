package materialize

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"mediaforge/internal/domain"
)

type memStore struct {
	key  string
	data []byte
	err  error
}

func (s *memStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.key = key
	s.data = data
	return "https://assets.example.com/" + key, nil
}

func TestMaterializeStoresArtifact(t *testing.T) {
	payload := []byte("pretend this is an mp4")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write(payload)
	}))
	defer srv.Close()

	store := &memStore{}
	m := New(store, 5*time.Second, 1<<20, zerolog.Nop())

	url, err := m.Materialize(context.Background(), srv.URL+"/clip.mp4", "owner-1", "gen-1")
	require.NoError(t, err)
	require.Equal(t, "https://assets.example.com/generations/owner-1/gen-1/clip.mp4", url)
	require.Equal(t, payload, store.data)
}

func TestMaterializeFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	m := New(&memStore{}, 5*time.Second, 1<<20, zerolog.Nop())
	_, err := m.Materialize(context.Background(), srv.URL+"/clip.mp4", "owner-1", "gen-1")
	require.ErrorIs(t, err, domain.ErrFetchFailed)
}

func TestMaterializeRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 128))
	}))
	defer srv.Close()

	store := &memStore{}
	m := New(store, 5*time.Second, 64, zerolog.Nop())
	_, err := m.Materialize(context.Background(), srv.URL+"/clip.mp4", "owner-1", "gen-1")
	require.ErrorIs(t, err, domain.ErrTooLarge)
	require.Empty(t, store.data, "an oversized artifact must never be stored truncated")
}

func TestMaterializeUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("bytes"))
	}))
	defer srv.Close()

	m := New(&memStore{err: errors.New("bucket offline")}, 5*time.Second, 1<<20, zerolog.Nop())
	_, err := m.Materialize(context.Background(), srv.URL+"/clip.mp4", "owner-1", "gen-1")
	require.ErrorIs(t, err, domain.ErrUploadFailed)
}

func TestArtifactKeyFallbacks(t *testing.T) {
	key := artifactKey("o", "g", "https://cdn.example.com/dl.mp4?token=abc", "")
	require.Equal(t, "generations/o/g/dl.mp4", key, "query string must not leak into the key")

	key = artifactKey("o", "g", "", "")
	require.Equal(t, "generations/o/g/artifact", key)
}

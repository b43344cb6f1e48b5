package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mediaforge/internal/domain"
)

func optsFor(srv *httptest.Server) ClientOptions {
	return ClientOptions{BaseURL: srv.URL, APIKey: "k", Timeout: 5 * time.Second, Retries: 1}
}

func TestPricing(t *testing.T) {
	cases := []struct {
		name    string
		adapter Adapter
		params  Params
		want    int
	}{
		{"sora2 per second", NewSora2(ClientOptions{}), Params{DurationSeconds: 12}, 12},
		{"veo3 double rate", NewVeo3(ClientOptions{}), Params{DurationSeconds: 12}, 24},
		{"lipsync per second", NewLipSync(ClientOptions{}), Params{DurationSeconds: 30}, 30},
		{"lipsync floor", NewLipSync(ClientOptions{}), Params{DurationSeconds: 3}, 5},
		{"infinitetalk per second", NewInfiniteTalk(ClientOptions{}), Params{DurationSeconds: 20}, 40},
		{"infinitetalk floor", NewInfiniteTalk(ClientOptions{}), Params{DurationSeconds: 2}, 10},
		{"nanobanana per image", NewNanoBanana(ClientOptions{}, nil), Params{Quantity: 3}, 12},
		{"nanobanana default quantity", NewNanoBanana(ClientOptions{}, nil), Params{}, 4},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, c.adapter.Price(c.params))
		})
	}
}

func TestValidateBounds(t *testing.T) {
	sora := NewSora2(ClientOptions{})
	require.ErrorIs(t, sora.Validate(Params{DurationSeconds: 10}), domain.ErrInvalidInput)              // no prompt
	require.ErrorIs(t, sora.Validate(Params{Prompt: "p", DurationSeconds: 3}), domain.ErrInvalidInput)  // too short
	require.ErrorIs(t, sora.Validate(Params{Prompt: "p", DurationSeconds: 61}), domain.ErrInvalidInput) // too long
	require.NoError(t, sora.Validate(Params{Prompt: "p", DurationSeconds: 4}))

	veo := NewVeo3(ClientOptions{})
	require.ErrorIs(t, veo.Validate(Params{Prompt: "p", DurationSeconds: 31}), domain.ErrInvalidInput)
	require.NoError(t, veo.Validate(Params{Prompt: "p", DurationSeconds: 30}))

	banana := NewNanoBanana(ClientOptions{}, nil)
	require.ErrorIs(t, banana.Validate(Params{Prompt: "p", Quantity: 5}), domain.ErrInvalidInput)
	require.NoError(t, banana.Validate(Params{Prompt: "p", Quantity: 4}))

	lip := NewLipSync(ClientOptions{})
	require.ErrorIs(t, lip.Validate(Params{DurationSeconds: 10}), domain.ErrInvalidInput) // no video url
	require.NoError(t, lip.Validate(Params{
		VideoURL:        "https://cdn.example.com/v.mp4",
		AudioURL:        "https://cdn.example.com/a.mp3",
		DurationSeconds: 10,
	}))
}

func TestMapStateUnknownStaysProcessing(t *testing.T) {
	for _, native := range []string{"warming_up", "", "SUCCEEDED_V2", "  mystery  "} {
		require.Equal(t, StateProcessing, mapState(native, sora2States), "native status %q", native)
	}
	require.Equal(t, StateCompleted, mapState(" Succeeded ", sora2States))
	require.Equal(t, StateFailed, mapState("rejected", sora2States))
}

func TestSora2Lifecycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/video/tasks":
			var req sora2CreateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Equal(t, "sora-2", req.Model)
			require.Equal(t, 12, req.Duration)
			json.NewEncoder(w).Encode(sora2Task{TaskID: "task-1", Status: "queued"})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/video/tasks/task-1":
			json.NewEncoder(w).Encode(sora2Task{TaskID: "task-1", Status: "succeeded", VideoURL: "https://cdn.example.com/out.mp4", Progress: 100})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s := NewSora2(optsFor(srv))
	handle, err := s.CreateTask(context.Background(), Params{Prompt: "a fox", DurationSeconds: 12})
	require.NoError(t, err)
	require.Equal(t, "task-1", handle)

	st, err := s.GetStatus(context.Background(), handle)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, st.State)
	require.Equal(t, "https://cdn.example.com/out.mp4", st.ResultLocation)
	require.Equal(t, 100, st.ProgressPercent)
}

func TestSora2RejectsEmptyTaskID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewSora2(optsFor(srv)).CreateTask(context.Background(), Params{Prompt: "p", DurationSeconds: 10})
	require.ErrorIs(t, err, domain.ErrVendorRejected)
}

func TestLipSyncInlineAudioGoesMultipart(t *testing.T) {
	audio := []byte("fake-mp3-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/sync", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "https://cdn.example.com/v.mp4", r.FormValue("video_url"))
		require.Empty(t, r.FormValue("audio_url"), "inline audio must replace the url field")

		file, header, err := r.FormFile("audio")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "audio.mp3", header.Filename)
		got, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, audio, got)

		json.NewEncoder(w).Encode(lipSyncJob{JobID: "job-9", Status: "waiting"})
	}))
	defer srv.Close()

	l := NewLipSync(optsFor(srv))
	handle, err := l.CreateTask(context.Background(), Params{
		VideoURL:        "https://cdn.example.com/v.mp4",
		AudioData:       audio,
		AudioMIME:       "audio/mpeg",
		DurationSeconds: 30,
	})
	require.NoError(t, err)
	require.Equal(t, "job-9", handle)
}

func TestLipSyncHostedAudioGoesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/sync", r.URL.Path)
		require.Contains(t, r.Header.Get("Content-Type"), "application/json")

		var req lipSyncCreateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "https://cdn.example.com/v.mp4", req.VideoURL)
		require.Equal(t, "https://cdn.example.com/a.mp3", req.AudioURL)
		require.Equal(t, 30, req.DurationSeconds)

		json.NewEncoder(w).Encode(lipSyncJob{JobID: "job-10", Status: "waiting"})
	}))
	defer srv.Close()

	l := NewLipSync(optsFor(srv))
	handle, err := l.CreateTask(context.Background(), Params{
		VideoURL:        "https://cdn.example.com/v.mp4",
		AudioURL:        "https://cdn.example.com/a.mp3",
		DurationSeconds: 30,
	})
	require.NoError(t, err)
	require.Equal(t, "job-10", handle)
}

type putRecorder struct {
	key  string
	data []byte
	fail bool
}

func (p *putRecorder) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if p.fail {
		return "", fmt.Errorf("bucket offline")
	}
	p.key = key
	p.data = data
	return "https://assets.example.com/" + key, nil
}

func TestNanoBananaStagesInlineImage(t *testing.T) {
	store := &putRecorder{}
	n := NewNanoBanana(ClientOptions{}, store)

	p := Params{Prompt: "a banana", ImageData: []byte{0x89, 0x50}, ImageMIME: "image/png"}
	require.NoError(t, n.Normalize(context.Background(), &p))
	require.Empty(t, p.ImageData, "inline bytes are dropped after staging")
	require.Equal(t, "https://assets.example.com/"+store.key, p.ImageURL)
	require.Contains(t, store.key, "uploads/images/")
	require.Contains(t, store.key, ".png")
}

func TestNanoBananaInlineImageWithoutStore(t *testing.T) {
	n := NewNanoBanana(ClientOptions{}, nil)
	p := Params{Prompt: "a banana", ImageData: []byte{1}}
	require.ErrorIs(t, n.Normalize(context.Background(), &p), domain.ErrInvalidInput)
}

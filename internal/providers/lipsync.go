package providers

import (
	"context"
	"fmt"
	"strconv"

	"mediaforge/internal/domain"
)

// LipSync re-syncs a video's mouth movement to a new audio track. The audio
// may arrive as a hosted URL, submitted as plain JSON, or as inline bytes,
// which go to the vendor in a multipart form.
type LipSync struct {
	c *apiClient
}

const (
	lipSyncPerSecond   = 1
	lipSyncMinCredits  = 5
	lipSyncMaxDuration = 300
)

func NewLipSync(opts ClientOptions) *LipSync {
	return &LipSync{c: opts.client()}
}

func (l *LipSync) Tool() domain.Tool { return domain.ToolLipSync }

// Price charges per second of audio, with a floor.
func (l *LipSync) Price(p Params) int {
	credits := p.DurationSeconds * lipSyncPerSecond
	if credits < lipSyncMinCredits {
		credits = lipSyncMinCredits
	}
	return credits
}

func (l *LipSync) Validate(p Params) error {
	if err := requireHTTPURL(p.VideoURL, "video_url"); err != nil {
		return err
	}
	if len(p.AudioData) == 0 {
		if err := requireHTTPURL(p.AudioURL, "audio_url"); err != nil {
			return err
		}
	} else if len(p.AudioData) > maxInlineBytes {
		return fmt.Errorf("%w: inline audio payload too large", domain.ErrInvalidInput)
	}
	if p.DurationSeconds <= 0 || p.DurationSeconds > lipSyncMaxDuration {
		return fmt.Errorf("%w: audio duration must be 1-%ds", domain.ErrInvalidInput, lipSyncMaxDuration)
	}
	return nil
}

func (l *LipSync) Normalize(ctx context.Context, p *Params) error { return nil }

type lipSyncJob struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Output   string `json:"output"`
	Reason   string `json:"reason"`
	Progress int    `json:"progress"`
}

type lipSyncCreateRequest struct {
	VideoURL        string `json:"video_url"`
	AudioURL        string `json:"audio_url"`
	DurationSeconds int    `json:"duration_seconds"`
}

func (l *LipSync) CreateTask(ctx context.Context, p Params) (string, error) {
	var job lipSyncJob
	if len(p.AudioData) > 0 {
		fields := map[string]string{
			"video_url":        p.VideoURL,
			"duration_seconds": strconv.Itoa(p.DurationSeconds),
		}
		files := []filePart{{
			field:    "audio",
			filename: "audio" + extensionForMIME(p.AudioMIME),
			mime:     p.AudioMIME,
			data:     p.AudioData,
		}}
		if err := l.c.postMultipart(ctx, "/v2/sync", fields, files, &job); err != nil {
			return "", err
		}
	} else {
		req := lipSyncCreateRequest{
			VideoURL:        p.VideoURL,
			AudioURL:        p.AudioURL,
			DurationSeconds: p.DurationSeconds,
		}
		if err := l.c.postJSON(ctx, "/v2/sync", req, &job); err != nil {
			return "", err
		}
	}
	if job.JobID == "" {
		return "", fmt.Errorf("%w: empty job id", domain.ErrVendorRejected)
	}
	return job.JobID, nil
}

var lipSyncStates = map[string]State{
	"waiting":    StateProcessing,
	"processing": StateProcessing,
	"done":       StateCompleted,
	"error":      StateFailed,
	"canceled":   StateFailed,
}

func (l *LipSync) GetStatus(ctx context.Context, taskHandle string) (Status, error) {
	var job lipSyncJob
	if err := l.c.getJSON(ctx, "/v2/sync/"+taskHandle, &job); err != nil {
		return Status{}, err
	}
	return Status{
		State:           mapState(job.Status, lipSyncStates),
		ResultLocation:  job.Output,
		ErrorMessage:    job.Reason,
		ProgressPercent: job.Progress,
	}, nil
}

func (l *LipSync) FetchResultLocation(ctx context.Context, taskHandle string) (string, error) {
	var out struct {
		DownloadURL string `json:"download_url"`
	}
	if err := l.c.getJSON(ctx, "/v2/sync/"+taskHandle+"/download", &out); err != nil {
		return "", err
	}
	return out.DownloadURL, nil
}

var _ Adapter = (*LipSync)(nil)

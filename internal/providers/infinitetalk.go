package providers

import (
	"context"
	"fmt"
	"strconv"

	"mediaforge/internal/domain"
)

// InfiniteTalk animates a portrait image into a talking-head video driven by
// an audio track. Both inputs may be hosted URLs or inline bytes.
type InfiniteTalk struct {
	c *apiClient
}

const (
	infiniteTalkPerSecond   = 2
	infiniteTalkMinCredits  = 10
	infiniteTalkMaxDuration = 180
)

func NewInfiniteTalk(opts ClientOptions) *InfiniteTalk {
	return &InfiniteTalk{c: opts.client()}
}

func (i *InfiniteTalk) Tool() domain.Tool { return domain.ToolInfiniteTalk }

func (i *InfiniteTalk) Price(p Params) int {
	credits := p.DurationSeconds * infiniteTalkPerSecond
	if credits < infiniteTalkMinCredits {
		credits = infiniteTalkMinCredits
	}
	return credits
}

func (i *InfiniteTalk) Validate(p Params) error {
	if len(p.ImageData) == 0 {
		if err := requireHTTPURL(p.ImageURL, "image_url"); err != nil {
			return err
		}
	} else if len(p.ImageData) > maxInlineBytes {
		return fmt.Errorf("%w: inline image payload too large", domain.ErrInvalidInput)
	}
	if len(p.AudioData) == 0 {
		if err := requireHTTPURL(p.AudioURL, "audio_url"); err != nil {
			return err
		}
	} else if len(p.AudioData) > maxInlineBytes {
		return fmt.Errorf("%w: inline audio payload too large", domain.ErrInvalidInput)
	}
	if p.DurationSeconds <= 0 || p.DurationSeconds > infiniteTalkMaxDuration {
		return fmt.Errorf("%w: audio duration must be 1-%ds", domain.ErrInvalidInput, infiniteTalkMaxDuration)
	}
	return nil
}

func (i *InfiniteTalk) Normalize(ctx context.Context, p *Params) error { return nil }

type infiniteTalkTask struct {
	ID       string `json:"id"`
	Phase    string `json:"phase"`
	VideoURL string `json:"video_url"`
	Detail   string `json:"detail"`
	Progress int    `json:"progress"`
}

func (i *InfiniteTalk) CreateTask(ctx context.Context, p Params) (string, error) {
	fields := map[string]string{
		"image_url":        p.ImageURL,
		"audio_url":        p.AudioURL,
		"duration_seconds": strconv.Itoa(p.DurationSeconds),
		"resolution":       p.Resolution,
	}
	var files []filePart
	if len(p.ImageData) > 0 {
		delete(fields, "image_url")
		files = append(files, filePart{
			field:    "image",
			filename: "portrait" + extensionForMIME(p.ImageMIME),
			mime:     p.ImageMIME,
			data:     p.ImageData,
		})
	}
	if len(p.AudioData) > 0 {
		delete(fields, "audio_url")
		files = append(files, filePart{
			field:    "audio",
			filename: "speech" + extensionForMIME(p.AudioMIME),
			mime:     p.AudioMIME,
			data:     p.AudioData,
		})
	}
	var task infiniteTalkTask
	if err := i.c.postMultipart(ctx, "/api/talk", fields, files, &task); err != nil {
		return "", err
	}
	if task.ID == "" {
		return "", fmt.Errorf("%w: empty task id", domain.ErrVendorRejected)
	}
	return task.ID, nil
}

var infiniteTalkStates = map[string]State{
	"queued":    StateProcessing,
	"rendering": StateProcessing,
	"complete":  StateCompleted,
	"failed":    StateFailed,
}

func (i *InfiniteTalk) GetStatus(ctx context.Context, taskHandle string) (Status, error) {
	var task infiniteTalkTask
	if err := i.c.getJSON(ctx, "/api/talk/"+taskHandle, &task); err != nil {
		return Status{}, err
	}
	return Status{
		State:           mapState(task.Phase, infiniteTalkStates),
		ResultLocation:  task.VideoURL,
		ErrorMessage:    task.Detail,
		ProgressPercent: task.Progress,
	}, nil
}

func (i *InfiniteTalk) FetchResultLocation(ctx context.Context, taskHandle string) (string, error) {
	var task infiniteTalkTask
	if err := i.c.getJSON(ctx, "/api/talk/"+taskHandle, &task); err != nil {
		return "", err
	}
	return task.VideoURL, nil
}

var _ Adapter = (*InfiniteTalk)(nil)

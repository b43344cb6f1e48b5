package providers

import (
	"context"
	"fmt"

	"mediaforge/internal/domain"
)

// Sora2 generates text-to-video clips, optionally seeded with a reference
// image. Priced per second of requested output.
type Sora2 struct {
	c *apiClient
}

const (
	sora2PerSecond   = 1
	sora2MinDuration = 4
	sora2MaxDuration = 60
)

func NewSora2(opts ClientOptions) *Sora2 {
	return &Sora2{c: opts.client()}
}

func (s *Sora2) Tool() domain.Tool { return domain.ToolSora2 }

func (s *Sora2) Price(p Params) int {
	return ceilDiv(p.DurationSeconds*sora2PerSecond, 1)
}

func (s *Sora2) Validate(p Params) error {
	if p.Prompt == "" {
		return fmt.Errorf("%w: prompt is required", domain.ErrInvalidInput)
	}
	if p.DurationSeconds < sora2MinDuration || p.DurationSeconds > sora2MaxDuration {
		return fmt.Errorf("%w: duration must be %d-%ds", domain.ErrInvalidInput, sora2MinDuration, sora2MaxDuration)
	}
	if p.ImageURL != "" {
		if err := requireHTTPURL(p.ImageURL, "image_url"); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sora2) Normalize(ctx context.Context, p *Params) error { return nil }

type sora2CreateRequest struct {
	Model       string `json:"model"`
	Prompt      string `json:"prompt"`
	Duration    int    `json:"duration"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type sora2Task struct {
	TaskID   string `json:"task_id"`
	Status   string `json:"status"`
	VideoURL string `json:"video_url"`
	Error    string `json:"error"`
	Progress int    `json:"progress"`
}

func (s *Sora2) CreateTask(ctx context.Context, p Params) (string, error) {
	var task sora2Task
	err := s.c.postJSON(ctx, "/v1/video/tasks", sora2CreateRequest{
		Model:       "sora-2",
		Prompt:      p.Prompt,
		Duration:    p.DurationSeconds,
		AspectRatio: p.AspectRatio,
		Resolution:  p.Resolution,
		ImageURL:    p.ImageURL,
	}, &task)
	if err != nil {
		return "", err
	}
	if task.TaskID == "" {
		return "", fmt.Errorf("%w: empty task id", domain.ErrVendorRejected)
	}
	return task.TaskID, nil
}

var sora2States = map[string]State{
	"queued":      StateProcessing,
	"in_progress": StateProcessing,
	"succeeded":   StateCompleted,
	"failed":      StateFailed,
	"rejected":    StateFailed,
}

func (s *Sora2) GetStatus(ctx context.Context, taskHandle string) (Status, error) {
	var task sora2Task
	if err := s.c.getJSON(ctx, "/v1/video/tasks/"+taskHandle, &task); err != nil {
		return Status{}, err
	}
	return Status{
		State:           mapState(task.Status, sora2States),
		ResultLocation:  task.VideoURL,
		ErrorMessage:    task.Error,
		ProgressPercent: task.Progress,
	}, nil
}

func (s *Sora2) FetchResultLocation(ctx context.Context, taskHandle string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := s.c.getJSON(ctx, "/v1/video/tasks/"+taskHandle+"/result", &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

var _ Adapter = (*Sora2)(nil)

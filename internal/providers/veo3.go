package providers

import (
	"context"
	"fmt"

	"mediaforge/internal/domain"
)

// Veo3 generates text-to-video. Higher per-second rate than Sora2, shorter
// maximum duration.
type Veo3 struct {
	c *apiClient
}

const (
	veo3PerSecond   = 2
	veo3MinDuration = 4
	veo3MaxDuration = 30
)

func NewVeo3(opts ClientOptions) *Veo3 {
	return &Veo3{c: opts.client()}
}

func (v *Veo3) Tool() domain.Tool { return domain.ToolVeo3 }

func (v *Veo3) Price(p Params) int {
	return p.DurationSeconds * veo3PerSecond
}

func (v *Veo3) Validate(p Params) error {
	if p.Prompt == "" {
		return fmt.Errorf("%w: prompt is required", domain.ErrInvalidInput)
	}
	if p.DurationSeconds < veo3MinDuration || p.DurationSeconds > veo3MaxDuration {
		return fmt.Errorf("%w: duration must be %d-%ds", domain.ErrInvalidInput, veo3MinDuration, veo3MaxDuration)
	}
	return nil
}

func (v *Veo3) Normalize(ctx context.Context, p *Params) error { return nil }

type veo3CreateRequest struct {
	Prompt          string `json:"prompt"`
	DurationSeconds int    `json:"duration_seconds"`
	AspectRatio     string `json:"aspect_ratio,omitempty"`
	Resolution      string `json:"resolution,omitempty"`
}

type veo3Generation struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	OutputURL string `json:"output_url"`
	Message   string `json:"message"`
	Percent   int    `json:"percent"`
}

func (v *Veo3) CreateTask(ctx context.Context, p Params) (string, error) {
	var gen veo3Generation
	err := v.c.postJSON(ctx, "/v1/generations", veo3CreateRequest{
		Prompt:          p.Prompt,
		DurationSeconds: p.DurationSeconds,
		AspectRatio:     p.AspectRatio,
		Resolution:      p.Resolution,
	}, &gen)
	if err != nil {
		return "", err
	}
	if gen.ID == "" {
		return "", fmt.Errorf("%w: empty generation id", domain.ErrVendorRejected)
	}
	return gen.ID, nil
}

var veo3States = map[string]State{
	"pending": StateProcessing,
	"running": StateProcessing,
	"success": StateCompleted,
	"error":   StateFailed,
}

func (v *Veo3) GetStatus(ctx context.Context, taskHandle string) (Status, error) {
	var gen veo3Generation
	if err := v.c.getJSON(ctx, "/v1/generations/"+taskHandle, &gen); err != nil {
		return Status{}, err
	}
	return Status{
		State:           mapState(gen.State, veo3States),
		ResultLocation:  gen.OutputURL,
		ErrorMessage:    gen.Message,
		ProgressPercent: gen.Percent,
	}, nil
}

// FetchResultLocation re-reads the generation; veo3 carries the output URL
// on the status resource itself.
func (v *Veo3) FetchResultLocation(ctx context.Context, taskHandle string) (string, error) {
	var gen veo3Generation
	if err := v.c.getJSON(ctx, "/v1/generations/"+taskHandle, &gen); err != nil {
		return "", err
	}
	return gen.OutputURL, nil
}

var _ Adapter = (*Veo3)(nil)

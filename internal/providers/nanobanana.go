package providers

import (
	"context"
	"fmt"

	"mediaforge/internal/domain"
	"mediaforge/internal/storage"
)

// NanoBanana generates or edits images from a prompt, optionally seeded with
// a source image. The vendor only accepts fetchable URLs, so inline source
// images are staged into durable storage first.
type NanoBanana struct {
	c     *apiClient
	store storage.BlobStore
}

const (
	nanoBananaPerImage = 4
	nanoBananaMaxQty   = 4
)

func NewNanoBanana(opts ClientOptions, store storage.BlobStore) *NanoBanana {
	return &NanoBanana{c: opts.client(), store: store}
}

func (n *NanoBanana) Tool() domain.Tool { return domain.ToolNanoBanana }

func (n *NanoBanana) Price(p Params) int {
	qty := p.Quantity
	if qty < 1 {
		qty = 1
	}
	return nanoBananaPerImage * qty
}

func (n *NanoBanana) Validate(p Params) error {
	if p.Prompt == "" {
		return fmt.Errorf("%w: prompt is required", domain.ErrInvalidInput)
	}
	if p.Quantity < 0 || p.Quantity > nanoBananaMaxQty {
		return fmt.Errorf("%w: quantity must be 1-%d", domain.ErrInvalidInput, nanoBananaMaxQty)
	}
	if p.ImageURL != "" {
		if err := requireHTTPURL(p.ImageURL, "image_url"); err != nil {
			return err
		}
	}
	if len(p.ImageData) > maxInlineBytes {
		return fmt.Errorf("%w: inline image payload too large", domain.ErrInvalidInput)
	}
	return nil
}

// Normalize stages an inline source image so the vendor gets a URL.
func (n *NanoBanana) Normalize(ctx context.Context, p *Params) error {
	if len(p.ImageData) == 0 {
		return nil
	}
	url, err := stageInline(ctx, n.store, p.ImageData, p.ImageMIME, "images")
	if err != nil {
		return err
	}
	p.ImageURL = url
	p.ImageData = nil
	return nil
}

type nanoBananaCreateRequest struct {
	Prompt      string `json:"prompt"`
	Quantity    int    `json:"n"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
}

type nanoBananaTask struct {
	TaskID string   `json:"task_id"`
	Status string   `json:"status"`
	Images []string `json:"images"`
	Error  string   `json:"error"`
}

func (n *NanoBanana) CreateTask(ctx context.Context, p Params) (string, error) {
	qty := p.Quantity
	if qty < 1 {
		qty = 1
	}
	var task nanoBananaTask
	err := n.c.postJSON(ctx, "/v1/images/tasks", nanoBananaCreateRequest{
		Prompt:      p.Prompt,
		Quantity:    qty,
		AspectRatio: p.AspectRatio,
		SourceURL:   p.ImageURL,
	}, &task)
	if err != nil {
		return "", err
	}
	if task.TaskID == "" {
		return "", fmt.Errorf("%w: empty task id", domain.ErrVendorRejected)
	}
	return task.TaskID, nil
}

var nanoBananaStates = map[string]State{
	"created":    StateProcessing,
	"generating": StateProcessing,
	"succeeded":  StateCompleted,
	"failed":     StateFailed,
}

func (n *NanoBanana) GetStatus(ctx context.Context, taskHandle string) (Status, error) {
	var task nanoBananaTask
	if err := n.c.getJSON(ctx, "/v1/images/tasks/"+taskHandle, &task); err != nil {
		return Status{}, err
	}
	st := Status{
		State:        mapState(task.Status, nanoBananaStates),
		ErrorMessage: task.Error,
	}
	if len(task.Images) > 0 {
		st.ResultLocation = task.Images[0]
	}
	return st, nil
}

func (n *NanoBanana) FetchResultLocation(ctx context.Context, taskHandle string) (string, error) {
	st, err := n.GetStatus(ctx, taskHandle)
	if err != nil {
		return "", err
	}
	return st.ResultLocation, nil
}

var _ Adapter = (*NanoBanana)(nil)

// Package providers encapsulates the vendor HTTP contracts behind one
// adapter interface. Nothing outside this package sees a vendor's native
// status vocabulary or request shape.
package providers

import (
	"context"
	"strings"

	"mediaforge/internal/domain"
)

// Params is the tool-specific request payload. The JSON-visible fields are
// persisted with the generation; inline binary payloads are carried only for
// the dispatch call and never stored on the row.
type Params struct {
	Prompt          string `json:"prompt,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Quantity        int    `json:"quantity,omitempty"`
	AspectRatio     string `json:"aspect_ratio,omitempty"`
	Resolution      string `json:"resolution,omitempty"`
	VideoURL        string `json:"video_url,omitempty"`
	AudioURL        string `json:"audio_url,omitempty"`
	ImageURL        string `json:"image_url,omitempty"`

	AudioData []byte `json:"-"`
	AudioMIME string `json:"-"`
	ImageData []byte `json:"-"`
	ImageMIME string `json:"-"`
}

// State is the normalized tri-state every adapter maps vendor statuses onto.
type State string

const (
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Status is the normalized view of one vendor poll. Transient, never persisted.
type Status struct {
	State           State
	ResultLocation  string
	ErrorMessage    string
	ProgressPercent int
}

// Adapter is the uniform contract each vendor integration implements.
type Adapter interface {
	Tool() domain.Tool

	// Price computes the credit cost for params. Deterministic: the value
	// recomputed later from the persisted params must match the one charged.
	Price(p Params) int

	// Validate rejects params the vendor would refuse, before any credits move.
	Validate(p Params) error

	// Normalize stages inline binary payloads into durable storage when the
	// vendor needs a fetchable URL. Called before the generation is persisted.
	Normalize(ctx context.Context, p *Params) error

	// CreateTask submits exactly one external job and returns its handle.
	CreateTask(ctx context.Context, p Params) (string, error)

	// GetStatus polls the vendor and maps its native vocabulary onto State.
	// Unrecognized vendor statuses map to processing, never to a terminal
	// state.
	GetStatus(ctx context.Context, taskHandle string) (Status, error)

	// FetchResultLocation resolves the artifact URL when GetStatus reported
	// completion without carrying it inline.
	FetchResultLocation(ctx context.Context, taskHandle string) (string, error)
}

// Registry maps tools to their adapters.
type Registry map[domain.Tool]Adapter

// NewRegistry indexes adapters by tool.
func NewRegistry(adapters ...Adapter) Registry {
	reg := make(Registry, len(adapters))
	for _, a := range adapters {
		reg[a.Tool()] = a
	}
	return reg
}

// ForTool returns the adapter for a tool.
func (r Registry) ForTool(tool domain.Tool) (Adapter, bool) {
	a, ok := r[tool]
	return a, ok
}

// mapState translates a native vendor status through the adapter's table.
// Unknown values are in-flight by definition: treating them as terminal
// would trigger a premature refund or a false completion.
func mapState(native string, table map[string]State) State {
	if s, ok := table[strings.ToLower(strings.TrimSpace(native))]; ok {
		return s
	}
	return StateProcessing
}

// ceilDiv rounds a/b up to the next whole unit.
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

package domain

import (
	"fmt"
	"time"
)

// Tool enumerates the supported generation backends.
type Tool string

const (
	ToolSora2        Tool = "sora2"
	ToolVeo3         Tool = "veo3"
	ToolLipSync      Tool = "lipsync"
	ToolInfiniteTalk Tool = "infinitetalk"
	ToolNanoBanana   Tool = "nanobanana"
)

// ParseTool validates a client-supplied tool name.
func ParseTool(s string) (Tool, error) {
	switch Tool(s) {
	case ToolSora2, ToolVeo3, ToolLipSync, ToolInfiniteTalk, ToolNanoBanana:
		return Tool(s), nil
	}
	return "", fmt.Errorf("%w: unknown tool %q", ErrInvalidInput, s)
}

// GenerationStatus enumerates generation lifecycle states.
type GenerationStatus string

const (
	GenerationPending    GenerationStatus = "pending"
	GenerationProcessing GenerationStatus = "processing"
	GenerationCompleted  GenerationStatus = "completed"
	GenerationFailed     GenerationStatus = "failed"
)

// Generation encapsulates one request to produce a media artifact.
//
// FromSubscription/FromExtras record the pools the deduction was drawn from
// so a lifecycle refund can restore the exact split.
type Generation struct {
	ID               string
	OwnerID          string
	Tool             Tool
	Status           GenerationStatus
	CreditsUsed      int
	FromSubscription int
	FromExtras       int
	TaskHandle       string // vendor-assigned, empty until dispatch succeeds
	ResultURL        string
	Progress         int
	ParamsJSON       []byte
	LastError        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
	FailedAt         *time.Time
}

// Terminal reports whether the generation reached a final state.
func (g *Generation) Terminal() bool {
	return g.Status == GenerationCompleted || g.Status == GenerationFailed
}

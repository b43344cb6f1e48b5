package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mediaforge/internal/domain"
	"mediaforge/internal/orchestrator"
	"mediaforge/internal/providers"
	"mediaforge/internal/reconcile"
)

type generateRequest struct {
	Tool            string `json:"tool"`
	Prompt          string `json:"prompt"`
	DurationSeconds int    `json:"duration_seconds"`
	Quantity        int    `json:"quantity"`
	AspectRatio     string `json:"aspect_ratio"`
	Resolution      string `json:"resolution"`
	VideoURL        string `json:"video_url"`
	AudioURL        string `json:"audio_url"`
	ImageURL        string `json:"image_url"`
	AudioBase64     string `json:"audio_base64"`
	AudioMIME       string `json:"audio_mime"`
	ImageBase64     string `json:"image_base64"`
	ImageMIME       string `json:"image_mime"`
}

type generationResponse struct {
	ID          string     `json:"id"`
	Tool        string     `json:"tool"`
	Status      string     `json:"status"`
	CreditsUsed int        `json:"credits_used"`
	Progress    int        `json:"progress"`
	ResultURL   string     `json:"result_url,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
}

func toResponse(g *domain.Generation) generationResponse {
	return generationResponse{
		ID:          g.ID,
		Tool:        string(g.Tool),
		Status:      string(g.Status),
		CreditsUsed: g.CreditsUsed,
		Progress:    g.Progress,
		ResultURL:   g.ResultURL,
		LastError:   g.LastError,
		CreatedAt:   g.CreatedAt,
		CompletedAt: g.CompletedAt,
		FailedAt:    g.FailedAt,
	}
}

// GenerationsSubmit accepts a generation request, charges the account, and
// dispatches the vendor task. Returns 202 with the generation id; completion
// is observed by polling GenerationStatus.
func (a *App) GenerationsSubmit(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}

	var req generateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<20)).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	tool, err := domain.ParseTool(req.Tool)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported tool")
		return
	}

	params := providers.Params{
		Prompt:          req.Prompt,
		DurationSeconds: req.DurationSeconds,
		Quantity:        req.Quantity,
		AspectRatio:     req.AspectRatio,
		Resolution:      req.Resolution,
		VideoURL:        req.VideoURL,
		AudioURL:        req.AudioURL,
		ImageURL:        req.ImageURL,
		AudioMIME:       req.AudioMIME,
		ImageMIME:       req.ImageMIME,
	}
	if req.AudioBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.AudioBase64)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid audio payload encoding")
			return
		}
		params.AudioData = data
	}
	if req.ImageBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid image payload encoding")
			return
		}
		params.ImageData = data
	}

	gen, err := a.Orch.Submit(r.Context(), accountID, tool, params, orchestrator.SubmitOptions{})
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, toResponse(gen))
}

// GenerationStatus returns the persisted state of one generation. For
// non-terminal rows it first runs the same reconcile step the background
// sweep runs, so an attentive client sees fresh state without owning it.
func (a *App) GenerationStatus(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}

	gen, err := a.Orch.Get(r.Context(), id, accountID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	if !gen.Terminal() {
		if outcome := a.Sweeper.Reconcile(r.Context(), gen); outcome != reconcile.OutcomeNone {
			if fresh, err := a.Orch.Get(r.Context(), id, accountID); err == nil {
				gen = fresh
			}
		}
	}
	a.json(w, http.StatusOK, toResponse(gen))
}

func (a *App) GenerationsList(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	items, err := a.Orch.List(r.Context(), accountID, 50)
	if err != nil {
		a.domainError(w, err)
		return
	}
	out := make([]generationResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": out})
}

// GenerationDelete removes a terminal generation owned by the caller.
func (a *App) GenerationDelete(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	if err := a.Orch.Delete(r.Context(), id, accountID); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Package orchestrator drives a generation from intake through credit
// deduction, vendor dispatch, and terminal transition. Every path into
// failed from a state where credits were drawn performs exactly one refund,
// inline in the branch that observed the failure.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mediaforge/internal/domain"
	"mediaforge/internal/ledger"
	"mediaforge/internal/metrics"
	"mediaforge/internal/providers"
)

const maxPromptRunes = 2000

type Orchestrator struct {
	generations domain.GenerationRepository
	ledger      *ledger.Ledger
	adapters    providers.Registry
	logger      zerolog.Logger
}

func New(generations domain.GenerationRepository, l *ledger.Ledger, adapters providers.Registry, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		generations: generations,
		ledger:      l,
		adapters:    adapters,
		logger:      logger,
	}
}

// SubmitOptions carries flags for internal callers. Zero value for the
// normal request path.
type SubmitOptions struct {
	// PreDeducted is set by a batch flow that centralizes deduction. The
	// receipt is re-validated against the recomputed price; it is never
	// trusted to skip the check.
	PreDeducted *domain.DeductReceipt
}

// Submit validates, prices, deducts, persists, and dispatches one
// generation. It returns as soon as the vendor accepts the task; completion
// is observed via status reads advanced by the reconciliation sweep.
func (o *Orchestrator) Submit(ctx context.Context, ownerID string, tool domain.Tool, p providers.Params, opts SubmitOptions) (*domain.Generation, error) {
	adapter, ok := o.adapters.ForTool(tool)
	if !ok {
		return nil, fmt.Errorf("%w: no adapter for tool %q", domain.ErrInvalidInput, tool)
	}

	p.Prompt = SanitizePrompt(p.Prompt)
	if err := adapter.Validate(p); err != nil {
		return nil, err
	}
	if err := adapter.Normalize(ctx, &p); err != nil {
		return nil, err
	}

	// The same formula prices the quote and the charge; recomputing it from
	// the persisted params later must give the same number.
	price := adapter.Price(p)
	if price <= 0 {
		return nil, fmt.Errorf("%w: non-positive price for %q", domain.ErrInvalidInput, tool)
	}

	var receipt *domain.DeductReceipt
	if opts.PreDeducted != nil {
		if opts.PreDeducted.Deducted != price {
			return nil, fmt.Errorf("%w: pre-deducted amount %d does not match price %d",
				domain.ErrInvalidInput, opts.PreDeducted.Deducted, price)
		}
		receipt = opts.PreDeducted
	} else {
		var err error
		receipt, err = o.ledger.Deduct(ctx, ownerID, price, "generation:"+string(tool))
		if err != nil {
			return nil, err
		}
	}

	paramsJSON, err := json.Marshal(p)
	if err != nil {
		o.refund(ctx, ownerID, receipt, "encode params failed")
		return nil, fmt.Errorf("encode params: %w", err)
	}

	gen := &domain.Generation{
		ID:               uuid.NewString(),
		OwnerID:          ownerID,
		Tool:             tool,
		Status:           domain.GenerationPending,
		CreditsUsed:      price,
		FromSubscription: receipt.FromSubscription,
		FromExtras:       receipt.FromExtras,
		ParamsJSON:       paramsJSON,
	}
	if err := o.generations.Create(ctx, gen); err != nil {
		o.refund(ctx, ownerID, receipt, "persist generation failed")
		return nil, fmt.Errorf("persist generation: %w", err)
	}

	taskHandle, err := adapter.CreateTask(ctx, p)
	if err != nil {
		o.Fail(ctx, gen, "dispatch", vendorErrorText(err))
		return nil, err
	}

	if err := o.generations.MarkProcessing(ctx, gen.ID, taskHandle); err != nil {
		o.Fail(ctx, gen, "dispatch", "failed to record vendor task handle")
		return nil, fmt.Errorf("mark processing: %w", err)
	}
	gen.Status = domain.GenerationProcessing
	gen.TaskHandle = taskHandle

	metrics.GenerationsSubmitted.WithLabelValues(string(tool)).Inc()
	o.logger.Info().
		Str("generation_id", gen.ID).
		Str("tool", string(tool)).
		Int("credits", price).
		Str("task_handle", taskHandle).
		Msg("orchestrator: dispatched")
	return gen, nil
}

// Price recomputes the credit cost for a tool and params without side
// effects.
func (o *Orchestrator) Price(tool domain.Tool, p providers.Params) (int, error) {
	adapter, ok := o.adapters.ForTool(tool)
	if !ok {
		return 0, fmt.Errorf("%w: no adapter for tool %q", domain.ErrInvalidInput, tool)
	}
	return adapter.Price(p), nil
}

// Complete transitions a generation to completed. Reports false when the
// row was already terminal (idempotent under concurrent sweeps).
func (o *Orchestrator) Complete(ctx context.Context, gen *domain.Generation, resultURL string) (bool, error) {
	ok, err := o.generations.Complete(ctx, gen.ID, resultURL)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	metrics.GenerationsCompleted.WithLabelValues(string(gen.Tool)).Inc()
	o.logger.Info().Str("generation_id", gen.ID).Str("result_url", resultURL).Msg("orchestrator: completed")
	return true, nil
}

// Fail transitions a generation to failed and refunds its credits to the
// exact pools they were drawn from. The compare-and-set transition is the
// refund guard: only the invocation that flipped the row refunds.
func (o *Orchestrator) Fail(ctx context.Context, gen *domain.Generation, cause, errMsg string) (bool, error) {
	ok, err := o.generations.Fail(ctx, gen.ID, errMsg)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	metrics.GenerationsFailed.WithLabelValues(string(gen.Tool), cause).Inc()
	if gen.CreditsUsed > 0 {
		o.refund(ctx, gen.OwnerID, &domain.DeductReceipt{
			Deducted:         gen.CreditsUsed,
			FromSubscription: gen.FromSubscription,
			FromExtras:       gen.FromExtras,
		}, "generation failed: "+cause)
	}
	o.logger.Warn().
		Str("generation_id", gen.ID).
		Str("cause", cause).
		Str("error", errMsg).
		Msg("orchestrator: failed")
	return true, nil
}

func (o *Orchestrator) refund(ctx context.Context, ownerID string, receipt *domain.DeductReceipt, reason string) {
	if receipt == nil || receipt.Deducted <= 0 {
		return
	}
	_, err := o.ledger.Refund(ctx, ownerID, receipt.Deducted, receipt.FromSubscription, receipt.FromExtras, reason)
	if err != nil {
		// The generation is already failed; a lost refund is an operator
		// problem, not a user-facing state change.
		o.logger.Error().Err(err).
			Str("account_id", ownerID).
			Int("amount", receipt.Deducted).
			Msg("orchestrator: refund failed")
	}
}

// Get returns a generation owned by ownerID.
func (o *Orchestrator) Get(ctx context.Context, id, ownerID string) (*domain.Generation, error) {
	return o.generations.GetForOwner(ctx, id, ownerID)
}

// List returns the owner's recent generations.
func (o *Orchestrator) List(ctx context.Context, ownerID string, limit int) ([]domain.Generation, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return o.generations.ListByOwner(ctx, ownerID, limit)
}

// Delete removes a terminal generation owned by ownerID. In-flight rows are
// not deletable; they end only through the lifecycle.
func (o *Orchestrator) Delete(ctx context.Context, id, ownerID string) error {
	return o.generations.DeleteTerminal(ctx, id, ownerID)
}

func vendorErrorText(err error) string {
	if errors.Is(err, domain.ErrVendorUnavailable) {
		return "vendor unavailable"
	}
	msg := err.Error()
	if runes := []rune(msg); len(runes) > 500 {
		msg = string(runes[:500])
	}
	return msg
}

// SanitizePrompt strips control characters and markup fragments from
// free-text input and bounds its length.
func SanitizePrompt(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(' ')
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()
	for _, tag := range []string{"<script", "</script", "<iframe", "</iframe", "javascript:"} {
		out = removeFold(out, tag)
	}
	out = strings.Join(strings.Fields(out), " ")
	runes := []rune(out)
	if len(runes) > maxPromptRunes {
		out = string(runes[:maxPromptRunes])
	}
	return out
}

// removeFold strips every case-insensitive occurrence of sub, which must be
// ASCII. Matching folds ASCII letters only, so offsets into s stay byte-exact
// and multibyte runes around a match are never split.
func removeFold(s, sub string) string {
	for {
		idx := indexASCIIFold(s, sub)
		if idx < 0 {
			return s
		}
		s = s[:idx] + s[idx+len(sub):]
	}
}

func indexASCIIFold(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if hasASCIIFoldPrefix(s[i:], sub) {
			return i
		}
	}
	return -1
}

func hasASCIIFoldPrefix(s, sub string) bool {
	for j := 0; j < len(sub); j++ {
		c := s[j]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != sub[j] {
			return false
		}
	}
	return true
}

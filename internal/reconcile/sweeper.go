// Package reconcile advances in-flight generations by consulting vendor
// status. The sweep is the sole source of truth for state advancement;
// client polling is a pure read plus an opportunistic call into the same
// logic, so correctness never depends on anyone watching.
package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mediaforge/internal/domain"
	"mediaforge/internal/metrics"
	"mediaforge/internal/orchestrator"
	"mediaforge/internal/providers"
)

// artifactMaterializer is what the sweep needs from the materializer.
type artifactMaterializer interface {
	Materialize(ctx context.Context, externalURL, ownerID, generationID string) (string, error)
}

// Config bounds one sweep invocation.
type Config struct {
	StaleAfter  time.Duration
	BatchSize   int
	Concurrency int
	FailedTTL   time.Duration
}

type Sweeper struct {
	generations domain.GenerationRepository
	orch        *orchestrator.Orchestrator
	adapters    providers.Registry
	mat         artifactMaterializer
	cfg         Config
	logger      zerolog.Logger
}

func New(generations domain.GenerationRepository, orch *orchestrator.Orchestrator, adapters providers.Registry, mat artifactMaterializer, cfg Config, logger zerolog.Logger) *Sweeper {
	if cfg.StaleAfter == 0 {
		cfg.StaleAfter = 10 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Sweeper{
		generations: generations,
		orch:        orch,
		adapters:    adapters,
		mat:         mat,
		cfg:         cfg,
		logger:      logger,
	}
}

// Report summarizes one sweep.
type Report struct {
	Scanned   int   `json:"scanned"`
	Completed int   `json:"completed"`
	Failed    int   `json:"failed"`
	TimedOut  int   `json:"timed_out"`
	Purged    int64 `json:"purged"`
}

// Sweep reconciles a bounded batch of in-flight generations and purges
// failed rows past the grace period. Safe to invoke concurrently: terminal
// transitions are compare-and-set, so overlapping sweeps cannot
// double-refund or double-complete.
func (s *Sweeper) Sweep(ctx context.Context) (Report, error) {
	timer := prometheus.NewTimer(metrics.SweepDuration)
	defer timer.ObserveDuration()

	batch, err := s.generations.ClaimSweepBatch(ctx, s.cfg.BatchSize)
	if err != nil {
		return Report{}, err
	}

	var (
		mu     sync.Mutex
		report Report
	)
	report.Scanned = len(batch)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i := range batch {
		gen := batch[i]
		g.Go(func() error {
			outcome := s.Reconcile(gctx, &gen)
			mu.Lock()
			switch outcome {
			case OutcomeCompleted:
				report.Completed++
			case OutcomeFailed:
				report.Failed++
			case OutcomeTimedOut:
				report.TimedOut++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	if s.cfg.FailedTTL > 0 {
		purged, err := s.generations.PurgeFailedBefore(ctx, time.Now().Add(-s.cfg.FailedTTL))
		if err != nil {
			s.logger.Error().Err(err).Msg("reconcile: purge failed rows")
		} else {
			report.Purged = purged
		}
	}

	s.logger.Debug().
		Int("scanned", report.Scanned).
		Int("completed", report.Completed).
		Int("failed", report.Failed).
		Int("timed_out", report.TimedOut).
		Msg("reconcile: sweep done")
	return report, nil
}

// Outcome classifies what Reconcile did to one generation.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCompleted
	OutcomeFailed
	OutcomeTimedOut
)

// Reconcile advances a single generation. The stale check runs before any
// vendor poll: a generation past the threshold is failed and refunded even
// if the vendor would have reported completion, bounding worst-case credit
// lockup. A late vendor completion after that refund is discarded by the
// terminal compare-and-set.
func (s *Sweeper) Reconcile(ctx context.Context, gen *domain.Generation) Outcome {
	if gen.Terminal() {
		return OutcomeNone
	}

	if time.Since(gen.CreatedAt) > s.cfg.StaleAfter {
		// Also covers pending rows with no task handle: a dispatch that
		// never finished looks identical to a vendor that never answered.
		ok, err := s.orch.Fail(ctx, gen, "stale_timeout", "timed out")
		if err != nil {
			s.logger.Error().Err(err).Str("generation_id", gen.ID).Msg("reconcile: timeout transition")
			return OutcomeNone
		}
		if !ok {
			return OutcomeNone
		}
		metrics.StaleTimeouts.Inc()
		return OutcomeTimedOut
	}

	if gen.TaskHandle == "" {
		// Dispatch may still be in flight; the stale check picks it up if
		// it never lands.
		return OutcomeNone
	}

	adapter, ok := s.adapters.ForTool(gen.Tool)
	if !ok {
		if failed, _ := s.orch.Fail(ctx, gen, "config", "tool no longer configured"); failed {
			return OutcomeFailed
		}
		return OutcomeNone
	}

	st, err := adapter.GetStatus(ctx, gen.TaskHandle)
	if err != nil {
		// Transient by construction (rejections don't occur on polls);
		// leave the row for the next sweep.
		s.logger.Debug().Err(err).Str("generation_id", gen.ID).Msg("reconcile: vendor poll failed")
		return OutcomeNone
	}

	switch st.State {
	case providers.StateProcessing:
		if st.ProgressPercent > 0 {
			if err := s.generations.SetProgress(ctx, gen.ID, st.ProgressPercent); err != nil {
				s.logger.Debug().Err(err).Str("generation_id", gen.ID).Msg("reconcile: set progress")
			}
		}
		return OutcomeNone

	case providers.StateFailed:
		msg := st.ErrorMessage
		if msg == "" {
			msg = "vendor reported failure"
		}
		if failed, _ := s.orch.Fail(ctx, gen, "vendor", msg); failed {
			return OutcomeFailed
		}
		return OutcomeNone

	case providers.StateCompleted:
		return s.complete(ctx, gen, adapter, st)
	}
	return OutcomeNone
}

func (s *Sweeper) complete(ctx context.Context, gen *domain.Generation, adapter providers.Adapter, st providers.Status) Outcome {
	loc := st.ResultLocation
	if loc == "" {
		var err error
		loc, err = adapter.FetchResultLocation(ctx, gen.TaskHandle)
		if err != nil {
			s.logger.Debug().Err(err).Str("generation_id", gen.ID).Msg("reconcile: fetch result location")
			return OutcomeNone
		}
	}
	if loc == "" {
		if failed, _ := s.orch.Fail(ctx, gen, "vendor", "completed without a result location"); failed {
			return OutcomeFailed
		}
		return OutcomeNone
	}

	url, err := s.mat.Materialize(ctx, loc, gen.OwnerID, gen.ID)
	switch {
	case err == nil:
		if completed, _ := s.orch.Complete(ctx, gen, url); completed {
			return OutcomeCompleted
		}
		return OutcomeNone

	case errors.Is(err, domain.ErrUploadFailed):
		// The artifact was fetched but our storage write failed. Keep the
		// vendor URL as a degraded result rather than discarding work the
		// vendor already did.
		metrics.MaterializeFallbacks.Inc()
		s.logger.Warn().Err(err).
			Str("generation_id", gen.ID).
			Msg("reconcile: upload failed, keeping vendor result url")
		if completed, _ := s.orch.Complete(ctx, gen, loc); completed {
			return OutcomeCompleted
		}
		return OutcomeNone

	default:
		if failed, _ := s.orch.Fail(ctx, gen, "materialize", materializeErrorText(err)); failed {
			return OutcomeFailed
		}
		return OutcomeNone
	}
}

func materializeErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrTooLarge):
		return "artifact exceeds size ceiling"
	case errors.Is(err, domain.ErrFetchFailed):
		return "artifact fetch failed"
	default:
		return err.Error()
	}
}

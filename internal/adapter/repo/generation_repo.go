package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"mediaforge/internal/domain"
	"mediaforge/internal/infra"
	"mediaforge/internal/sqlinline"
)

// GenerationRepositoryPG implements domain.GenerationRepository on PostgreSQL.
type GenerationRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewGenerationRepository(sql infra.SQLExecutor) *GenerationRepositoryPG {
	return &GenerationRepositoryPG{sql: sql}
}

func (r *GenerationRepositoryPG) Create(ctx context.Context, g *domain.Generation) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertGeneration,
		g.ID,
		g.OwnerID,
		g.Tool,
		g.Status,
		g.CreditsUsed,
		g.FromSubscription,
		g.FromExtras,
		g.ParamsJSON,
	)
	if err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	return nil
}

func scanGeneration(row pgx.Row) (*domain.Generation, error) {
	var g domain.Generation
	err := row.Scan(
		&g.ID,
		&g.OwnerID,
		&g.Tool,
		&g.Status,
		&g.CreditsUsed,
		&g.FromSubscription,
		&g.FromExtras,
		&g.TaskHandle,
		&g.ResultURL,
		&g.Progress,
		&g.ParamsJSON,
		&g.LastError,
		&g.CreatedAt,
		&g.UpdatedAt,
		&g.CompletedAt,
		&g.FailedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GenerationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Generation, error) {
	g, err := scanGeneration(r.sql.QueryRow(ctx, sqlinline.QSelectGeneration, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get generation: %w", err)
	}
	return g, nil
}

func (r *GenerationRepositoryPG) GetForOwner(ctx context.Context, id, ownerID string) (*domain.Generation, error) {
	g, err := scanGeneration(r.sql.QueryRow(ctx, sqlinline.QSelectGenerationForOwner, id, ownerID))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get generation for owner: %w", err)
	}
	return g, nil
}

func (r *GenerationRepositoryPG) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Generation, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListGenerationsByOwner, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	var out []domain.Generation
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (r *GenerationRepositoryPG) MarkProcessing(ctx context.Context, id, taskHandle string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkGenerationProcessing, id, taskHandle)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyTerminal
	}
	return nil
}

func (r *GenerationRepositoryPG) SetProgress(ctx context.Context, id string, percent int) error {
	_, err := r.sql.Exec(ctx, sqlinline.QSetGenerationProgress, id, percent)
	return err
}

func (r *GenerationRepositoryPG) Complete(ctx context.Context, id, resultURL string) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QCompleteGeneration, id, resultURL)
	if err != nil {
		return false, fmt.Errorf("complete generation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *GenerationRepositoryPG) Fail(ctx context.Context, id, errMsg string) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QFailGeneration, id, errMsg)
	if err != nil {
		return false, fmt.Errorf("fail generation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *GenerationRepositoryPG) ClaimSweepBatch(ctx context.Context, limit int) ([]domain.Generation, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QClaimSweepBatch, limit)
	if err != nil {
		return nil, fmt.Errorf("claim sweep batch: %w", err)
	}
	defer rows.Close()

	var out []domain.Generation
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sweep batch: %w", err)
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (r *GenerationRepositoryPG) DeleteTerminal(ctx context.Context, id, ownerID string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteTerminalGeneration, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete generation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GenerationRepositoryPG) PurgeFailedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QPurgeFailedGenerations, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge failed generations: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ domain.GenerationRepository = (*GenerationRepositoryPG)(nil)

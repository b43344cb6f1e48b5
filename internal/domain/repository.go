package domain

import (
	"context"
	"time"
)

// BalanceRepository defines the atomic storage operations behind the ledger.
type BalanceRepository interface {
	Get(ctx context.Context, accountID string) (*Balance, error)

	// Deduct atomically draws amount from the account, subscription pool
	// first, spilling into extras. Returns ErrInsufficientCredits when the
	// spendable total is short, ErrAccountNotFound when no row exists.
	// Two concurrent calls against a balance sufficient for one must never
	// both succeed.
	Deduct(ctx context.Context, accountID string, amount int) (*DeductReceipt, error)

	// Refund credits the given amounts back to each pool.
	Refund(ctx context.Context, accountID string, toSubscription, toExtras int) (*Balance, error)
}

// GenerationRepository defines persistence for generation records. Terminal
// transitions are compare-and-set on the current status so concurrent sweeps
// cannot double-complete or double-fail a row.
type GenerationRepository interface {
	Create(ctx context.Context, g *Generation) error
	GetByID(ctx context.Context, id string) (*Generation, error)
	GetForOwner(ctx context.Context, id, ownerID string) (*Generation, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]Generation, error)

	// MarkProcessing records the vendor task handle; pending rows only.
	MarkProcessing(ctx context.Context, id, taskHandle string) error
	SetProgress(ctx context.Context, id string, percent int) error

	// Complete/Fail transition a non-terminal row and report whether the
	// transition actually happened (false: the row was already terminal).
	Complete(ctx context.Context, id, resultURL string) (bool, error)
	Fail(ctx context.Context, id, errMsg string) (bool, error)

	// ClaimSweepBatch returns up to limit non-terminal generations, oldest
	// first, for the reconciliation sweep.
	ClaimSweepBatch(ctx context.Context, limit int) ([]Generation, error)

	// DeleteTerminal removes a terminal generation owned by ownerID.
	DeleteTerminal(ctx context.Context, id, ownerID string) error

	// PurgeFailedBefore removes failed generations past the grace period.
	PurgeFailedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

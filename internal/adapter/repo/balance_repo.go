package repo

import (
	"context"
	"fmt"

	"mediaforge/internal/domain"
	"mediaforge/internal/infra"
	"mediaforge/internal/sqlinline"
)

// BalanceRepositoryPG implements domain.BalanceRepository on PostgreSQL.
// The deduct is a single conditional UPDATE, so the availability check and
// the write cannot interleave with a concurrent request.
type BalanceRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewBalanceRepository(sql infra.SQLExecutor) *BalanceRepositoryPG {
	return &BalanceRepositoryPG{sql: sql}
}

func (r *BalanceRepositoryPG) Get(ctx context.Context, accountID string) (*domain.Balance, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QGetBalance, accountID)
	var b domain.Balance
	if err := row.Scan(&b.AccountID, &b.SubscriptionCredits, &b.ExtraCredits, &b.SubscriptionActive); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return &b, nil
}

func (r *BalanceRepositoryPG) Deduct(ctx context.Context, accountID string, amount int) (*domain.DeductReceipt, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QDeductCredits, accountID, amount)
	receipt := domain.DeductReceipt{Deducted: amount}
	receipt.NewBalance.AccountID = accountID
	err := row.Scan(
		&receipt.FromSubscription,
		&receipt.FromExtras,
		&receipt.NewBalance.SubscriptionCredits,
		&receipt.NewBalance.ExtraCredits,
		&receipt.NewBalance.SubscriptionActive,
	)
	if err == nil {
		return &receipt, nil
	}
	if !infra.IsNoRows(err) {
		return nil, fmt.Errorf("deduct credits: %w", err)
	}
	// Zero rows: either the account is missing or the total was short.
	if _, getErr := r.Get(ctx, accountID); getErr != nil {
		return nil, getErr
	}
	return nil, domain.ErrInsufficientCredits
}

func (r *BalanceRepositoryPG) Refund(ctx context.Context, accountID string, toSubscription, toExtras int) (*domain.Balance, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QRefundCredits, accountID, toSubscription, toExtras)
	b := domain.Balance{AccountID: accountID}
	if err := row.Scan(&b.SubscriptionCredits, &b.ExtraCredits, &b.SubscriptionActive); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("refund credits: %w", err)
	}
	return &b, nil
}

var _ domain.BalanceRepository = (*BalanceRepositoryPG)(nil)

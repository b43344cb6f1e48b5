// Package ledger owns the two-pool credit balance. All balance mutations in
// the service go through Deduct and Refund; request handlers never write
// balance rows directly.
package ledger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"mediaforge/internal/cache"
	"mediaforge/internal/domain"
	"mediaforge/internal/metrics"
)

type Ledger struct {
	balances domain.BalanceRepository
	cache    *cache.BalanceCache
	logger   zerolog.Logger
}

func New(balances domain.BalanceRepository, balanceCache *cache.BalanceCache, logger zerolog.Logger) *Ledger {
	return &Ledger{balances: balances, cache: balanceCache, logger: logger}
}

// GetBalance reads through the TTL cache. The persisted row is authoritative;
// the cache only absorbs bursts of status polling.
func (l *Ledger) GetBalance(ctx context.Context, accountID string) (*domain.Balance, error) {
	if b, ok := l.cache.Get(ctx, accountID); ok {
		return b, nil
	}
	b, err := l.balances.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	l.cache.Set(ctx, b)
	return b, nil
}

// Deduct atomically draws amount from the account, subscription credits
// first. No partial deduction: a short total fails with
// domain.ErrInsufficientCredits before anything is written.
func (l *Ledger) Deduct(ctx context.Context, accountID string, amount int, reason string) (*domain.DeductReceipt, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: deduct amount must be positive", domain.ErrInvalidInput)
	}
	receipt, err := l.balances.Deduct(ctx, accountID, amount)
	if err != nil {
		return nil, err
	}
	l.cache.Invalidate(ctx, accountID)
	metrics.CreditsDeducted.Add(float64(amount))
	l.logger.Info().
		Str("account_id", accountID).
		Int("amount", amount).
		Int("from_subscription", receipt.FromSubscription).
		Int("from_extras", receipt.FromExtras).
		Str("reason", reason).
		Msg("ledger: deducted")
	return receipt, nil
}

// Refund restores amount to the account. When toSubscription+toExtras equals
// amount the exact pools are restored; any other split is treated as unknown
// and the whole amount goes to the subscription pool. That default is an
// approximation, not a faithful reversal of the original draw.
func (l *Ledger) Refund(ctx context.Context, accountID string, amount, toSubscription, toExtras int, reason string) (*domain.Balance, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: refund amount must be positive", domain.ErrInvalidInput)
	}
	if toSubscription < 0 || toExtras < 0 || toSubscription+toExtras != amount {
		l.logger.Warn().
			Str("account_id", accountID).
			Int("amount", amount).
			Str("reason", reason).
			Msg("ledger: refund split unknown, crediting subscription pool")
		toSubscription, toExtras = amount, 0
	}
	b, err := l.balances.Refund(ctx, accountID, toSubscription, toExtras)
	if err != nil {
		return nil, err
	}
	l.cache.Invalidate(ctx, accountID)
	metrics.CreditsRefunded.Add(float64(amount))
	l.logger.Info().
		Str("account_id", accountID).
		Int("amount", amount).
		Str("reason", reason).
		Msg("ledger: refunded")
	return b, nil
}

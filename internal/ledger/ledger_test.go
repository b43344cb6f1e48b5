package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"mediaforge/internal/adapter/repo"
	"mediaforge/internal/domain"
)

func newTestLedger(t *testing.T, seed domain.Balance) (*Ledger, *repo.MemoryBalanceRepository) {
	t.Helper()
	balances := repo.NewMemoryBalanceRepository()
	balances.Seed(seed)
	return New(balances, nil, zerolog.Nop()), balances
}

func TestDeductDrawsSubscriptionFirst(t *testing.T) {
	l, balances := newTestLedger(t, domain.Balance{
		AccountID:           "acct-1",
		SubscriptionCredits: 5,
		ExtraCredits:        10,
		SubscriptionActive:  true,
	})

	receipt, err := l.Deduct(context.Background(), "acct-1", 8, "test")
	require.NoError(t, err)
	require.Equal(t, 8, receipt.Deducted)
	require.Equal(t, 5, receipt.FromSubscription)
	require.Equal(t, 3, receipt.FromExtras)

	b, err := balances.Get(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Equal(t, 0, b.SubscriptionCredits)
	require.Equal(t, 7, b.ExtraCredits)
}

func TestDeductInsufficientLeavesBalanceUntouched(t *testing.T) {
	l, balances := newTestLedger(t, domain.Balance{
		AccountID:           "acct-1",
		SubscriptionCredits: 3,
		ExtraCredits:        2,
		SubscriptionActive:  true,
	})

	_, err := l.Deduct(context.Background(), "acct-1", 6, "test")
	require.ErrorIs(t, err, domain.ErrInsufficientCredits)

	b, err := balances.Get(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Equal(t, 3, b.SubscriptionCredits)
	require.Equal(t, 2, b.ExtraCredits)
}

func TestDeductIgnoresExtrasWhenSubscriptionInactive(t *testing.T) {
	l, _ := newTestLedger(t, domain.Balance{
		AccountID:           "acct-1",
		SubscriptionCredits: 3,
		ExtraCredits:        100,
		SubscriptionActive:  false,
	})

	_, err := l.Deduct(context.Background(), "acct-1", 5, "test")
	require.ErrorIs(t, err, domain.ErrInsufficientCredits)

	// The subscription pool alone still spends.
	receipt, err := l.Deduct(context.Background(), "acct-1", 3, "test")
	require.NoError(t, err)
	require.Equal(t, 3, receipt.FromSubscription)
	require.Equal(t, 0, receipt.FromExtras)
}

func TestDeductRejectsNonPositiveAmount(t *testing.T) {
	l, _ := newTestLedger(t, domain.Balance{AccountID: "acct-1", SubscriptionCredits: 10})
	for _, amount := range []int{0, -3} {
		_, err := l.Deduct(context.Background(), "acct-1", amount, "test")
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

func TestDeductUnknownAccount(t *testing.T) {
	l, _ := newTestLedger(t, domain.Balance{AccountID: "acct-1"})
	_, err := l.Deduct(context.Background(), "acct-missing", 1, "test")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestRefundRestoresExactPools(t *testing.T) {
	l, balances := newTestLedger(t, domain.Balance{
		AccountID:           "acct-1",
		SubscriptionCredits: 5,
		ExtraCredits:        10,
		SubscriptionActive:  true,
	})

	receipt, err := l.Deduct(context.Background(), "acct-1", 8, "test")
	require.NoError(t, err)

	_, err = l.Refund(context.Background(), "acct-1", receipt.Deducted, receipt.FromSubscription, receipt.FromExtras, "test")
	require.NoError(t, err)

	b, err := balances.Get(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Equal(t, 5, b.SubscriptionCredits)
	require.Equal(t, 10, b.ExtraCredits)
}

func TestRefundUnknownSplitCreditsSubscriptionPool(t *testing.T) {
	l, balances := newTestLedger(t, domain.Balance{
		AccountID:           "acct-1",
		SubscriptionCredits: 0,
		ExtraCredits:        7,
		SubscriptionActive:  true,
	})

	// A split that does not sum to the amount is treated as unknown.
	_, err := l.Refund(context.Background(), "acct-1", 8, 0, 0, "test")
	require.NoError(t, err)

	b, err := balances.Get(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Equal(t, 8, b.SubscriptionCredits)
	require.Equal(t, 7, b.ExtraCredits)
}

func TestConcurrentDeductsNeverOverspend(t *testing.T) {
	l, balances := newTestLedger(t, domain.Balance{
		AccountID:           "acct-1",
		SubscriptionCredits: 4,
		ExtraCredits:        6,
		SubscriptionActive:  true,
	})

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Deduct(context.Background(), "acct-1", 6, "test"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, succeeded, "only one of the concurrent deducts may win")
	b, err := balances.Get(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Equal(t, 4, b.Total())
}

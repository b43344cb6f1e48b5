package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"mediaforge/internal/domain"
)

// MemoryBalanceRepository is a mutex-guarded in-memory implementation used
// by tests and local development. The mutex plays the role the conditional
// UPDATE plays in PostgreSQL: check and write are one step.
type MemoryBalanceRepository struct {
	mu       sync.Mutex
	balances map[string]domain.Balance
}

func NewMemoryBalanceRepository() *MemoryBalanceRepository {
	return &MemoryBalanceRepository{balances: make(map[string]domain.Balance)}
}

// Seed installs or replaces an account balance.
func (r *MemoryBalanceRepository) Seed(b domain.Balance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[b.AccountID] = b
}

func (r *MemoryBalanceRepository) Get(ctx context.Context, accountID string) (*domain.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[accountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &b, nil
}

func (r *MemoryBalanceRepository) Deduct(ctx context.Context, accountID string, amount int) (*domain.DeductReceipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[accountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if b.Total() < amount {
		return nil, domain.ErrInsufficientCredits
	}
	fromSub := amount
	if b.SubscriptionCredits < amount {
		fromSub = b.SubscriptionCredits
	}
	fromExtras := amount - fromSub
	b.SubscriptionCredits -= fromSub
	b.ExtraCredits -= fromExtras
	r.balances[accountID] = b
	return &domain.DeductReceipt{
		Deducted:         amount,
		FromSubscription: fromSub,
		FromExtras:       fromExtras,
		NewBalance:       b,
	}, nil
}

func (r *MemoryBalanceRepository) Refund(ctx context.Context, accountID string, toSubscription, toExtras int) (*domain.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[accountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	b.SubscriptionCredits += toSubscription
	b.ExtraCredits += toExtras
	r.balances[accountID] = b
	return &b, nil
}

var _ domain.BalanceRepository = (*MemoryBalanceRepository)(nil)

// MemoryGenerationRepository is the in-memory counterpart for generation
// rows, with the same compare-and-set terminal semantics as the SQL layer.
type MemoryGenerationRepository struct {
	mu   sync.Mutex
	rows map[string]domain.Generation
}

func NewMemoryGenerationRepository() *MemoryGenerationRepository {
	return &MemoryGenerationRepository{rows: make(map[string]domain.Generation)}
}

func (r *MemoryGenerationRepository) Create(ctx context.Context, g *domain.Generation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	stored := *g
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.rows[g.ID] = stored
	*g = stored
	return nil
}

// Put replaces a row wholesale; test setup only.
func (r *MemoryGenerationRepository) Put(g domain.Generation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[g.ID] = g
}

func (r *MemoryGenerationRepository) GetByID(ctx context.Context, id string) (*domain.Generation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &g, nil
}

func (r *MemoryGenerationRepository) GetForOwner(ctx context.Context, id, ownerID string) (*domain.Generation, error) {
	g, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return g, nil
}

func (r *MemoryGenerationRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Generation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Generation
	for _, g := range r.rows {
		if g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryGenerationRepository) MarkProcessing(ctx context.Context, id, taskHandle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	if g.Status != domain.GenerationPending {
		return domain.ErrAlreadyTerminal
	}
	g.Status = domain.GenerationProcessing
	g.TaskHandle = taskHandle
	g.UpdatedAt = time.Now()
	r.rows[id] = g
	return nil
}

func (r *MemoryGenerationRepository) SetProgress(ctx context.Context, id string, percent int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.rows[id]
	if !ok || g.Terminal() {
		return nil
	}
	g.Progress = percent
	g.UpdatedAt = time.Now()
	r.rows[id] = g
	return nil
}

func (r *MemoryGenerationRepository) Complete(ctx context.Context, id, resultURL string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.rows[id]
	if !ok || g.Terminal() {
		return false, nil
	}
	now := time.Now()
	g.Status = domain.GenerationCompleted
	g.ResultURL = resultURL
	g.Progress = 100
	g.CompletedAt = &now
	g.UpdatedAt = now
	r.rows[id] = g
	return true, nil
}

func (r *MemoryGenerationRepository) Fail(ctx context.Context, id, errMsg string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.rows[id]
	if !ok || g.Terminal() {
		return false, nil
	}
	now := time.Now()
	g.Status = domain.GenerationFailed
	g.LastError = errMsg
	g.FailedAt = &now
	g.UpdatedAt = now
	r.rows[id] = g
	return true, nil
}

func (r *MemoryGenerationRepository) ClaimSweepBatch(ctx context.Context, limit int) ([]domain.Generation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Generation
	for _, g := range r.rows {
		if !g.Terminal() {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryGenerationRepository) DeleteTerminal(ctx context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.rows[id]
	if !ok || g.OwnerID != ownerID || !g.Terminal() {
		return domain.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *MemoryGenerationRepository) PurgeFailedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, g := range r.rows {
		if g.Status == domain.GenerationFailed && g.FailedAt != nil && g.FailedAt.Before(cutoff) {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

var _ domain.GenerationRepository = (*MemoryGenerationRepository)(nil)

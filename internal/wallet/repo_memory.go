package wallet

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo mirrors PostgresRepo semantics in memory for tests and local runs.
type MemoryRepo struct {
	mu       sync.Mutex
	accounts map[string]Account
	entries  []Entry
}

func NewMemoryRepo(seed ...Account) *MemoryRepo {
	r := &MemoryRepo{accounts: make(map[string]Account, len(seed))}
	for _, a := range seed {
		r.accounts[a.UserID] = a
	}
	return r
}

func (r *MemoryRepo) GetAccount(ctx context.Context, userID string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[userID]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) Post(ctx context.Context, e Entry) (Entry, Account, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[e.UserID]
	if !ok {
		return Entry{}, Account{}, false, ErrNotFound
	}
	for _, existing := range r.entries {
		if existing.UserID == e.UserID && existing.IdempotencyKey == e.IdempotencyKey {
			return existing, acct, true, nil
		}
	}
	acct.Balance = acct.Balance.Add(e.Amount)
	acct.UpdatedAt = e.CreatedAt
	e.BalanceAfter = acct.Balance
	r.accounts[e.UserID] = acct
	r.entries = append(r.entries, e)
	return e, acct, false, nil
}

func (r *MemoryRepo) ListEntries(ctx context.Context, userID string, from, to time.Time) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Entry
	for _, e := range r.entries {
		if e.UserID != userID || e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Entries returns every posted entry in order.
func (r *MemoryRepo) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

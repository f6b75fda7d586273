package leads

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory lead store for tests and local runs.
type MemoryRepo struct {
	mu    sync.Mutex
	leads map[string]Lead
}

func NewMemoryRepo(seed ...Lead) *MemoryRepo {
	r := &MemoryRepo{leads: make(map[string]Lead, len(seed))}
	for _, l := range seed {
		r.leads[l.ID] = l
	}
	return r
}

func (r *MemoryRepo) Put(l Lead) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads[l.ID] = l
}

func (r *MemoryRepo) Get(ctx context.Context, leadID string) (Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[leadID]
	if !ok {
		return Lead{}, ErrNotFound
	}
	return l, nil
}

func (r *MemoryRepo) Update(ctx context.Context, leadID string, fn func(Lead) (Lead, error)) (Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.leads[leadID]
	if !ok {
		return Lead{}, ErrNotFound
	}
	next, err := fn(cur)
	if err != nil {
		return Lead{}, err
	}
	r.leads[leadID] = next
	return next, nil
}

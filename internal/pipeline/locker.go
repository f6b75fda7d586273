package pipeline

import (
	"context"
	"sync"
	"time"

	"sterling-dialer/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes the read-modify-write section of one user's webhook processing.
// unlock must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, userID string) (unlock func(), err error)
}

// MemoryLocker is a per-user mutex for single-instance deployments and tests.
// A user's slot exists only while someone holds or waits for it.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]*memSlot
}

type memSlot struct {
	ch   chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: map[string]*memSlot{}}
}

func (l *MemoryLocker) acquireRef(userID string) *memSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[userID]
	if !ok {
		s = &memSlot{ch: make(chan struct{}, 1)}
		l.slots[userID] = s
	}
	s.refs++
	return s
}

func (l *MemoryLocker) dropRef(userID string, s *memSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, userID)
	}
}

func (l *MemoryLocker) Lock(ctx context.Context, userID string) (func(), error) {
	s := l.acquireRef(userID)
	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.dropRef(userID, s)
			})
		}, nil
	case <-ctx.Done():
		l.dropRef(userID, s)
		return nil, utils.ErrLockTimeout
	}
}

// size reports how many user slots are live.
func (l *MemoryLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

// mutexStore is the owner-checked lock primitive behind RedisLocker.
type mutexStore interface {
	acquire(ctx context.Context, key, token string, ttl, poll time.Duration) error
	release(ctx context.Context, key, token string) (bool, error)
}

type redisMutex struct {
	rdb *redis.Client
}

func (m redisMutex) acquire(ctx context.Context, key, token string, ttl, poll time.Duration) error {
	return utils.AcquireMutex(ctx, m.rdb, key, token, ttl, poll)
}

func (m redisMutex) release(ctx context.Context, key, token string) (bool, error) {
	return utils.ReleaseMutex(ctx, m.rdb, key, token)
}

// RedisLocker holds a per-user Redis lock so several API replicas share one
// critical section. Each holder writes its own token; a holder that outlived the
// TTL cannot release the lock of whoever took it next.
type RedisLocker struct {
	store  mutexStore
	ttl    time.Duration
	poll   time.Duration
	prefix string
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{store: redisMutex{rdb: rdb}, ttl: ttl, poll: 25 * time.Millisecond, prefix: "lock:user:"}
}

func (l *RedisLocker) Lock(ctx context.Context, userID string) (func(), error) {
	key := l.prefix + userID
	token := uuid.NewString()
	if err := l.store.acquire(ctx, key, token, l.ttl, l.poll); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// Release on a fresh context; the caller's may already be done.
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			_, _ = l.store.release(rctx, key, token)
		})
	}, nil
}

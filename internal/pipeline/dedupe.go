package pipeline

import (
	"context"
	"sync"
	"time"

	"sterling-dialer/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Deduper records which provider call ids are being or have been processed.
// Claim reports false when the id was already claimed. Release forgets a claim
// so the vendor's retry of a failed delivery can run again.
type Deduper interface {
	Claim(ctx context.Context, callID string) (bool, error)
	Release(ctx context.Context, callID string) error
}

type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryDeduper() *MemoryDeduper { return &MemoryDeduper{seen: map[string]struct{}{}} }

func (d *MemoryDeduper) Claim(ctx context.Context, callID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[callID]; ok {
		return false, nil
	}
	d.seen[callID] = struct{}{}
	return true, nil
}

func (d *MemoryDeduper) Release(ctx context.Context, callID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, callID)
	return nil
}

// RedisDeduper claims call ids with SET NX EX.
type RedisDeduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisDeduper(rdb *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{rdb: rdb, ttl: ttl, prefix: "webhook:call_analyzed:"}
}

func (d *RedisDeduper) Claim(ctx context.Context, callID string) (bool, error) {
	return utils.ClaimOnce(ctx, d.rdb, d.prefix+callID, d.ttl)
}

func (d *RedisDeduper) Release(ctx context.Context, callID string) error {
	return d.rdb.Del(ctx, d.prefix+callID).Err()
}

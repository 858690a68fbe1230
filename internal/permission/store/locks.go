package store

import (
	"context"
	"sync"
	"time"

	dErrors "attestor/pkg/domain-errors"
)

// numShards spreads per-key locks so mutations of different permissions
// rarely contend.
const numShards = 128

const defaultLockTimeout = 5 * time.Second

// shardedLocks serializes work per key using a fixed set of mutexes selected
// by an FNV-1a hash of the key.
type shardedLocks struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration
}

// withKey runs fn while holding the shard lock for key.
func (l *shardedLocks) withKey(ctx context.Context, key string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	timeout := l.timeout
	if timeout == 0 {
		timeout = defaultLockTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := &l.shards[hashKey(key)%numShards]
	shard.Lock()
	defer shard.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn()
}

func hashKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

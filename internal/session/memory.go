package session

import (
	"context"
	"time"

	shardedcache "github.com/simp-lee/cache"

	"github.com/simp-lee/escola/internal/domain"
)

const memoryCleanupInterval = time.Minute

// MemoryStore keeps sessions in a process-local sharded cache. Each entry
// expires with its session; DeleteExpired also drops entries by the
// caller's clock.
type MemoryStore struct {
	cache shardedcache.CacheInterface
	now   func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: shardedcache.NewCache(shardedcache.Options{CleanupInterval: memoryCleanupInterval}),
		now:   time.Now,
	}
}

// Load returns a copy of the stored session.
func (s *MemoryStore) Load(_ context.Context, id string) (*domain.Session, error) {
	sess, ok := shardedcache.GetTyped[domain.Session](s.cache, sessionKey(id))
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sess, nil
}

// Save stores a copy of sess until its expiry. A session already past its
// expiry by the store clock is kept until DeleteExpired removes it.
func (s *MemoryStore) Save(_ context.Context, sess *domain.Session) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		ttl = shardedcache.NoExpiration
	}
	s.cache.SetWithExpiration(sessionKey(sess.ID), *sess, ttl)
	return nil
}

// Delete removes the session; unknown ids are ignored.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.cache.Delete(sessionKey(id))
	return nil
}

// DeleteExpired removes every session expired at now.
func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, key := range s.cache.Keys() {
		sess, ok := shardedcache.GetTyped[domain.Session](s.cache, key)
		if !ok || !sess.Expired(now) {
			continue
		}
		if s.cache.Delete(key) {
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions.
func (s *MemoryStore) Len() int {
	return s.cache.Count()
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close stops the cache's cleanup loop.
func (s *MemoryStore) Close() error {
	s.cache.Close()
	return nil
}

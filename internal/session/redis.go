package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/simp-lee/escola/internal/domain"
)

// RedisAPI is the subset of *redis.Client used by RedisStore.
type RedisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisStore keeps sessions in redis with a TTL matching their expiry, so no
// sweeping is needed.
type RedisStore struct {
	client RedisAPI
	now    func() time.Time
}

// NewRedisStore creates a RedisStore over client.
func NewRedisStore(client RedisAPI) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func sessionKey(id string) string {
	return fmt.Sprintf("sessions:%s", id)
}

// Load returns the session with the given id.
func (s *RedisStore) Load(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	} else if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "load session", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "corrupt session", err)
	}
	return &sess, nil
}

// Save stores the session until its expiry.
func (s *RedisStore) Save(ctx context.Context, sess *domain.Session) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return domain.NewAppError(domain.CodeValidation, "session already expired", nil)
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return domain.NewAppError(domain.CodeInternal, "encode session", err)
	}
	if err := s.client.Set(ctx, sessionKey(sess.ID), data, ttl).Err(); err != nil {
		return domain.NewAppError(domain.CodeInternal, "save session", err)
	}
	return nil
}

// Delete removes the session; unknown ids are ignored.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return domain.NewAppError(domain.CodeInternal, "delete session", err)
	}
	return nil
}

// Ping checks the redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

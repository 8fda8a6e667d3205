package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// TokenTTL mirrors the token cookie's max-age.
const TokenTTL = 24 * time.Hour

// TokenStore is the primary token storage, keyed by browser session id.
// Get returns "" and no error when nothing is stored.
type TokenStore interface {
	Get(ctx context.Context, sid string) (string, error)
	Set(ctx context.Context, sid, token string, ttl time.Duration) error
	Delete(ctx context.Context, sid string) error
}

// RedisStore keeps tokens under "token:<sid>".
type RedisStore struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisStore(rdb *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{rdb: rdb, logger: logger}
}

func tokenKey(sid string) string {
	return "token:" + sid
}

func (s *RedisStore) Get(ctx context.Context, sid string) (string, error) {
	token, err := s.rdb.Get(ctx, tokenKey(sid)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		s.logger.Error("Failed to read token from Redis", zap.Error(err))
		return "", err
	}
	return token, nil
}

func (s *RedisStore) Set(ctx context.Context, sid, token string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, tokenKey(sid), token, ttl).Err(); err != nil {
		s.logger.Error("Error storing token in Redis", zap.Error(err))
		return err
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sid string) error {
	return s.rdb.Del(ctx, tokenKey(sid)).Err()
}

type memEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryStore is used when no Redis is configured, and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memEntry)}
}

func (s *MemoryStore) Get(_ context.Context, sid string) (string, error) {
	s.mu.RLock()
	e, ok := s.entries[sid]
	s.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return "", nil
	}
	return e.token, nil
}

func (s *MemoryStore) Set(_ context.Context, sid, token string, ttl time.Duration) error {
	s.mu.Lock()
	s.entries[sid] = memEntry{token: token, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	delete(s.entries, sid)
	s.mu.Unlock()
	return nil
}

// Prune drops expired entries and returns how many were removed.
func (s *MemoryStore) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for sid, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, sid)
			n++
		}
	}
	return n
}

// Len is the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

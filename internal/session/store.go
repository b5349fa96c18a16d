package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrSessionNotFound = errors.New("session not found")

// TokenStore persists sessions by opaque bearer token.
type TokenStore interface {
	Create(ctx context.Context, s Session) (Session, error)
	Get(ctx context.Context, token string) (Session, error)
	Delete(ctx context.Context, token string) error
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

type memoryEntry struct {
	session Session
	expires time.Time
}

// MemoryTokenStore keeps sessions in process memory with a TTL.
type MemoryTokenStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemoryTokenStore(ttl time.Duration) *MemoryTokenStore {
	return &MemoryTokenStore{ttl: ttl, now: time.Now, entries: map[string]memoryEntry{}}
}

func (m *MemoryTokenStore) Create(_ context.Context, s Session) (Session, error) {
	token, err := newToken()
	if err != nil {
		return Session{}, err
	}
	s.Token = token
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[token] = memoryEntry{session: s, expires: m.now().Add(m.ttl)}
	return s, nil
}

func (m *MemoryTokenStore) Get(_ context.Context, token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[token]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if m.now().After(e.expires) {
		delete(m.entries, token)
		return Session{}, ErrSessionNotFound
	}
	return e.session, nil
}

func (m *MemoryTokenStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[token]; !ok {
		return ErrSessionNotFound
	}
	delete(m.entries, token)
	return nil
}

// RedisTokenStore keeps sessions in Redis as JSON with a per-key TTL.
type RedisTokenStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisTokenStore(client *redis.Client, ttl time.Duration) *RedisTokenStore {
	return &RedisTokenStore{client: client, ttl: ttl, prefix: "savings:session:"}
}

func (r *RedisTokenStore) Create(ctx context.Context, s Session) (Session, error) {
	token, err := newToken()
	if err != nil {
		return Session{}, err
	}
	s.Token = token
	b, err := json.Marshal(s)
	if err != nil {
		return Session{}, fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+token, b, r.ttl).Err(); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	return s, nil
}

func (r *RedisTokenStore) Get(ctx context.Context, token string) (Session, error) {
	b, err := r.client.Get(ctx, r.prefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	s.Token = token
	return s, nil
}

func (r *RedisTokenStore) Delete(ctx context.Context, token string) error {
	n, err := r.client.Del(ctx, r.prefix+token).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Ping checks the Redis connection.
func (r *RedisTokenStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned when a session id or order reference does
// not resolve to a live session. Sessions expire with their TTL.
var ErrSessionNotFound = errors.New("checkout: session not found")

// Store persists payment sessions for the lifetime of one checkout attempt.
type Store interface {
	Save(ctx context.Context, s PaymentSession, ttl time.Duration) error
	Get(ctx context.Context, id string) (PaymentSession, error)
	GetByReference(ctx context.Context, reference string) (PaymentSession, error)
}

// RedisStore keeps sessions as JSON values with a bounded TTL, plus a
// reference index so order-status lookups can find the latest session for an
// order reference.
type RedisStore struct {
	R *redis.Client
}

func sessionKey(id string) string { return "checkout:session:" + id }

func referenceKey(ref string) string { return "checkout:reference:" + ref }

func (s RedisStore) Save(ctx context.Context, sess PaymentSession, ttl time.Duration) error {
	if s.R == nil {
		return errors.New("checkout: redis client not configured")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("checkout: marshal session: %w", err)
	}
	pipe := s.R.TxPipeline()
	pipe.Set(ctx, sessionKey(sess.ID), payload, ttl)
	if sess.Order.Reference != "" {
		pipe.Set(ctx, referenceKey(sess.Order.Reference), sess.ID, ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s RedisStore) Get(ctx context.Context, id string) (PaymentSession, error) {
	if s.R == nil {
		return PaymentSession{}, errors.New("checkout: redis client not configured")
	}
	raw, err := s.R.Get(ctx, sessionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return PaymentSession{}, ErrSessionNotFound
	}
	if err != nil {
		return PaymentSession{}, err
	}
	var sess PaymentSession
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return PaymentSession{}, fmt.Errorf("checkout: unmarshal session: %w", err)
	}
	return sess, nil
}

func (s RedisStore) GetByReference(ctx context.Context, reference string) (PaymentSession, error) {
	if s.R == nil {
		return PaymentSession{}, errors.New("checkout: redis client not configured")
	}
	id, err := s.R.Get(ctx, referenceKey(reference)).Result()
	if errors.Is(err, redis.Nil) {
		return PaymentSession{}, ErrSessionNotFound
	}
	if err != nil {
		return PaymentSession{}, err
	}
	return s.Get(ctx, id)
}

// MemoryStore is a map-backed Store for tests and single-process runs.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	byRef    map[string]string
}

type memoryEntry struct {
	session   PaymentSession
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		byRef:    make(map[string]string),
	}
}

func (m *MemoryStore) Save(_ context.Context, s PaymentSession, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Hour
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = memoryEntry{session: s, expiresAt: time.Now().Add(ttl)}
	if s.Order.Reference != "" {
		m.byRef[s.Order.Reference] = s.ID
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (PaymentSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.sessions[id]
	if !ok || time.Now().After(entry.expiresAt) {
		return PaymentSession{}, ErrSessionNotFound
	}
	return entry.session, nil
}

func (m *MemoryStore) GetByReference(ctx context.Context, reference string) (PaymentSession, error) {
	m.mu.RLock()
	id, ok := m.byRef[reference]
	m.mu.RUnlock()
	if !ok {
		return PaymentSession{}, ErrSessionNotFound
	}
	return m.Get(ctx, id)
}

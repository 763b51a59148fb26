package store

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ringsight/ringsight/internal/domain"
)

// MemoryStore is the default in-process result store. Expired entries
// are dropped lazily on access and by a background sweep; when the
// capacity cap is hit the oldest session is evicted first.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*domain.SessionEntry
	order   []string // tokens in insertion order
	cfg     domain.StoreConfig

	done chan struct{}
	once sync.Once
}

func NewMemoryStore(cfg domain.StoreConfig) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*domain.SessionEntry),
		cfg:     cfg,
		done:    make(chan struct{}),
	}
	if cfg.SweepSeconds > 0 {
		go s.sweep(time.Duration(cfg.SweepSeconds) * time.Second)
	}
	return s
}

// Put stores a result and returns its fresh session token.
func (s *MemoryStore) Put(ctx context.Context, summary *domain.ValidationSummary, result *domain.ForensicResult) (string, error) {
	token := newToken()
	now := time.Now()

	entry := &domain.SessionEntry{
		Token:             token,
		CreatedAt:         now,
		ExpiresAt:         now.Add(s.cfg.TTL()),
		ValidationSummary: summary,
		Result:            result,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropExpiredLocked(now)
	for s.cfg.MaxItems > 0 && len(s.entries) >= s.cfg.MaxItems {
		s.evictOldestLocked()
	}

	s.entries[token] = entry
	s.order = append(s.order, token)
	return token, nil
}

// Get returns the session for token, or ErrNotFound when the token is
// unknown or past its TTL.
func (s *MemoryStore) Get(ctx context.Context, token string) (*domain.SessionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok {
		return nil, ErrNotFound
	}
	if entry.Expired(time.Now()) {
		s.removeLocked(token)
		return nil, ErrNotFound
	}
	return entry, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropExpiredLocked(time.Now())
	return len(s.entries)
}

func (s *MemoryStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.dropExpiredLocked(time.Now())
			s.mu.Unlock()
		}
	}
}

func (s *MemoryStore) dropExpiredLocked(now time.Time) {
	for token, entry := range s.entries {
		if entry.Expired(now) {
			s.removeLocked(token)
		}
	}
}

func (s *MemoryStore) evictOldestLocked() {
	for len(s.order) > 0 {
		oldest := s.order[0]
		if _, live := s.entries[oldest]; live {
			s.removeLocked(oldest)
			return
		}
		s.order = s.order[1:]
	}
}

func (s *MemoryStore) removeLocked(token string) {
	delete(s.entries, token)
	for i, t := range s.order {
		if t == token {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// newToken returns a short opaque session token.
func newToken() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])[:12]
}

package session

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/bakery-pos/internal/domain"
)

const (
	// DefaultTTL is how long an idle session keeps its cart.
	DefaultTTL = 8 * time.Hour

	// CleanupInterval is how often the background cleanup runs
	CleanupInterval = time.Minute
)

type entry struct {
	state     domain.CartState
	expiresAt time.Time
}

// MemoryStore implements Store for a single process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

// NewMemoryStore creates a store and starts its cleanup goroutine.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &MemoryStore{
		sessions:    make(map[string]*entry),
		ttl:         ttl,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

func (s *MemoryStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.expireSessions()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) expireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, e := range s.sessions {
		if now.After(e.expiresAt) {
			delete(s.sessions, id)
		}
	}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (domain.CartState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID]
	if !ok || s.now().After(e.expiresAt) {
		return domain.CartState{}, ErrSessionNotFound
	}
	return cloneState(e.state), nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, state domain.CartState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = &entry{
		state:     cloneState(state),
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// Close stops the background cleanup and waits for it to finish
func (s *MemoryStore) Close() error {
	close(s.stopCleanup)
	s.wg.Wait()
	return nil
}

func cloneState(state domain.CartState) domain.CartState {
	lines := make([]domain.CartLine, len(state.Lines))
	copy(lines, state.Lines)
	return domain.CartState{Lines: lines, Received: state.Received}
}

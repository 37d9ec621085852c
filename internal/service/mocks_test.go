package service

import (
	"context"
	"iter"
	"sync"

	"github.com/fjod/go_cart/bakery-pos/internal/domain"
	"github.com/fjod/go_cart/bakery-pos/internal/session"
)

// MockSaleStore implements SaleStore for testing
type MockSaleStore struct {
	mu        sync.Mutex
	Lines     []domain.SaleLine
	AppendErr error
	Appends   int
	nextID    int64
}

func (m *MockSaleStore) Append(_ context.Context, lines []domain.SaleLine) ([]domain.SaleLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Appends++
	if m.AppendErr != nil {
		return nil, m.AppendErr
	}
	stored := make([]domain.SaleLine, 0, len(lines))
	for _, line := range lines {
		m.nextID++
		line.ID = m.nextID
		stored = append(stored, line)
	}
	m.Lines = append(m.Lines, stored...)
	return stored, nil
}

func (m *MockSaleStore) ListAll(_ context.Context) iter.Seq2[domain.SaleLine, error] {
	return func(yield func(domain.SaleLine, error) bool) {
		m.mu.Lock()
		lines := make([]domain.SaleLine, len(m.Lines))
		copy(lines, m.Lines)
		m.mu.Unlock()
		for i := len(lines) - 1; i >= 0; i-- {
			if !yield(lines[i], nil) {
				return
			}
		}
	}
}

func (m *MockSaleStore) List(ctx context.Context, limit int) ([]domain.SaleLine, error) {
	var out []domain.SaleLine
	for line := range m.ListAll(ctx) {
		out = append(out, line)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// MockSessionStore implements session.Store for testing
type MockSessionStore struct {
	mu      sync.Mutex
	States  map[string]domain.CartState
	GetErr  error
	Gets    int
	release chan struct{}

	// SaveErr is returned by the FailSaveOn-th Save call, or every call when FailSaveOn is 0
	SaveErr    error
	FailSaveOn int
	Saves      int
	DeleteErr  error
}

func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{States: make(map[string]domain.CartState)}
}

func (m *MockSessionStore) Get(_ context.Context, id string) (domain.CartState, error) {
	m.mu.Lock()
	m.Gets++
	release := m.release
	m.mu.Unlock()
	if release != nil {
		<-release
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return domain.CartState{}, m.GetErr
	}
	state, ok := m.States[id]
	if !ok {
		return domain.CartState{}, session.ErrSessionNotFound
	}
	return state, nil
}

func (m *MockSessionStore) Save(_ context.Context, id string, state domain.CartState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves++
	if m.SaveErr != nil && (m.FailSaveOn == 0 || m.FailSaveOn == m.Saves) {
		return m.SaveErr
	}
	m.States[id] = state
	return nil
}

func (m *MockSessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.States, id)
	return nil
}

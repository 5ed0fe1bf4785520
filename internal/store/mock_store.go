// ABOUTME: In-memory Store implementation for tests.
// ABOUTME: Keeps exchanges in a slice guarded by a mutex.

package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store for tests.
type MockStore struct {
	mu        sync.Mutex
	exchanges []*Exchange
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{}
}

// SaveExchange appends the exchange, filling in ID and timestamp.
func (m *MockStore) SaveExchange(_ context.Context, ex *Exchange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ex.ID == "" {
		ex.ID = uuid.New().String()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}
	cp := *ex
	m.exchanges = append(m.exchanges, &cp)
	return nil
}

// RecentExchanges returns the user's exchanges, newest first.
func (m *MockStore) RecentExchanges(_ context.Context, userID string, limit int) ([]*Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	var out []*Exchange
	for i := len(m.exchanges) - 1; i >= 0 && len(out) < limit; i-- {
		if m.exchanges[i].UserID == userID {
			out = append(out, m.exchanges[i])
		}
	}
	return out, nil
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}

// All returns every recorded exchange in insertion order.
func (m *MockStore) All() []*Exchange {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Exchange, len(m.exchanges))
	copy(out, m.exchanges)
	return out
}

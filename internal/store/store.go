// ABOUTME: Store interface and data types for the exchange ledger.
// ABOUTME: Defines Exchange records and the Store interface for persistence.

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Exchange directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Exchange is one recorded message, either received from a user or sent
// back to them.
type Exchange struct {
	ID        string
	UserID    string
	Direction string // "inbound" or "outbound"
	Text      string
	CreatedAt time.Time
}

// Store records and retrieves exchanges.
type Store interface {
	// SaveExchange persists one exchange record.
	SaveExchange(ctx context.Context, ex *Exchange) error

	// RecentExchanges returns the user's most recent exchanges, newest
	// first, up to limit.
	RecentExchanges(ctx context.Context, userID string, limit int) ([]*Exchange, error)

	// Close releases the underlying database.
	Close() error
}

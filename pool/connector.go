package pool

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Connector is one leasable device connection.
//
// Implementations embed LeaseState to satisfy the lease accessors.
type Connector interface {
	// Open establishes the underlying connection.
	Open(ctx context.Context) error
	// Close releases the underlying connection. It must be safe to call more than once.
	Close() error
	// IsOffline reports whether the connection became unusable.
	IsOffline() bool

	// InUse reports whether the connector is currently leased.
	InUse() bool
	// LeaseToken identifies the current or last lease.
	LeaseToken() uuid.UUID
	// LastUsedAt returns when the connector was last leased or released.
	LastUsedAt() time.Time

	leaseState() *LeaseState
}

// LeaseState holds the lease bookkeeping of a connector. The zero value is idle.
type LeaseState struct {
	mu         sync.RWMutex
	inUse      bool
	token      uuid.UUID
	lastUsedAt time.Time
}

// InUse reports whether the connector is currently leased.
func (s *LeaseState) InUse() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.inUse
}

// LeaseToken identifies the current or last lease. It is uuid.Nil before the first lease.
func (s *LeaseState) LeaseToken() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// LastUsedAt returns when the connector was last leased or released.
func (s *LeaseState) LastUsedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastUsedAt
}

func (s *LeaseState) leaseState() *LeaseState { return s }

func (s *LeaseState) markLeased(now time.Time) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inUse = true
	s.token = uuid.New()
	s.lastUsedAt = now

	return s.token
}

func (s *LeaseState) markIdle(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inUse = false
	s.lastUsedAt = now
}

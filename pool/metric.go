package pool

import "sync/atomic"

// Metrics contains atomic counters of a pool.
type Metrics struct {
	// CreatedCount is the number of connectors created and opened successfully.
	CreatedCount atomic.Uint64
	// OpenErrCount is the number of connectors whose Open failed.
	OpenErrCount atomic.Uint64
	// ClosedCount is the number of connectors closed by the pool.
	ClosedCount atomic.Uint64
	// AcquireCount is the number of successful Acquire calls.
	AcquireCount atomic.Uint64
	// ReleaseCount is the number of effective Release calls.
	ReleaseCount atomic.Uint64
	// WaitCount is the number of Acquire calls that had to wait.
	WaitCount atomic.Uint64
	// ExhaustedCount is the number of Acquire calls failing with ErrConnectionExhausted.
	ExhaustedCount atomic.Uint64
	// EvictedCount is the number of connectors removed because they went offline or idle.
	EvictedCount atomic.Uint64
}

// Stats is a snapshot of the pool partitions.
type Stats struct {
	Open    int
	Idle    int
	Leased  int
	Opening int
	Closing int
}

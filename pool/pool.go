package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arloliu/go-plc/internal/task"
	"github.com/arloliu/go-plc/internal/timer"
	"github.com/arloliu/go-plc/logger"
	"github.com/arloliu/go-plc/plc"
)

// Factory constructs an unopened connector. The pool calls Open on the result.
type Factory[C Connector] func(ctx context.Context) (C, error)

// Pool lends connectors of type C to concurrent callers.
//
// Selection and lease marking happen under one mutex, so a connector is never lent twice.
// The number of open connectors, including those being opened or still closing, never
// exceeds the configured bound.
type Pool[C Connector] struct {
	cfg     *Config
	factory Factory[C]
	logger  logger.Logger
	taskMgr *task.Manager

	mu      sync.Mutex
	cond    *sync.Cond
	idle    []C
	leased  map[*LeaseState]C
	opening int
	closing int
	closed  bool

	metrics Metrics
}

// New creates a pool using factory to construct connectors.
//
// When idle eviction is enabled, a reaper goroutine derived from ctx closes connectors idle
// for longer than the idle timeout.
func New[C Connector](ctx context.Context, factory Factory[C], opts ...Option) (*Pool[C], error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: nil connector factory", plc.ErrInvalidParameter)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", plc.ErrInvalidParameter, err)
		}
	}

	p := &Pool[C]{
		cfg:     cfg,
		factory: factory,
		logger:  cfg.logger.With("component", "pool"),
		idle:    make([]C, 0, cfg.maxConnectors),
		leased:  make(map[*LeaseState]C, cfg.maxConnectors),
	}
	p.cond = sync.NewCond(&p.mu)
	p.taskMgr = task.NewManager(ctx, p.logger)

	if cfg.idleTimeout > 0 {
		interval := cfg.reapInterval
		if interval <= 0 {
			interval = max(cfg.idleTimeout/2, 100*time.Millisecond)
		}
		if _, err := p.taskMgr.StartInterval("idle_reaper", p.reapIdle, interval); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Config returns the pool configuration.
func (p *Pool[C]) Config() *Config { return p.cfg }

// Metrics returns the pool counters.
func (p *Pool[C]) Metrics() *Metrics { return &p.metrics }

// Stats returns a snapshot of the pool partitions.
func (p *Pool[C]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		Open:    p.openCountLocked(),
		Idle:    len(p.idle),
		Leased:  len(p.leased),
		Opening: p.opening,
		Closing: p.closing,
	}
}

// Acquire lends a connector.
//
// The most recently released idle connector is preferred; idle connectors found offline are
// closed and skipped. When none is idle and the pool is below its bound, a new connector is
// created and opened. Otherwise Acquire waits for a release or an eviction.
//
// The wait is bounded by the context deadline, or by the acquire timeout when the context has
// none; running out of time returns plc.ErrConnectionExhausted. Cancelling ctx returns
// plc.ErrTimeout wrapping context.Canceled.
func (p *Pool[C]) Acquire(ctx context.Context) (C, error) {
	var zero C

	budget := timer.Budget(ctx, p.cfg.acquireTimeout)
	if budget <= 0 {
		p.metrics.ExhaustedCount.Add(1)
		return zero, fmt.Errorf("%w: no time left to acquire", plc.ErrConnectionExhausted)
	}

	waitCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	// wake the waiters so they can observe the expired context
	stop := context.AfterFunc(waitCtx, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer stop()

	var stale []C
	waited := false

	p.mu.Lock()
	for {
		if p.closed {
			p.mu.Unlock()
			return zero, plc.ErrClosed
		}

		for len(p.idle) > 0 {
			last := len(p.idle) - 1
			c := p.idle[last]
			var empty C
			p.idle[last] = empty
			p.idle = p.idle[:last]

			if c.IsOffline() {
				p.metrics.EvictedCount.Add(1)
				p.closing++
				stale = append(stale, c)

				continue
			}

			p.leaseLocked(c)
			p.mu.Unlock()
			p.closeAll(stale)

			return c, nil
		}

		// stale connectors hold their slots until closed
		if len(stale) > 0 {
			p.mu.Unlock()
			p.closeAll(stale)
			stale = nil
			p.mu.Lock()

			continue
		}

		if p.openCountLocked() < p.cfg.maxConnectors {
			p.opening++
			p.mu.Unlock()

			return p.create(waitCtx)
		}

		if waitCtx.Err() != nil {
			p.mu.Unlock()
			if err := ctx.Err(); errors.Is(err, context.Canceled) {
				return zero, fmt.Errorf("%w: %w", plc.ErrTimeout, err)
			}
			p.metrics.ExhaustedCount.Add(1)
			p.logger.Warn("connection pool exhausted", "max_connectors", p.cfg.maxConnectors, "wait", budget)

			return zero, fmt.Errorf("%w: %d connectors in use", plc.ErrConnectionExhausted, p.cfg.maxConnectors)
		}

		if !waited {
			waited = true
			p.metrics.WaitCount.Add(1)
		}
		p.cond.Wait()
	}
}

// Release hands a leased connector back to the pool.
//
// Releasing a connector that is not leased, including a second release of the same lease,
// does nothing. An offline connector is closed and dropped instead of becoming idle.
func (p *Pool[C]) Release(c C) {
	ls := c.leaseState()

	p.mu.Lock()
	if _, ok := p.leased[ls]; !ok {
		p.mu.Unlock()
		return
	}
	delete(p.leased, ls)
	ls.markIdle(time.Now())
	p.metrics.ReleaseCount.Add(1)

	drop := p.closed || c.IsOffline()
	if drop {
		p.closing++
	} else {
		p.idle = append(p.idle, c)
	}
	p.cond.Broadcast()
	p.mu.Unlock()

	if drop {
		p.metrics.EvictedCount.Add(1)
		p.closeAll([]C{c})
	}
}

// Evict removes c from the pool and closes it, whether it is idle or leased.
// A later Release of the same connector does nothing.
func (p *Pool[C]) Evict(c C) {
	ls := c.leaseState()

	p.mu.Lock()
	found := false
	if _, ok := p.leased[ls]; ok {
		delete(p.leased, ls)
		ls.markIdle(time.Now())
		found = true
	} else {
		for i := range p.idle {
			if p.idle[i].leaseState() == ls {
				p.idle = append(p.idle[:i], p.idle[i+1:]...)
				found = true

				break
			}
		}
	}
	if found {
		p.closing++
		p.cond.Broadcast()
	}
	p.mu.Unlock()

	if found {
		p.metrics.EvictedCount.Add(1)
		p.logger.Debug("connector evicted", "lease_token", c.LeaseToken())
		p.closeAll([]C{c})
	}
}

// Close closes every idle connector and fails current and future Acquire calls with
// plc.ErrClosed. Leased connectors are closed when they are released.
func (p *Pool[C]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.closing += len(idle)
	p.cond.Broadcast()
	p.mu.Unlock()

	p.taskMgr.Stop()
	p.taskMgr.Wait()

	var eg errgroup.Group
	for _, c := range idle {
		eg.Go(func() error {
			p.metrics.ClosedCount.Add(1)
			defer p.closeDone()

			return c.Close()
		})
	}

	return eg.Wait()
}

func (p *Pool[C]) create(ctx context.Context) (C, error) {
	var zero C

	c, err := p.factory(ctx)
	if err == nil {
		err = c.Open(ctx)
		if err != nil {
			_ = c.Close()
		}
	}

	p.mu.Lock()
	p.opening--

	if err != nil {
		p.cond.Broadcast()
		p.mu.Unlock()
		p.metrics.OpenErrCount.Add(1)
		p.logger.Error("failed to open connector", "error", err)

		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, plc.ErrTimeout) {
			err = fmt.Errorf("%w: %w", plc.ErrTimeout, err)
		}

		return zero, err
	}

	if p.closed {
		p.closing++
		p.cond.Broadcast()
		p.mu.Unlock()
		p.closeAll([]C{c})

		return zero, plc.ErrClosed
	}

	p.leaseLocked(c)
	p.mu.Unlock()

	p.metrics.CreatedCount.Add(1)
	p.logger.Debug("connector created", "lease_token", c.LeaseToken())

	return c, nil
}

func (p *Pool[C]) leaseLocked(c C) {
	ls := c.leaseState()
	ls.markLeased(time.Now())
	p.leased[ls] = c
	p.metrics.AcquireCount.Add(1)
}

func (p *Pool[C]) openCountLocked() int {
	return len(p.idle) + len(p.leased) + p.opening + p.closing
}

func (p *Pool[C]) reapIdle() bool {
	var expired []C

	now := time.Now()
	p.mu.Lock()
	kept := p.idle[:0]
	for _, c := range p.idle {
		if c.IsOffline() || now.Sub(c.LastUsedAt()) > p.cfg.idleTimeout {
			expired = append(expired, c)
			continue
		}
		kept = append(kept, c)
	}
	var empty C
	for i := len(kept); i < len(p.idle); i++ {
		p.idle[i] = empty
	}
	p.idle = kept
	p.closing += len(expired)
	p.mu.Unlock()

	if len(expired) > 0 {
		p.metrics.EvictedCount.Add(uint64(len(expired)))
		p.logger.Debug("idle connectors reaped", "count", len(expired))
		p.closeAll(expired)
	}

	return true
}

// closeAll closes connectors outside the pool lock, since Close may run offline handlers
// that call back into the pool. The caller must have counted each of cs in p.closing.
func (p *Pool[C]) closeAll(cs []C) {
	for _, c := range cs {
		p.metrics.ClosedCount.Add(1)
		if err := c.Close(); err != nil {
			p.logger.Debug("failed to close connector", "error", err)
		}
		p.closeDone()
	}
}

// closeDone frees the slot of a connector whose Close returned.
func (p *Pool[C]) closeDone() {
	p.mu.Lock()
	p.closing--
	p.cond.Broadcast()
	p.mu.Unlock()
}

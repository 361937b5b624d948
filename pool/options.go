package pool

import (
	"errors"
	"time"

	"github.com/arloliu/go-plc/logger"
)

// Config holds the pool configuration.
type Config struct {
	// maxConnectors bounds the number of simultaneously open connectors.
	// Defaults to 4.
	maxConnectors int

	// acquireTimeout bounds the wait of Acquire when the context carries no deadline.
	// Defaults to 5 seconds.
	acquireTimeout time.Duration

	// idleTimeout closes connectors idle for longer than this duration. Zero disables
	// idle eviction. Defaults to 0.
	idleTimeout time.Duration

	// reapInterval is the period of the idle eviction scan.
	// Defaults to half of idleTimeout, at least 100ms.
	reapInterval time.Duration

	logger logger.Logger
}

func defaultConfig() *Config {
	return &Config{
		maxConnectors:  4,
		acquireTimeout: 5 * time.Second,
		logger:         logger.GetLogger(),
	}
}

// MaxConnectors returns the configured bound.
func (cfg *Config) MaxConnectors() int { return cfg.maxConnectors }

// AcquireTimeout returns the default acquire wait budget.
func (cfg *Config) AcquireTimeout() time.Duration { return cfg.acquireTimeout }

// IdleTimeout returns the idle eviction threshold.
func (cfg *Config) IdleTimeout() time.Duration { return cfg.idleTimeout }

// Option represents a functional option for configuring a Pool.
type Option interface {
	apply(*Config) error
}

type optFunc struct {
	name      string
	applyFunc func(*Config) error
}

func (o *optFunc) apply(cfg *Config) error { return o.applyFunc(cfg) }

func newOptFunc(name string, f func(*Config) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

// WithMaxConnectors sets the maximum number of simultaneously open connectors.
// It must be within [1, 1024].
func WithMaxConnectors(n int) Option {
	return newOptFunc("WithMaxConnectors", func(cfg *Config) error {
		if n < 1 || n > 1024 {
			return errors.New("max connectors out of range [1, 1024]")
		}
		cfg.maxConnectors = n

		return nil
	})
}

// WithAcquireTimeout sets how long Acquire waits for a connector when the context has no
// deadline. It must be positive.
func WithAcquireTimeout(d time.Duration) Option {
	return newOptFunc("WithAcquireTimeout", func(cfg *Config) error {
		if d <= 0 {
			return errors.New("acquire timeout must be positive")
		}
		cfg.acquireTimeout = d

		return nil
	})
}

// WithIdleTimeout enables idle eviction: idle connectors unused for longer than d are closed.
// Zero disables it.
func WithIdleTimeout(d time.Duration) Option {
	return newOptFunc("WithIdleTimeout", func(cfg *Config) error {
		if d < 0 {
			return errors.New("idle timeout must not be negative")
		}
		cfg.idleTimeout = d

		return nil
	})
}

// WithReapInterval sets the period of the idle eviction scan.
func WithReapInterval(d time.Duration) Option {
	return newOptFunc("WithReapInterval", func(cfg *Config) error {
		if d <= 0 {
			return errors.New("reap interval must be positive")
		}
		cfg.reapInterval = d

		return nil
	})
}

// WithLogger sets the logger of the pool.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(cfg *Config) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}

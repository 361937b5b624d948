package transport

import (
	"context"
	"errors"
	"time"

	"github.com/arloliu/go-plc/logger"
)

// HandshakeFunc runs once right after the socket is connected, before the connection is
// lent out. A returned error fails Open.
type HandshakeFunc func(ctx context.Context, c *Conn) error

// OfflineHandler is called once when the connection goes offline.
type OfflineHandler func(c *Conn, reason string)

// ConnectionConfig represents the configuration parameters of a Conn.
type ConnectionConfig struct {
	// dialTimeout bounds the TCP connect when the Open context carries no earlier deadline.
	// Defaults to 3 seconds.
	dialTimeout time.Duration

	// responseTimeout bounds the wait for a complete response frame.
	// Defaults to 3 seconds.
	responseTimeout time.Duration

	// idleTimeout marks the connection offline when nothing is received for this long while
	// no exchange is pending. Zero disables it. Defaults to 0.
	idleTimeout time.Duration

	// readBufferSize is the size of the receiver read buffer.
	// Defaults to 4096.
	readBufferSize int

	handshake HandshakeFunc
	logger    logger.Logger
}

func defaultConnConfig() *ConnectionConfig {
	return &ConnectionConfig{
		dialTimeout:     3 * time.Second,
		responseTimeout: 3 * time.Second,
		readBufferSize:  4096,
		logger:          logger.GetLogger(),
	}
}

// DialTimeout returns the dial timeout.
func (cfg *ConnectionConfig) DialTimeout() time.Duration { return cfg.dialTimeout }

// ResponseTimeout returns the response timeout.
func (cfg *ConnectionConfig) ResponseTimeout() time.Duration { return cfg.responseTimeout }

// IdleTimeout returns the idle timeout.
func (cfg *ConnectionConfig) IdleTimeout() time.Duration { return cfg.idleTimeout }

// ConnOption represents a functional option for configuring a Conn.
type ConnOption interface {
	apply(*ConnectionConfig) error
}

type connOptFunc struct {
	name      string
	applyFunc func(*ConnectionConfig) error
}

func (c *connOptFunc) apply(cfg *ConnectionConfig) error {
	return c.applyFunc(cfg)
}

func newConnOptFunc(name string, f func(*ConnectionConfig) error) *connOptFunc {
	return &connOptFunc{name: name, applyFunc: f}
}

// WithDialTimeout sets the TCP connect timeout. It should be between 10ms and 60 seconds.
func WithDialTimeout(d time.Duration) ConnOption {
	return newConnOptFunc("WithDialTimeout", func(cfg *ConnectionConfig) error {
		if d < 10*time.Millisecond || d > 60*time.Second {
			return errors.New("dial timeout out of range [10ms, 60s]")
		}
		cfg.dialTimeout = d

		return nil
	})
}

// WithResponseTimeout sets the response timeout. It should be between 10ms and 120 seconds.
func WithResponseTimeout(d time.Duration) ConnOption {
	return newConnOptFunc("WithResponseTimeout", func(cfg *ConnectionConfig) error {
		if d < 10*time.Millisecond || d > 120*time.Second {
			return errors.New("response timeout out of range [10ms, 120s]")
		}
		cfg.responseTimeout = d

		return nil
	})
}

// WithIdleTimeout marks the connection offline after d without incoming bytes while idle.
// Zero disables it.
func WithIdleTimeout(d time.Duration) ConnOption {
	return newConnOptFunc("WithIdleTimeout", func(cfg *ConnectionConfig) error {
		if d < 0 {
			return errors.New("idle timeout must not be negative")
		}
		cfg.idleTimeout = d

		return nil
	})
}

// WithReadBufferSize sets the receiver read buffer size. It should be between 64 and 65536.
func WithReadBufferSize(size int) ConnOption {
	return newConnOptFunc("WithReadBufferSize", func(cfg *ConnectionConfig) error {
		if size < 64 || size > 65536 {
			return errors.New("read buffer size out of range [64, 65536]")
		}
		cfg.readBufferSize = size

		return nil
	})
}

// WithHandshake sets a function run right after connecting.
func WithHandshake(f HandshakeFunc) ConnOption {
	return newConnOptFunc("WithHandshake", func(cfg *ConnectionConfig) error {
		cfg.handshake = f
		return nil
	})
}

// WithLogger sets the logger of the connection.
func WithLogger(l logger.Logger) ConnOption {
	return newConnOptFunc("WithLogger", func(cfg *ConnectionConfig) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}

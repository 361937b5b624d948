package device

import (
	"errors"
	"time"

	"github.com/arloliu/go-plc/logger"
	"github.com/arloliu/go-plc/plc"
)

// Config holds the device client configuration.
type Config struct {
	// station is the Fatek station, the Mewtocol station or the Modbus unit id.
	// Defaults to 1.
	station uint8

	// slot is the controller slot of an Allen-Bradley chassis.
	// Defaults to 0.
	slot uint8

	maxConnectors   int
	acquireTimeout  time.Duration
	responseTimeout time.Duration
	dialTimeout     time.Duration
	idleTimeout     time.Duration

	logger   logger.Logger
	messages plc.Messages
}

func defaultConfig() *Config {
	return &Config{
		station:         1,
		maxConnectors:   4,
		acquireTimeout:  5 * time.Second,
		responseTimeout: 3 * time.Second,
		dialTimeout:     3 * time.Second,
		logger:          logger.GetLogger(),
		messages:        plc.DefaultMessages,
	}
}

// Station returns the station or unit id.
func (cfg *Config) Station() uint8 { return cfg.station }

// Slot returns the controller slot.
func (cfg *Config) Slot() uint8 { return cfg.slot }

// Option represents a functional option for configuring a Device.
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

// WithStation sets the Fatek station, the Mewtocol station or the Modbus unit id.
func WithStation(station uint8) Option {
	return newOptFunc("WithStation", func(cfg *Config) error {
		cfg.station = station
		return nil
	})
}

// WithSlot sets the Allen-Bradley controller slot.
func WithSlot(slot uint8) Option {
	return newOptFunc("WithSlot", func(cfg *Config) error {
		cfg.slot = slot
		return nil
	})
}

// WithMaxConnectors bounds the number of simultaneous connections to the device.
func WithMaxConnectors(n int) Option {
	return newOptFunc("WithMaxConnectors", func(cfg *Config) error {
		if n < 1 {
			return errors.New("max connectors must be positive")
		}
		cfg.maxConnectors = n

		return nil
	})
}

// WithAcquireTimeout bounds the wait for a free connection when the context has no deadline.
func WithAcquireTimeout(d time.Duration) Option {
	return newOptFunc("WithAcquireTimeout", func(cfg *Config) error {
		if d <= 0 {
			return errors.New("acquire timeout must be positive")
		}
		cfg.acquireTimeout = d

		return nil
	})
}

// WithResponseTimeout bounds the wait for a response.
func WithResponseTimeout(d time.Duration) Option {
	return newOptFunc("WithResponseTimeout", func(cfg *Config) error {
		if d <= 0 {
			return errors.New("response timeout must be positive")
		}
		cfg.responseTimeout = d

		return nil
	})
}

// WithDialTimeout bounds the TCP connect.
func WithDialTimeout(d time.Duration) Option {
	return newOptFunc("WithDialTimeout", func(cfg *Config) error {
		if d <= 0 {
			return errors.New("dial timeout must be positive")
		}
		cfg.dialTimeout = d

		return nil
	})
}

// WithIdleTimeout closes pooled connections left unused for longer than d. Zero keeps them.
func WithIdleTimeout(d time.Duration) Option {
	return newOptFunc("WithIdleTimeout", func(cfg *Config) error {
		if d < 0 {
			return errors.New("idle timeout must not be negative")
		}
		cfg.idleTimeout = d

		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(cfg *Config) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}

// WithMessages sets the texts prefixed to failed result messages.
func WithMessages(m plc.Messages) Option {
	return newOptFunc("WithMessages", func(cfg *Config) error {
		if m == nil {
			return errors.New("messages are nil")
		}
		cfg.messages = m

		return nil
	})
}

// Package device provides the uniform client for PLCs of every supported vendor.
//
// A Device owns a pool of connections to one PLC. Each operation validates its address and
// parameters, encodes the vendor request, borrows a connection, exchanges one
// request/response pair and decodes the answer into a plc.Result:
//
//	dev, err := device.New(ctx, plc.VendorFatek, "192.168.1.10", 0, device.WithStation(1))
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//
//	res := dev.ReadBool(ctx, "X50", 6)
//	if !res.Success {
//	    log.Println(res.Message)
//	}
//
// Validation failures are reported before any connection is borrowed.
package device

import (
	"context"
	"fmt"

	"github.com/arloliu/go-plc/logger"
	"github.com/arloliu/go-plc/modbus"
	"github.com/arloliu/go-plc/plc"
	"github.com/arloliu/go-plc/pool"
	"github.com/arloliu/go-plc/transport"
)

// Device is a client of one PLC. It is safe for concurrent use.
type Device struct {
	vendor plc.Vendor
	host   string
	port   int
	cfg    *Config
	logger logger.Logger

	pool   *pool.Pool[*transport.Conn]
	modbus *modbus.Codec

	// sender context echoed by EtherNet/IP replies
	senderCtx [8]byte
}

// New creates a client of the vendor PLC at host:port. A zero port selects the vendor
// default port. Connections are opened on demand.
func New(ctx context.Context, vendor plc.Vendor, host string, port int, opts ...Option) (*Device, error) {
	switch vendor {
	case plc.VendorFatek, plc.VendorPanasonic, plc.VendorAllenBradley, plc.VendorModbus:
	default:
		return nil, fmt.Errorf("%w: vendor %s", plc.ErrUnsupported, vendor)
	}
	if host == "" {
		return nil, fmt.Errorf("%w: empty host", plc.ErrInvalidParameter)
	}
	if port == 0 {
		port = vendor.DefaultPort()
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", plc.ErrInvalidParameter, err)
		}
	}

	d := &Device{
		vendor:    vendor,
		host:      host,
		port:      port,
		cfg:       cfg,
		logger:    cfg.logger.With("vendor", vendor.String(), "host", host, "port", port),
		senderCtx: [8]byte{'g', 'o', '-', 'p', 'l', 'c'},
	}
	if vendor == plc.VendorModbus {
		d.modbus = modbus.NewCodec(cfg.station)
	}

	poolOpts := []pool.Option{
		pool.WithMaxConnectors(cfg.maxConnectors),
		pool.WithAcquireTimeout(cfg.acquireTimeout),
		pool.WithIdleTimeout(cfg.idleTimeout),
		pool.WithLogger(d.logger),
	}

	p, err := pool.New(ctx, d.connFactory(ctx), poolOpts...)
	if err != nil {
		return nil, err
	}
	d.pool = p

	return d, nil
}

// Vendor returns the vendor of the device.
func (d *Device) Vendor() plc.Vendor { return d.vendor }

// Config returns the device configuration.
func (d *Device) Config() *Config { return d.cfg }

// Pool returns the connection pool of the device.
func (d *Device) Pool() *pool.Pool[*transport.Conn] { return d.pool }

// Close closes the idle connections and rejects further operations.
func (d *Device) Close() error {
	return d.pool.Close()
}

func (d *Device) connFactory(ctx context.Context) pool.Factory[*transport.Conn] {
	return func(context.Context) (*transport.Conn, error) {
		connOpts := []transport.ConnOption{
			transport.WithDialTimeout(d.cfg.dialTimeout),
			transport.WithResponseTimeout(d.cfg.responseTimeout),
			transport.WithLogger(d.logger),
		}
		if d.vendor == plc.VendorAllenBradley {
			connOpts = append(connOpts, transport.WithHandshake(d.registerSession))
		}

		c, err := transport.NewConn(ctx, d.host, d.port, connOpts...)
		if err != nil {
			return nil, err
		}
		c.AddOfflineHandler(func(c *transport.Conn, _ string) {
			d.pool.Evict(c)
		})

		return c, nil
	}
}

// exchange sends the request built by build on a pooled connection and returns the
// response frame reassembled by framer.
func (d *Device) exchange(ctx context.Context, build func(c *transport.Conn) []byte, framer plc.Framer) ([]byte, error) {
	c, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer d.pool.Release(c)

	return c.Exchange(ctx, build(c), framer)
}

func (d *Device) send(ctx context.Context, req []byte, framer plc.Framer) ([]byte, error) {
	return d.exchange(ctx, func(*transport.Conn) []byte { return req }, framer)
}

func fail[T any](d *Device, op string, address string, err error) plc.Result[T] {
	r := plc.Fail[T](err, d.cfg.messages)
	if r.Kind == plc.KindAddressFormat || r.Kind == plc.KindInvalidParameter {
		d.logger.Debug("operation rejected", "op", op, "address", address, "error", err)
	} else {
		d.logger.Warn("operation failed", "op", op, "address", address, "kind", r.Kind.String(), "error", err)
	}

	return r
}

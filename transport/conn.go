package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-plc/internal/task"
	"github.com/arloliu/go-plc/internal/timer"
	"github.com/arloliu/go-plc/logger"
	"github.com/arloliu/go-plc/plc"
	"github.com/arloliu/go-plc/pool"
)

type exchangeResult struct {
	frame []byte
	err   error
}

// Conn is a pooled TCP connection to one device.
type Conn struct {
	pool.LeaseState

	cfg     *ConnectionConfig
	addr    string
	logger  logger.Logger
	taskMgr *task.Manager
	metrics ConnectionMetrics

	mu       sync.Mutex // protects netConn, opened and handlers
	netConn  net.Conn
	opened   bool
	handlers []OfflineHandler

	// one request/response cycle at a time
	exchangeMu sync.Mutex

	asmMu    sync.Mutex // protects asm
	asm      *Assembler
	resultCh chan exchangeResult

	offline  atomic.Bool
	closedCh chan struct{}

	session atomic.Uint32
}

var _ pool.Connector = (*Conn)(nil)

// NewConn creates an unopened connection to host:port.
//
// The receiver goroutine started by Open derives from ctx, not from the Open context.
func NewConn(ctx context.Context, host string, port int, opts ...ConnOption) (*Conn, error) {
	if host == "" {
		return nil, fmt.Errorf("%w: empty host", plc.ErrInvalidParameter)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("%w: port %d out of range", plc.ErrInvalidParameter, port)
	}

	cfg := defaultConnConfig()
	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", plc.ErrInvalidParameter, err)
		}
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	l := cfg.logger.With("remote_address", addr)

	return &Conn{
		cfg:      cfg,
		addr:     addr,
		logger:   l,
		taskMgr:  task.NewManager(ctx, l),
		resultCh: make(chan exchangeResult, 1),
		closedCh: make(chan struct{}),
	}, nil
}

// Addr returns the remote address.
func (c *Conn) Addr() string { return c.addr }

// Config returns the connection configuration.
func (c *Conn) Config() *ConnectionConfig { return c.cfg }

// GetMetrics returns the connection metrics.
func (c *Conn) GetMetrics() *ConnectionMetrics { return &c.metrics }

// Session returns the session handle negotiated by the handshake, zero when there is none.
func (c *Conn) Session() uint32 { return c.session.Load() }

// SetSession stores the session handle negotiated by the handshake.
func (c *Conn) SetSession(session uint32) { c.session.Store(session) }

// AddOfflineHandler registers h to run when the connection goes offline.
// Handlers registered after the transition are never called.
func (c *Conn) AddOfflineHandler(h OfflineHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handlers = append(c.handlers, h)
}

// Done returns a channel closed when the connection goes offline.
func (c *Conn) Done() <-chan struct{} { return c.closedCh }

// IsOffline reports whether the connection went offline.
func (c *Conn) IsOffline() bool { return c.offline.Load() }

// Open connects the socket, starts the receiver and runs the handshake.
func (c *Conn) Open(ctx context.Context) error {
	if c.IsOffline() {
		return plc.ErrClosed
	}

	c.mu.Lock()
	if c.opened {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	dialer := net.Dialer{Timeout: c.cfg.dialTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		c.logger.Error("failed to connect", "error", err)
		return wrapNetError(err)
	}

	c.mu.Lock()
	c.netConn = nc
	c.opened = true
	c.mu.Unlock()

	// Close may have raced with the dial
	if c.IsOffline() {
		_ = nc.Close()
		return plc.ErrClosed
	}

	buf := make([]byte, c.cfg.readBufferSize)
	if err := c.taskMgr.Start("receiver", func() bool { return c.receiverTask(nc, buf) }, nil); err != nil {
		c.MarkOffline("receiver start failed")
		return err
	}

	c.logger.Info("connected")

	if c.cfg.handshake != nil {
		if err := c.cfg.handshake(ctx, c); err != nil {
			c.logger.Error("handshake failed", "error", err)
			c.MarkOffline("handshake failed")

			return err
		}
	}

	return nil
}

// Close takes the connection offline. It is safe to call more than once and from offline
// handlers.
func (c *Conn) Close() error {
	c.MarkOffline("closed")
	return nil
}

// MarkOffline moves the connection offline and reports whether this call performed the
// transition. Only the winning call closes the socket and runs the offline handlers.
func (c *Conn) MarkOffline(reason string) bool {
	if !c.offline.CompareAndSwap(false, true) {
		return false
	}

	c.metrics.incOfflineCount()
	if reason == "closed" {
		c.logger.Debug("connection closed")
	} else {
		c.logger.Warn("connection offline", "reason", reason)
	}

	close(c.closedCh)
	c.taskMgr.Stop()

	c.mu.Lock()
	nc := c.netConn
	handlers := c.handlers
	c.handlers = nil
	c.mu.Unlock()

	if nc != nil {
		_ = nc.Close()
	}

	for _, h := range handlers {
		h(c, reason)
	}

	return true
}

// Exchange writes request and waits for the response frame reassembled by framer.
//
// The wait is bounded by the response timeout and the context. When either expires the
// connection goes offline, so a response arriving late is never attributed to a later
// request.
func (c *Conn) Exchange(ctx context.Context, request []byte, framer plc.Framer) ([]byte, error) {
	if framer == nil {
		return nil, fmt.Errorf("%w: nil framer", plc.ErrInvalidParameter)
	}

	c.exchangeMu.Lock()
	defer c.exchangeMu.Unlock()

	if c.IsOffline() {
		return nil, fmt.Errorf("%w: connection offline", plc.ErrSocketTransport)
	}

	c.mu.Lock()
	nc := c.netConn
	c.mu.Unlock()
	if nc == nil {
		return nil, fmt.Errorf("%w: connection not opened", plc.ErrSocketTransport)
	}

	c.metrics.incExchangeCount()

	// drop a result left over by a frame nobody waited for
	select {
	case <-c.resultCh:
	default:
	}

	c.setAssembler(NewAssembler(framer))

	wait := c.cfg.responseTimeout
	if deadline, ok := ctx.Deadline(); ok {
		wait = min(wait, time.Until(deadline))
	}

	_ = nc.SetWriteDeadline(time.Now().Add(c.cfg.responseTimeout))
	n, err := nc.Write(request)
	c.metrics.addBytesSent(n)
	if err != nil {
		c.setAssembler(nil)
		c.metrics.incExchangeErrCount()
		c.MarkOffline("write error: " + err.Error())

		return nil, wrapNetError(err)
	}

	c.logger.Debug("request sent", "bytes", n)

	if wait <= 0 {
		return nil, c.abandon(fmt.Errorf("%w: %w", plc.ErrTimeout, context.DeadlineExceeded), "exchange deadline exceeded")
	}

	t := timer.Get(wait)
	defer timer.Put(t)

	select {
	case r := <-c.resultCh:
		return c.finish(r)

	case <-t.C:
		c.metrics.incTimeoutCount()
		return nil, c.abandon(fmt.Errorf("%w: no response within %v", plc.ErrTimeout, wait), "response timeout")

	case <-ctx.Done():
		return nil, c.abandon(fmt.Errorf("%w: %w", plc.ErrTimeout, ctx.Err()), "exchange cancelled")

	case <-c.closedCh:
		// a frame delivered right before the transition still wins
		select {
		case r := <-c.resultCh:
			return c.finish(r)
		default:
		}
		c.setAssembler(nil)
		c.metrics.incExchangeErrCount()

		return nil, fmt.Errorf("%w: connection lost", plc.ErrSocketTransport)
	}
}

func (c *Conn) finish(r exchangeResult) ([]byte, error) {
	if r.err != nil {
		c.metrics.incExchangeErrCount()
		return nil, r.err
	}

	return r.frame, nil
}

func (c *Conn) abandon(err error, reason string) error {
	c.setAssembler(nil)
	c.metrics.incExchangeErrCount()
	c.MarkOffline(reason)

	return err
}

func (c *Conn) setAssembler(asm *Assembler) {
	c.asmMu.Lock()
	c.asm = asm
	c.asmMu.Unlock()
}

func (c *Conn) exchangePending() bool {
	c.asmMu.Lock()
	defer c.asmMu.Unlock()

	return c.asm != nil
}

// receiverTask reads once from the socket and feeds the pending exchange.
func (c *Conn) receiverTask(nc net.Conn, buf []byte) bool {
	if c.cfg.idleTimeout > 0 {
		_ = nc.SetReadDeadline(time.Now().Add(c.cfg.idleTimeout))
	}

	n, err := nc.Read(buf)
	if n > 0 {
		c.metrics.addBytesRecv(n)
		if !c.deliver(buf[:n]) {
			// the stream cannot be resynchronized after a bad header
			c.MarkOffline("malformed frame")
			return false
		}
	}

	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			// the response timeout of a pending exchange is enforced by Exchange
			if c.exchangePending() {
				return true
			}
			c.MarkOffline("idle timeout")

			return false
		}

		if !isClosedError(err) {
			c.logger.Error("failed to read from device", "error", err)
		}
		c.MarkOffline("read error: " + err.Error())

		return false
	}

	return true
}

// deliver feeds p to the pending exchange. It returns false when the stream is corrupt.
// A frame completed before the corruption is still delivered.
func (c *Conn) deliver(p []byte) bool {
	c.asmMu.Lock()
	defer c.asmMu.Unlock()

	if c.asm == nil {
		c.metrics.addDiscardedBytes(len(p))
		c.logger.Debug("discard unsolicited bytes", "bytes", len(p))

		return true
	}

	frames, err := c.asm.Feed(p)
	if len(frames) > 0 {
		c.asm = nil
		c.sendResult(exchangeResult{frame: frames[0]})
		for _, extra := range frames[1:] {
			c.metrics.addDiscardedBytes(len(extra))
		}
	}

	if err != nil {
		c.logger.Warn("reject response frame", "error", err)
		if c.asm != nil {
			c.asm = nil
			c.sendResult(exchangeResult{err: err})
		}

		return false
	}

	return true
}

func (c *Conn) sendResult(r exchangeResult) {
	select {
	case c.resultCh <- r:
	default:
	}
}

func wrapNetError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", plc.ErrTimeout, err)
	}

	return fmt.Errorf("%w: %w", plc.ErrSocketTransport, err)
}

func isClosedError(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		strings.Contains(err.Error(), "connection reset by peer")
}

package transport

import "sync/atomic"

// ConnectionMetrics contains atomic metrics for a connection.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type ConnectionMetrics struct {
	// ExchangeCount indicates the number of request/response cycles started.
	ExchangeCount atomic.Uint64
	// ExchangeErrCount indicates the number of failed request/response cycles.
	ExchangeErrCount atomic.Uint64
	// TimeoutCount indicates the number of response timeouts.
	TimeoutCount atomic.Uint64

	// BytesSent indicates the number of bytes written to the socket.
	BytesSent atomic.Uint64
	// BytesRecv indicates the number of bytes read from the socket.
	BytesRecv atomic.Uint64
	// DiscardedBytes indicates the number of bytes received while no exchange was pending.
	DiscardedBytes atomic.Uint64

	// OfflineCount is 1 once the connection went offline.
	OfflineCount atomic.Uint32
}

func (m *ConnectionMetrics) incExchangeCount() { m.ExchangeCount.Add(1) }
func (m *ConnectionMetrics) incExchangeErrCount() { m.ExchangeErrCount.Add(1) }
func (m *ConnectionMetrics) incTimeoutCount() { m.TimeoutCount.Add(1) }
func (m *ConnectionMetrics) addBytesSent(n int) { m.BytesSent.Add(uint64(n)) }
func (m *ConnectionMetrics) addBytesRecv(n int) { m.BytesRecv.Add(uint64(n)) }
func (m *ConnectionMetrics) addDiscardedBytes(n int) { m.DiscardedBytes.Add(uint64(n)) }
func (m *ConnectionMetrics) incOfflineCount() { m.OfflineCount.Add(1) }

// Package transport implements the TCP connector shared by every vendor client.
//
// A Conn owns one socket and one receiver goroutine. The receiver feeds whatever the socket
// delivers into the Assembler of the exchange in progress, which rebuilds one response frame
// from a header of fixed size followed by content whose length the vendor Framer derives from
// the header. Bytes arriving while no exchange is pending are discarded and counted.
//
// Exchange serializes request/response cycles: one request is outstanding per connection.
//
// Connection loss is observed in several places (read errors, write errors, response
// timeouts, idle timeouts, explicit Close), but the offline transition is an atomic
// compare-and-swap, so the socket is closed and the offline handlers run exactly once.
// A Conn never comes back online; the pool replaces it.
package transport

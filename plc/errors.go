package plc

import (
	"context"
	"errors"
)

var (
	// ErrAddressFormat indicates that an address string does not match the vendor grammar.
	ErrAddressFormat = errors.New("address format error")

	// ErrInvalidParameter indicates that a count, station or value is out of range.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUnsupported indicates that the vendor protocol does not provide the operation.
	ErrUnsupported = errors.New("operation not supported by vendor")
)

var (
	// ErrChecksumMismatch indicates that the checksum of a received frame is invalid.
	// The frame is discarded and no retry is attempted.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrMalformedFrame indicates that a received frame lacks its header or terminator,
	// or carries an inconsistent length.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrDeviceError indicates that the device answered with an error or exception code.
	ErrDeviceError = errors.New("device reported error")
)

var (
	// ErrConnectionExhausted indicates that the pool is at capacity and no connector was
	// released within the wait budget.
	ErrConnectionExhausted = errors.New("connection pool exhausted")

	// ErrSocketTransport indicates a read or write failure on the device socket.
	ErrSocketTransport = errors.New("socket transport error")

	// ErrTimeout indicates that no complete response arrived within the caller's budget.
	ErrTimeout = errors.New("timeout")

	// ErrClosed indicates that the pool or the connector has been closed.
	ErrClosed = errors.New("closed")
)

// ErrorKind classifies errors returned across the public boundary.
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	KindAddressFormat
	KindInvalidParameter
	KindChecksumMismatch
	KindMalformedFrame
	KindConnectionExhausted
	KindSocketTransport
	KindTimeout
	KindDeviceError
	KindUnsupported
	KindClosed
	KindUnknown
)

// String returns string representation of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindAddressFormat:
		return "AddressFormatError"
	case KindInvalidParameter:
		return "InvalidParameter"
	case KindChecksumMismatch:
		return "ChecksumMismatch"
	case KindMalformedFrame:
		return "MalformedFrame"
	case KindConnectionExhausted:
		return "ConnectionExhausted"
	case KindSocketTransport:
		return "SocketTransportError"
	case KindTimeout:
		return "Timeout"
	case KindDeviceError:
		return "DeviceError"
	case KindUnsupported:
		return "Unsupported"
	case KindClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// kindOrder lists the sentinels from the most to the least specific.
// A transport failure caused by a timeout must still be reported as a timeout.
var kindOrder = []struct {
	err  error
	kind ErrorKind
}{
	{ErrAddressFormat, KindAddressFormat},
	{ErrInvalidParameter, KindInvalidParameter},
	{ErrUnsupported, KindUnsupported},
	{ErrChecksumMismatch, KindChecksumMismatch},
	{ErrMalformedFrame, KindMalformedFrame},
	{ErrDeviceError, KindDeviceError},
	{ErrConnectionExhausted, KindConnectionExhausted},
	{ErrTimeout, KindTimeout},
	{context.DeadlineExceeded, KindTimeout},
	{ErrSocketTransport, KindSocketTransport},
	{ErrClosed, KindClosed},
}

// KindOf classifies err. It returns KindNone for a nil error and KindUnknown when err
// does not wrap any of the package sentinels.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	for _, k := range kindOrder {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}

	return KindUnknown
}

// Package handle implements the composite 32-bit routing value used to dispatch messages
// to registered handlers.
//
// A Handle is partitioned as major:8 | minor:8 | identifier:16, most significant byte first:
//
//	value == major<<24 | minor<<16 | identifier
//
// Arithmetic only touches the identifier, which wraps modulo 65536.
package handle

import "fmt"

// Handle is a composite routing value.
type Handle uint32

// New builds a handle from its parts.
func New(major uint8, minor uint8, identifier uint16) Handle {
	return Handle(uint32(major)<<24 | uint32(minor)<<16 | uint32(identifier))
}

// FromValue wraps a raw 32-bit value.
func FromValue(raw uint32) Handle {
	return Handle(raw)
}

// Major returns the most significant byte.
func (h Handle) Major() uint8 { return uint8(h >> 24) }

// Minor returns the second byte.
func (h Handle) Minor() uint8 { return uint8(h >> 16) }

// Identifier returns the low 16 bits.
func (h Handle) Identifier() uint16 { return uint16(h) }

// Value returns the raw 32-bit value.
func (h Handle) Value() uint32 { return uint32(h) }

// Parts returns the decomposed triple.
func (h Handle) Parts() (major uint8, minor uint8, identifier uint16) {
	return h.Major(), h.Minor(), h.Identifier()
}

// Increment returns the handle with its identifier increased by one, wrapping 65535 to 0.
func (h Handle) Increment() Handle {
	return h.WithIdentifier(h.Identifier() + 1)
}

// Decrement returns the handle with its identifier decreased by one, wrapping 0 to 65535.
func (h Handle) Decrement() Handle {
	return h.WithIdentifier(h.Identifier() - 1)
}

// WithIdentifier returns the handle with the identifier replaced.
func (h Handle) WithIdentifier(identifier uint16) Handle {
	return Handle(uint32(h)&0xFFFF0000 | uint32(identifier))
}

// String returns "major.minor.identifier".
func (h Handle) String() string {
	return fmt.Sprintf("%d.%d.%d", h.Major(), h.Minor(), h.Identifier())
}

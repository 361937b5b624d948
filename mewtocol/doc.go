// Package mewtocol implements the Panasonic MEWTOCOL-COM ASCII protocol.
//
// Commands are framed as
//
//	'%' | station(2 hex) | '#' | command | parameters | BCC(2 hex) | CR
//
// and answered with '$' (success) or '!' (error, followed by a two-digit code) in place of
// '#'. The BCC is the XOR of every preceding character of the frame.
//
// Word areas are addressed by a decimal word number ("X1", "D100"). Contacts are addressed by
// a decimal word number followed by one hexadecimal bit digit, so contact "X1A" is bit 10 of
// word 1. Register data is transmitted low byte first; decoding it yields little-endian
// bytes.
package mewtocol

// Package fatek implements the Fatek FACON ASCII protocol used by FBs series PLCs.
//
// A request frame is
//
//	STX | station(2 hex) | function(2 hex) | count(2 hex) | address | [data] | checksum(2 hex) | ETX
//
// and a response frame is
//
//	STX | station(2 hex) | function(2 hex) | error(1) | [data] | checksum(2 hex) | ETX
//
// The checksum is the sum, modulo 256, of every byte from STX through the data.
//
// Discrete points travel as one '0'/'1' character each; registers travel as four hex digits
// per 16-bit word. Word values are exchanged with callers as little-endian bytes.
package fatek

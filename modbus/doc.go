// Package modbus implements the Modbus TCP client codec.
//
// Frames carry the 7-byte MBAP header (transaction id, protocol id 0, length, unit id)
// followed by the PDU. Device addresses follow the grammar
//
//	[s=<unit>;][x=<function>;]<offset>
//
// where the optional unit and function code override the defaults. Register values are
// big-endian on the wire and are exchanged with callers as little-endian bytes, the same
// byte order as every other codec of the module.
package modbus

// Package plc holds the vocabulary shared by every go-plc package: the error kinds and
// sentinel errors, the uniform Result envelope returned by device operations, the Vendor
// discriminator and the Framer contract used to reassemble response frames.
//
// Error Kinds:
//
//   - KindAddressFormat: an address string failed the vendor grammar, detected before any I/O.
//   - KindInvalidParameter: a count or value is out of range, detected before any I/O.
//   - KindChecksumMismatch: a received frame failed checksum validation and was discarded.
//   - KindMalformedFrame: a terminator or header is missing, or a length is inconsistent.
//   - KindConnectionExhausted: the pool had no connector to lend within the wait budget.
//   - KindSocketTransport: a read or write failed, the connector went offline.
//   - KindTimeout: no complete response arrived within the budget.
//   - KindDeviceError: the device answered with an error code.
//   - KindUnsupported: the vendor does not implement the operation.
//   - KindClosed: the pool or connector was closed.
package plc

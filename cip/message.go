package cip

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/go-plc/internal/util"
	"github.com/arloliu/go-plc/plc"
)

// Service codes.
const (
	ServiceReadTag         byte = 0x4C
	ServiceWriteTag        byte = 0x4D
	ServiceUnconnectedSend byte = 0x52

	replyFlag byte = 0x80
)

// General status codes.
const (
	StatusSuccess         byte = 0x00
	StatusPartialTransfer byte = 0x06
)

var statusText = map[byte]string{
	0x01: "connection failure",
	0x02: "resource unavailable",
	0x03: "invalid parameter value",
	0x04: "path segment error",
	0x05: "path destination unknown",
	0x06: "partial transfer",
	0x08: "service not supported",
	0x09: "invalid attribute value",
	0x0A: "attribute list error",
	0x0C: "object state conflict",
	0x0F: "privilege violation",
	0x10: "device state conflict",
	0x11: "reply data too large",
	0x13: "not enough data",
	0x14: "attribute not supported",
	0x15: "too much data",
	0x1E: "embedded service error",
	0x20: "invalid parameter",
	0x26: "path size invalid",
	0xFF: "general error",
}

// EncodeReadTag builds a Read Tag request for elements elements of tag.
func EncodeReadTag(tag string, elements uint16) ([]byte, error) {
	if elements == 0 {
		return nil, fmt.Errorf("%w: element count must be positive", plc.ErrInvalidParameter)
	}

	path, err := EncodeTagPath(tag)
	if err != nil {
		return nil, err
	}

	msg := make([]byte, 0, 2+len(path)+2)
	msg = append(msg, ServiceReadTag, byte(len(path)/2))
	msg = append(msg, path...)

	return binary.LittleEndian.AppendUint16(msg, elements), nil
}

// EncodeWriteTag builds a Write Tag request storing data, elements elements of typeCode,
// into tag. data holds the raw little-endian element values.
func EncodeWriteTag(tag string, typeCode uint16, elements uint16, data []byte) ([]byte, error) {
	if elements == 0 {
		return nil, fmt.Errorf("%w: element count must be positive", plc.ErrInvalidParameter)
	}
	if size := TypeSize(typeCode); size > 0 && len(data) != size*int(elements) {
		return nil, fmt.Errorf("%w: %d bytes for %d %s elements", plc.ErrInvalidParameter, len(data), elements, TypeName(typeCode))
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no data to write", plc.ErrInvalidParameter)
	}

	path, err := EncodeTagPath(tag)
	if err != nil {
		return nil, err
	}

	msg := make([]byte, 0, 2+len(path)+4+len(data))
	msg = append(msg, ServiceWriteTag, byte(len(path)/2))
	msg = append(msg, path...)
	msg = binary.LittleEndian.AppendUint16(msg, typeCode)
	msg = binary.LittleEndian.AppendUint16(msg, elements)

	return append(msg, data...), nil
}

// WrapUnconnectedSend wraps msg in an Unconnected Send addressed to the Connection Manager,
// routed through the backplane port to slot.
func WrapUnconnectedSend(msg []byte, slot uint8) []byte {
	out := make([]byte, 0, 16+len(msg))
	out = append(out, ServiceUnconnectedSend, 0x02, 0x20, 0x06, 0x24, 0x01)
	// priority/time tick and timeout ticks
	out = append(out, 0x0A, 0x0E)
	out = binary.LittleEndian.AppendUint16(out, uint16(len(msg)))
	out = append(out, msg...)
	if len(msg)%2 != 0 {
		out = append(out, 0x00)
	}
	// route path: one word, backplane port 1, slot
	return append(out, 0x01, 0x00, 0x01, slot)
}

// Reply is a decoded message router reply.
type Reply struct {
	Service         byte
	Status          byte
	ExtendedStatus  []uint16
	Data            []byte
	PartialTransfer bool
}

// DecodeReply decodes a message router reply.
//
// A general status other than success or partial transfer yields plc.ErrDeviceError.
func DecodeReply(reply []byte) (Reply, error) {
	if len(reply) < 4 {
		return Reply{}, fmt.Errorf("%w: cip reply too short (%d bytes)", plc.ErrMalformedFrame, len(reply))
	}
	if reply[0]&replyFlag == 0 {
		return Reply{}, fmt.Errorf("%w: cip service 0x%02X is not a reply", plc.ErrMalformedFrame, reply[0])
	}

	extWords := int(reply[3])
	if len(reply) < 4+extWords*2 {
		return Reply{}, fmt.Errorf("%w: cip extended status truncated", plc.ErrMalformedFrame)
	}

	r := Reply{
		Service: reply[0] &^ replyFlag,
		Status:  reply[2],
	}
	for i := range extWords {
		r.ExtendedStatus = append(r.ExtendedStatus, binary.LittleEndian.Uint16(reply[4+i*2:]))
	}
	r.Data = util.CloneSlice(reply[4+extWords*2:], 0)

	switch r.Status {
	case StatusSuccess:
	case StatusPartialTransfer:
		r.PartialTransfer = true
	default:
		text, ok := statusText[r.Status]
		if !ok {
			text = "unknown status"
		}
		if len(r.ExtendedStatus) > 0 {
			return r, fmt.Errorf("%w: cip status 0x%02X (%s), extended 0x%04X", plc.ErrDeviceError, r.Status, text, r.ExtendedStatus[0])
		}

		return r, fmt.Errorf("%w: cip status 0x%02X (%s)", plc.ErrDeviceError, r.Status, text)
	}

	return r, nil
}

// ParseReadData splits Read Tag reply data into the type code and the raw value bytes.
// Structure values keep their structure handle out of the returned bytes.
func ParseReadData(data []byte) (uint16, []byte, error) {
	if len(data) < 2 {
		return 0, nil, fmt.Errorf("%w: read tag data too short", plc.ErrMalformedFrame)
	}

	typeCode := binary.LittleEndian.Uint16(data)
	value := data[2:]
	if typeCode == TypeStruct {
		if len(value) < 2 {
			return 0, nil, fmt.Errorf("%w: structure handle missing", plc.ErrMalformedFrame)
		}
		value = value[2:]
	}

	if size := TypeSize(typeCode); size > 0 && len(value)%size != 0 {
		return 0, nil, fmt.Errorf("%w: %d bytes of %s data", plc.ErrMalformedFrame, len(value), TypeName(typeCode))
	}

	return typeCode, value, nil
}

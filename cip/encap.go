package cip

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/go-plc/plc"
)

// Encapsulation commands.
const (
	CommandListIdentity      uint16 = 0x0063
	CommandRegisterSession   uint16 = 0x0065
	CommandUnregisterSession uint16 = 0x0066
	CommandSendRRData        uint16 = 0x006F
)

// Common packet format item types.
const (
	itemNullAddress     uint16 = 0x0000
	itemUnconnectedData uint16 = 0x00B2
)

// HeaderSize is the size of the encapsulation header.
const HeaderSize = 24

// Encapsulation is an EtherNet/IP encapsulation packet.
type Encapsulation struct {
	Command uint16
	Session uint32
	Status  uint32
	Context [8]byte
	Options uint32
	Data    []byte
}

// Encode serializes the packet.
func (e Encapsulation) Encode() []byte {
	out := make([]byte, HeaderSize, HeaderSize+len(e.Data))
	binary.LittleEndian.PutUint16(out[0:2], e.Command)
	binary.LittleEndian.PutUint16(out[2:4], uint16(len(e.Data)))
	binary.LittleEndian.PutUint32(out[4:8], e.Session)
	binary.LittleEndian.PutUint32(out[8:12], e.Status)
	copy(out[12:20], e.Context[:])
	binary.LittleEndian.PutUint32(out[20:24], e.Options)

	return append(out, e.Data...)
}

// DecodeEncapsulation parses a packet and checks its length and status.
func DecodeEncapsulation(frame []byte) (Encapsulation, error) {
	if len(frame) < HeaderSize {
		return Encapsulation{}, fmt.Errorf("%w: encapsulation too short (%d bytes)", plc.ErrMalformedFrame, len(frame))
	}

	length := int(binary.LittleEndian.Uint16(frame[2:4]))
	if len(frame) != HeaderSize+length {
		return Encapsulation{}, fmt.Errorf("%w: encapsulation length %d, got %d data bytes", plc.ErrMalformedFrame, length, len(frame)-HeaderSize)
	}

	e := Encapsulation{
		Command: binary.LittleEndian.Uint16(frame[0:2]),
		Session: binary.LittleEndian.Uint32(frame[4:8]),
		Status:  binary.LittleEndian.Uint32(frame[8:12]),
		Options: binary.LittleEndian.Uint32(frame[20:24]),
		Data:    frame[HeaderSize:],
	}
	copy(e.Context[:], frame[12:20])

	if e.Status != 0 {
		return e, fmt.Errorf("%w: encapsulation status 0x%08X", plc.ErrDeviceError, e.Status)
	}

	return e, nil
}

// EncodeRegisterSession builds a RegisterSession request for protocol version 1.
func EncodeRegisterSession(context [8]byte) []byte {
	data := make([]byte, 0, 4)
	data = binary.LittleEndian.AppendUint16(data, 1)
	data = binary.LittleEndian.AppendUint16(data, 0)

	return Encapsulation{Command: CommandRegisterSession, Context: context, Data: data}.Encode()
}

// DecodeRegisterSession returns the session handle granted by a RegisterSession reply.
func DecodeRegisterSession(frame []byte) (uint32, error) {
	e, err := DecodeEncapsulation(frame)
	if err != nil {
		return 0, err
	}
	if e.Command != CommandRegisterSession {
		return 0, fmt.Errorf("%w: command 0x%04X answering RegisterSession", plc.ErrMalformedFrame, e.Command)
	}
	if e.Session == 0 {
		return 0, fmt.Errorf("%w: no session handle granted", plc.ErrMalformedFrame)
	}

	return e.Session, nil
}

// EncodeUnregisterSession builds an UnregisterSession request.
func EncodeUnregisterSession(session uint32) []byte {
	return Encapsulation{Command: CommandUnregisterSession, Session: session}.Encode()
}

// EncodeSendRRData places msg in the unconnected data item of a SendRRData request.
func EncodeSendRRData(session uint32, context [8]byte, msg []byte) []byte {
	data := make([]byte, 0, 16+len(msg))
	// interface handle and timeout
	data = binary.LittleEndian.AppendUint32(data, 0)
	data = binary.LittleEndian.AppendUint16(data, 0)
	// item count, null address item, unconnected data item
	data = binary.LittleEndian.AppendUint16(data, 2)
	data = binary.LittleEndian.AppendUint16(data, itemNullAddress)
	data = binary.LittleEndian.AppendUint16(data, 0)
	data = binary.LittleEndian.AppendUint16(data, itemUnconnectedData)
	data = binary.LittleEndian.AppendUint16(data, uint16(len(msg)))
	data = append(data, msg...)

	return Encapsulation{Command: CommandSendRRData, Session: session, Context: context, Data: data}.Encode()
}

// DecodeSendRRData extracts the message router reply from a SendRRData reply.
func DecodeSendRRData(frame []byte) ([]byte, error) {
	e, err := DecodeEncapsulation(frame)
	if err != nil {
		return nil, err
	}
	if e.Command != CommandSendRRData {
		return nil, fmt.Errorf("%w: command 0x%04X answering SendRRData", plc.ErrMalformedFrame, e.Command)
	}

	data := e.Data
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: SendRRData reply too short", plc.ErrMalformedFrame)
	}

	count := int(binary.LittleEndian.Uint16(data[6:8]))
	off := 8
	for range count {
		if len(data) < off+4 {
			return nil, fmt.Errorf("%w: common packet item truncated", plc.ErrMalformedFrame)
		}
		itemType := binary.LittleEndian.Uint16(data[off:])
		itemLen := int(binary.LittleEndian.Uint16(data[off+2:]))
		off += 4
		if len(data) < off+itemLen {
			return nil, fmt.Errorf("%w: common packet item truncated", plc.ErrMalformedFrame)
		}
		if itemType == itemUnconnectedData {
			return data[off : off+itemLen], nil
		}
		off += itemLen
	}

	return nil, fmt.Errorf("%w: no unconnected data item", plc.ErrMalformedFrame)
}

// EncapsulationFramer sizes EtherNet/IP packets from the length field of the header.
type EncapsulationFramer struct{}

var _ plc.Framer = EncapsulationFramer{}

func (EncapsulationFramer) HeaderSize() int { return HeaderSize }

func (EncapsulationFramer) ContentLength(header []byte) (int, error) {
	return int(binary.LittleEndian.Uint16(header[2:4])), nil
}

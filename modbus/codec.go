package modbus

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/go-plc/handle"
	"github.com/arloliu/go-plc/internal/util"
	"github.com/arloliu/go-plc/plc"
)

// MBAPHeaderSize is the size of the MBAP header including the unit id.
const MBAPHeaderSize = 7

// MaxPDUSize is the largest PDU a frame may carry.
const MaxPDUSize = 253

// Quantity limits per request.
const (
	MaxReadBits       = 2000
	MaxReadRegisters  = 125
	MaxWriteBits      = 1968
	MaxWriteRegisters = 123
)

// Request is a Modbus request.
type Request struct {
	TransactionID uint16
	UnitID        uint8
	Function      FunctionCode
	Data          []byte
}

// Encode serializes the request with its MBAP header.
func (r Request) Encode() []byte {
	frame := make([]byte, 0, MBAPHeaderSize+1+len(r.Data))
	frame = binary.BigEndian.AppendUint16(frame, r.TransactionID)
	frame = binary.BigEndian.AppendUint16(frame, 0)
	frame = binary.BigEndian.AppendUint16(frame, uint16(2+len(r.Data)))
	frame = append(frame, r.UnitID, byte(r.Function))

	return append(frame, r.Data...)
}

// Response is a decoded Modbus response.
type Response struct {
	TransactionID uint16
	UnitID        uint8
	Function      FunctionCode
	Data          []byte
}

// DecodeResponse parses a response frame. Exception responses yield plc.ErrDeviceError.
func DecodeResponse(frame []byte) (Response, error) {
	if len(frame) < MBAPHeaderSize+1 {
		return Response{}, fmt.Errorf("%w: modbus frame too short (%d bytes)", plc.ErrMalformedFrame, len(frame))
	}
	if pid := binary.BigEndian.Uint16(frame[2:4]); pid != 0 {
		return Response{}, fmt.Errorf("%w: modbus protocol id 0x%04X", plc.ErrMalformedFrame, pid)
	}
	if length := int(binary.BigEndian.Uint16(frame[4:6])); length != len(frame)-6 {
		return Response{}, fmt.Errorf("%w: modbus length %d, got %d bytes", plc.ErrMalformedFrame, length, len(frame)-6)
	}

	resp := Response{
		TransactionID: binary.BigEndian.Uint16(frame[0:2]),
		UnitID:        frame[6],
		Function:      FunctionCode(frame[7]),
		Data:          util.CloneSlice(frame[8:], 0),
	}

	if resp.Function&exceptionFlag != 0 {
		code := ExceptionCode(0)
		if len(resp.Data) > 0 {
			code = ExceptionCode(resp.Data[0])
		}

		return resp, fmt.Errorf("%w: modbus function 0x%02X: %s", plc.ErrDeviceError, uint8(resp.Function&^exceptionFlag), code)
	}

	return resp, nil
}

// Codec builds requests for one default unit and checks that responses match them.
// Transaction ids come from a handle generator, so concurrent callers never share one.
type Codec struct {
	unit  uint8
	txIDs *handle.Generator
}

// NewCodec creates a codec addressing unit by default.
func NewCodec(unit uint8) *Codec {
	return &Codec{
		unit:  unit,
		txIDs: handle.NewGenerator(uint8(plc.VendorModbus), unit),
	}
}

// Read builds a request reading count coils (asBool) or holding registers at address.
// An address function code overrides the default.
func (c *Codec) Read(address string, count int, asBool bool) (Request, error) {
	addr, err := ParseAddress(address, c.unit)
	if err != nil {
		return Request{}, err
	}

	fn := addr.Function
	if fn == 0 {
		fn = FuncReadHoldingRegisters
		if asBool {
			fn = FuncReadCoils
		}
	}
	if !fn.isRead() {
		return Request{}, fmt.Errorf("%w: function 0x%02X cannot read", plc.ErrInvalidParameter, uint8(fn))
	}
	if fn.IsBitAccess() != asBool {
		return Request{}, fmt.Errorf("%w: function 0x%02X does not match the requested data kind", plc.ErrInvalidParameter, uint8(fn))
	}

	limit := MaxReadRegisters
	if asBool {
		limit = MaxReadBits
	}
	if err := checkRange(addr.Offset, count, limit); err != nil {
		return Request{}, err
	}

	data := binary.BigEndian.AppendUint16(nil, addr.Offset)
	data = binary.BigEndian.AppendUint16(data, uint16(count))

	return c.request(addr.Unit, fn, data), nil
}

// WriteBools builds a request writing coils: function 0x05 for one value, 0x0F otherwise.
func (c *Codec) WriteBools(address string, values []bool) (Request, error) {
	addr, err := ParseAddress(address, c.unit)
	if err != nil {
		return Request{}, err
	}
	if err := checkRange(addr.Offset, len(values), MaxWriteBits); err != nil {
		return Request{}, err
	}

	fn := addr.Function
	if fn == 0 {
		fn = FuncWriteMultipleCoils
		if len(values) == 1 {
			fn = FuncWriteSingleCoil
		}
	}

	data := binary.BigEndian.AppendUint16(nil, addr.Offset)
	switch fn {
	case FuncWriteSingleCoil:
		if len(values) != 1 {
			return Request{}, fmt.Errorf("%w: function 0x05 writes one coil", plc.ErrInvalidParameter)
		}
		var v uint16
		if values[0] {
			v = 0xFF00
		}
		data = binary.BigEndian.AppendUint16(data, v)

	case FuncWriteMultipleCoils:
		packed := PackBits(values)
		data = binary.BigEndian.AppendUint16(data, uint16(len(values)))
		data = append(data, byte(len(packed)))
		data = append(data, packed...)

	default:
		return Request{}, fmt.Errorf("%w: function 0x%02X cannot write coils", plc.ErrInvalidParameter, uint8(fn))
	}

	return c.request(addr.Unit, fn, data), nil
}

// WriteBytes builds a request writing registers from little-endian bytes: function 0x06 for
// one register, 0x10 otherwise.
func (c *Codec) WriteBytes(address string, value []byte) (Request, error) {
	addr, err := ParseAddress(address, c.unit)
	if err != nil {
		return Request{}, err
	}
	if len(value)%2 != 0 {
		return Request{}, fmt.Errorf("%w: data length %d is not a whole number of registers", plc.ErrInvalidParameter, len(value))
	}
	count := len(value) / 2
	if err := checkRange(addr.Offset, count, MaxWriteRegisters); err != nil {
		return Request{}, err
	}

	fn := addr.Function
	if fn == 0 {
		fn = FuncWriteMultipleRegisters
		if count == 1 {
			fn = FuncWriteSingleRegister
		}
	}

	data := binary.BigEndian.AppendUint16(nil, addr.Offset)
	switch fn {
	case FuncWriteSingleRegister:
		if count != 1 {
			return Request{}, fmt.Errorf("%w: function 0x06 writes one register", plc.ErrInvalidParameter)
		}
		data = append(data, value[1], value[0])

	case FuncWriteMultipleRegisters:
		data = binary.BigEndian.AppendUint16(data, uint16(count))
		data = append(data, byte(len(value)))
		data = append(data, swapWords(value)...)

	default:
		return Request{}, fmt.Errorf("%w: function 0x%02X cannot write registers", plc.ErrInvalidParameter, uint8(fn))
	}

	return c.request(addr.Unit, fn, data), nil
}

// Check decodes frame and verifies it answers req.
func (c *Codec) Check(req Request, frame []byte) (Response, error) {
	resp, err := DecodeResponse(frame)
	if err != nil {
		return resp, err
	}
	if resp.TransactionID != req.TransactionID {
		return resp, fmt.Errorf("%w: transaction id %d answering %d", plc.ErrMalformedFrame, resp.TransactionID, req.TransactionID)
	}
	if resp.Function != req.Function || resp.UnitID != req.UnitID {
		return resp, fmt.Errorf("%w: response does not match function 0x%02X of unit %d", plc.ErrMalformedFrame, uint8(req.Function), req.UnitID)
	}

	return resp, nil
}

func (c *Codec) request(unit uint8, fn FunctionCode, data []byte) Request {
	return Request{
		TransactionID: c.txIDs.Next().Identifier(),
		UnitID:        unit,
		Function:      fn,
		Data:          data,
	}
}

// ParseBits unpacks count bits of a read coils or discrete inputs response.
func ParseBits(data []byte, count int) ([]bool, error) {
	if len(data) < 1 || int(data[0]) != len(data)-1 || len(data)-1 < (count+7)/8 {
		return nil, fmt.Errorf("%w: modbus bit data of %d bytes for %d bits", plc.ErrMalformedFrame, len(data), count)
	}

	values := make([]bool, count)
	for i := range values {
		values[i] = data[1+i/8]&(1<<(i%8)) != 0
	}

	return values, nil
}

// ParseRegisters converts a read registers response into little-endian bytes.
func ParseRegisters(data []byte) ([]byte, error) {
	if len(data) < 1 || int(data[0]) != len(data)-1 || data[0]%2 != 0 {
		return nil, fmt.Errorf("%w: modbus register data of %d bytes", plc.ErrMalformedFrame, len(data))
	}

	return swapWords(data[1:]), nil
}

// PackBits packs values LSB first, eight per byte.
func PackBits(values []bool) []byte {
	out := make([]byte, (len(values)+7)/8)
	for i, v := range values {
		if v {
			out[i/8] |= 1 << (i % 8)
		}
	}

	return out
}

func swapWords(p []byte) []byte {
	out := make([]byte, len(p))
	for i := 0; i+1 < len(p); i += 2 {
		out[i], out[i+1] = p[i+1], p[i]
	}

	return out
}

func checkRange(offset uint16, count int, limit int) error {
	if count < 1 || count > limit {
		return fmt.Errorf("%w: quantity %d out of range [1, %d]", plc.ErrInvalidParameter, count, limit)
	}
	if int(offset)+count > 0x10000 {
		return fmt.Errorf("%w: range %d+%d beyond the address space", plc.ErrInvalidParameter, offset, count)
	}

	return nil
}

// Framer sizes Modbus TCP frames from the MBAP length field.
type Framer struct{}

var _ plc.Framer = Framer{}

func (Framer) HeaderSize() int { return MBAPHeaderSize }

func (Framer) ContentLength(header []byte) (int, error) {
	if pid := binary.BigEndian.Uint16(header[2:4]); pid != 0 {
		return 0, fmt.Errorf("%w: modbus protocol id 0x%04X", plc.ErrMalformedFrame, pid)
	}

	length := int(binary.BigEndian.Uint16(header[4:6]))
	if length < 2 || length > MaxPDUSize+1 {
		return 0, fmt.Errorf("%w: modbus length %d", plc.ErrMalformedFrame, length)
	}

	// the unit id is part of the header
	return length - 1, nil
}

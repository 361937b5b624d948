package fatek

import (
	"fmt"

	"github.com/arloliu/go-plc/internal/util"
	"github.com/arloliu/go-plc/plc"
)

// Frame delimiters.
const (
	STX byte = 0x02
	ETX byte = 0x03
)

// Function codes.
const (
	FuncReadDiscretes  uint8 = 0x44
	FuncWriteDiscretes uint8 = 0x45
	FuncReadRegisters  uint8 = 0x46
	FuncWriteRegisters uint8 = 0x47
)

// MaxCount is the largest number of points or words a single request may carry.
const MaxCount = 255

// responseHeaderSize covers STX, station, function and error code.
const responseHeaderSize = 6

var errorCodes = map[byte]string{
	'2': "illegal value",
	'3': "illegal format",
	'4': "checksum error",
	'5': "illegal PLC station",
	'6': "syntax error",
	'9': "PLC is running, command refused",
	'A': "illegal address",
}

// EncodeRead builds a request reading count points (asBool) or count 16-bit words starting
// at address.
func EncodeRead(station uint8, address string, count int, asBool bool) ([]byte, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	if err := checkCount(count); err != nil {
		return nil, err
	}

	fn := FuncReadRegisters
	if asBool {
		if addr.Kind != BitArea {
			return nil, fmt.Errorf("%w: %s is not a discrete area", plc.ErrInvalidParameter, addr.Area)
		}
		fn = FuncReadDiscretes
	}

	return pack(station, fn, count, addr, nil), nil
}

// EncodeWriteBool builds a request writing values to consecutive discrete points.
func EncodeWriteBool(station uint8, address string, values []bool) ([]byte, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	if addr.Kind != BitArea {
		return nil, fmt.Errorf("%w: %s is not a discrete area", plc.ErrInvalidParameter, addr.Area)
	}
	if err := checkCount(len(values)); err != nil {
		return nil, err
	}

	data := make([]byte, len(values))
	for i, v := range values {
		data[i] = '0'
		if v {
			data[i] = '1'
		}
	}

	return pack(station, FuncWriteDiscretes, len(values), addr, data), nil
}

// EncodeWriteBytes builds a request writing data as little-endian 16-bit words.
func EncodeWriteBytes(station uint8, address string, data []byte) ([]byte, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: data length %d is not a whole number of words", plc.ErrInvalidParameter, len(data))
	}
	words := len(data) / 2
	if err := checkCount(words); err != nil {
		return nil, err
	}

	payload := make([]byte, 0, words*4)
	for i := 0; i < len(data); i += 2 {
		payload = util.AppendHex(payload, uint64(data[i+1])<<8|uint64(data[i]), 4)
	}

	return pack(station, FuncWriteRegisters, words, addr, payload), nil
}

// Response is a decoded response frame.
type Response struct {
	Station  uint8
	Function uint8
	// Data holds the ASCII data characters between the error code and the checksum.
	Data []byte
}

// DecodeResponse validates a response frame and extracts its data characters.
//
// A device-reported error code yields plc.ErrDeviceError.
func DecodeResponse(frame []byte) (Response, error) {
	if len(frame) < responseHeaderSize+3 {
		return Response{}, fmt.Errorf("%w: fatek frame too short (%d bytes)", plc.ErrMalformedFrame, len(frame))
	}
	if frame[0] != STX || frame[len(frame)-1] != ETX {
		return Response{}, fmt.Errorf("%w: fatek frame lacks STX/ETX", plc.ErrMalformedFrame)
	}

	body := frame[:len(frame)-3]
	want, err := util.ParseHex(frame[len(frame)-3 : len(frame)-1])
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", plc.ErrMalformedFrame, err)
	}
	if got := checksum(body); uint64(got) != want {
		return Response{}, fmt.Errorf("%w: fatek checksum %02X, expected %02X", plc.ErrChecksumMismatch, got, want)
	}

	station, err := util.ParseHex(frame[1:3])
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", plc.ErrMalformedFrame, err)
	}
	fn, err := util.ParseHex(frame[3:5])
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", plc.ErrMalformedFrame, err)
	}

	if code := frame[5]; code != '0' {
		text, ok := errorCodes[code]
		if !ok {
			text = "unknown error"
		}

		return Response{}, fmt.Errorf("%w: fatek error %c: %s", plc.ErrDeviceError, code, text)
	}

	return Response{
		Station:  uint8(station),
		Function: uint8(fn),
		Data:     util.CloneSlice(body[responseHeaderSize:], 0),
	}, nil
}

// ParseBools converts discrete point characters into booleans.
func ParseBools(data []byte) ([]bool, error) {
	values := make([]bool, len(data))
	for i, c := range data {
		switch c {
		case '0':
		case '1':
			values[i] = true
		default:
			return nil, fmt.Errorf("%w: discrete value %q", plc.ErrMalformedFrame, c)
		}
	}

	return values, nil
}

// ParseWords converts register data, four hex digits per word, into little-endian bytes.
func ParseWords(data []byte) ([]byte, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: register data length %d", plc.ErrMalformedFrame, len(data))
	}

	out := make([]byte, 0, len(data)/2)
	for i := 0; i < len(data); i += 4 {
		w, err := util.ParseHex(data[i : i+4])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", plc.ErrMalformedFrame, err)
		}
		out = append(out, byte(w), byte(w>>8))
	}

	return out, nil
}

// ResponseFramer sizes Fatek response frames.
type ResponseFramer struct {
	dataChars int
}

var _ plc.Framer = ResponseFramer{}

// NewResponseFramer returns a framer expecting dataChars data characters in a successful
// response.
func NewResponseFramer(dataChars int) ResponseFramer {
	return ResponseFramer{dataChars: dataChars}
}

// ReadDataChars returns the number of data characters answering a read of count items.
func ReadDataChars(count int, asBool bool) int {
	if asBool {
		return count
	}

	return count * 4
}

func (ResponseFramer) HeaderSize() int { return responseHeaderSize }

func (f ResponseFramer) ContentLength(header []byte) (int, error) {
	if header[0] != STX {
		return 0, fmt.Errorf("%w: fatek frame starts with 0x%02X", plc.ErrMalformedFrame, header[0])
	}
	// an error response carries no data
	if header[5] != '0' {
		return 3, nil
	}

	return f.dataChars + 3, nil
}

func checkCount(count int) error {
	if count < 1 || count > MaxCount {
		return fmt.Errorf("%w: count %d out of range [1, %d]", plc.ErrInvalidParameter, count, MaxCount)
	}

	return nil
}

func pack(station uint8, fn uint8, count int, addr Address, data []byte) []byte {
	frame := make([]byte, 0, 16+len(data))
	frame = append(frame, STX)
	frame = util.AppendHex(frame, uint64(station), 2)
	frame = util.AppendHex(frame, uint64(fn), 2)
	frame = util.AppendHex(frame, uint64(count), 2)
	frame = addr.appendTo(frame)
	frame = append(frame, data...)
	frame = util.AppendHex(frame, uint64(checksum(frame)), 2)

	return append(frame, ETX)
}

func checksum(p []byte) byte {
	var sum byte
	for _, b := range p {
		sum += b
	}

	return sum
}

package mewtocol

import (
	"fmt"

	"github.com/arloliu/go-plc/internal/util"
	"github.com/arloliu/go-plc/plc"
)

// Frame delimiters.
const (
	Start      byte = '%'
	Command    byte = '#'
	Success    byte = '$'
	Failure    byte = '!'
	Terminator byte = '\r'
)

// MaxWords is the largest number of words one request may carry, keeping every frame
// within a single Mewtocol frame.
const MaxWords = 24

// MaxContacts is the largest number of contacts handled by RCP and WCP.
const MaxContacts = 8

// BroadcastStation addresses every unit on the link.
const BroadcastStation uint8 = 0xFF

const responseHeaderSize = 4

var errorCodes = map[int]string{
	20: "not defined",
	21: "NACK",
	22: "WACK",
	23: "unit number overlap",
	24: "transmission format error",
	25: "hardware error",
	26: "unit number setting error",
	27: "not supported",
	28: "no answer",
	29: "buffer closed",
	30: "time out",
	32: "transmission impossible",
	33: "communication stop",
	36: "no local unit",
	38: "other unit error",
	40: "BCC error",
	41: "format error",
	42: "not supported error",
	43: "procedure error",
	50: "link setting error",
	51: "transmission time out",
	52: "transmission impossible",
	53: "busy",
	60: "parameter error",
	61: "data error",
	62: "registration error",
	63: "PLC mode error",
	65: "protect error",
	66: "address error",
	67: "missing data",
}

// EncodeRead builds a request reading count words starting at address: RCC for contact
// areas, RD for data registers.
func EncodeRead(station uint8, address string, count int) ([]byte, error) {
	addr, start, err := wordRange(address, count)
	if err != nil {
		return nil, err
	}

	frame := begin(station)
	frame = appendWordRange(frame, "R", addr, start, count)

	return end(frame), nil
}

// EncodeWrite builds a request writing data, a whole number of little-endian words, starting
// at address: WCC for contact areas, WD for data registers.
func EncodeWrite(station uint8, address string, data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: data length %d is not a whole number of words", plc.ErrInvalidParameter, len(data))
	}

	count := len(data) / 2
	addr, start, err := wordRange(address, count)
	if err != nil {
		return nil, err
	}

	frame := begin(station)
	frame = appendWordRange(frame, "W", addr, start, count)
	frame = util.AppendHexBytes(frame, data)

	return end(frame), nil
}

// EncodeReadBool builds an RCS request reading one contact.
func EncodeReadBool(station uint8, address string) ([]byte, error) {
	addr, word, bit, err := contact(address)
	if err != nil {
		return nil, err
	}

	frame := append(begin(station), "RCS"...)
	frame = appendContact(frame, addr.Area, word, bit)

	return end(frame), nil
}

// EncodeReadBools builds an RCP request reading count consecutive contacts.
func EncodeReadBools(station uint8, address string, count int) ([]byte, error) {
	if count < 1 || count > MaxContacts {
		return nil, fmt.Errorf("%w: contact count %d out of range [1, %d]", plc.ErrInvalidParameter, count, MaxContacts)
	}

	addr, word, bit, err := contactRange(address, count)
	if err != nil {
		return nil, err
	}

	frame := append(begin(station), "RCP"...)
	frame = util.AppendDecimal(frame, uint64(count), 1)
	for i := range count {
		w, b := nextContact(word, bit, i)
		frame = appendContact(frame, addr.Area, w, b)
	}

	return end(frame), nil
}

// EncodeWriteBool builds a WCS request writing one contact.
func EncodeWriteBool(station uint8, address string, value bool) ([]byte, error) {
	addr, word, bit, err := contact(address)
	if err != nil {
		return nil, err
	}

	frame := append(begin(station), "WCS"...)
	frame = appendContact(frame, addr.Area, word, bit)
	frame = append(frame, boolChar(value))

	return end(frame), nil
}

// EncodeWriteBools builds a WCP request writing values to consecutive contacts.
func EncodeWriteBools(station uint8, address string, values []bool) ([]byte, error) {
	if len(values) < 1 || len(values) > MaxContacts {
		return nil, fmt.Errorf("%w: contact count %d out of range [1, %d]", plc.ErrInvalidParameter, len(values), MaxContacts)
	}

	addr, word, bit, err := contactRange(address, len(values))
	if err != nil {
		return nil, err
	}

	frame := append(begin(station), "WCP"...)
	frame = util.AppendDecimal(frame, uint64(len(values)), 1)
	for i, v := range values {
		w, b := nextContact(word, bit, i)
		frame = appendContact(frame, addr.Area, w, b)
		frame = append(frame, boolChar(v))
	}

	return end(frame), nil
}

// Response is a decoded success response.
type Response struct {
	Station uint8
	// Command is the two-character response code, such as "RC" or "WD".
	Command string
	// Data holds the characters between the response code and the BCC.
	Data []byte
}

// DecodeResponse validates a response frame.
//
// An error response yields plc.ErrDeviceError carrying the device error code.
// A BCC of "**" disables the check, as the protocol allows.
func DecodeResponse(frame []byte) (Response, error) {
	if len(frame) < responseHeaderSize+5 {
		return Response{}, fmt.Errorf("%w: mewtocol frame too short (%d bytes)", plc.ErrMalformedFrame, len(frame))
	}
	if frame[0] != Start || frame[len(frame)-1] != Terminator {
		return Response{}, fmt.Errorf("%w: mewtocol frame lacks start or terminator", plc.ErrMalformedFrame)
	}

	body := frame[:len(frame)-3]
	field := frame[len(frame)-3 : len(frame)-1]
	if string(field) != "**" {
		want, err := util.ParseHex(field)
		if err != nil {
			return Response{}, fmt.Errorf("%w: %w", plc.ErrMalformedFrame, err)
		}
		if got := bcc(body); uint64(got) != want {
			return Response{}, fmt.Errorf("%w: mewtocol BCC %02X, expected %02X", plc.ErrChecksumMismatch, got, want)
		}
	}

	station, err := util.ParseHex(frame[1:3])
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", plc.ErrMalformedFrame, err)
	}

	switch frame[3] {
	case Success:
		return Response{
			Station: uint8(station),
			Command: string(body[4:6]),
			Data:    util.CloneSlice(body[6:], 0),
		}, nil

	case Failure:
		code := 0
		for _, c := range body[4:] {
			if c < '0' || c > '9' {
				return Response{}, fmt.Errorf("%w: mewtocol error code %q", plc.ErrMalformedFrame, body[4:])
			}
			code = code*10 + int(c-'0')
		}
		text, ok := errorCodes[code]
		if !ok {
			text = "unknown error"
		}

		return Response{}, fmt.Errorf("%w: mewtocol error %02d: %s", plc.ErrDeviceError, code, text)

	default:
		return Response{}, fmt.Errorf("%w: mewtocol response type %q", plc.ErrMalformedFrame, frame[3])
	}
}

// ParseBools converts contact characters into booleans.
func ParseBools(data []byte) ([]bool, error) {
	values := make([]bool, len(data))
	for i, c := range data {
		switch c {
		case '0':
		case '1':
			values[i] = true
		default:
			return nil, fmt.Errorf("%w: contact value %q", plc.ErrMalformedFrame, c)
		}
	}

	return values, nil
}

// ParseWords decodes register data into little-endian bytes.
func ParseWords(data []byte) ([]byte, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: register data length %d", plc.ErrMalformedFrame, len(data))
	}

	out, err := util.DecodeHexBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", plc.ErrMalformedFrame, err)
	}

	return out, nil
}

// ResponseFramer sizes Mewtocol response frames.
type ResponseFramer struct {
	dataChars int
}

var _ plc.Framer = ResponseFramer{}

// NewResponseFramer returns a framer expecting dataChars data characters in a success
// response.
func NewResponseFramer(dataChars int) ResponseFramer {
	return ResponseFramer{dataChars: dataChars}
}

func (ResponseFramer) HeaderSize() int { return responseHeaderSize }

func (f ResponseFramer) ContentLength(header []byte) (int, error) {
	if header[0] != Start {
		return 0, fmt.Errorf("%w: mewtocol frame starts with 0x%02X", plc.ErrMalformedFrame, header[0])
	}

	switch header[3] {
	case Success:
		// response code, data, BCC, CR
		return 2 + f.dataChars + 3, nil
	case Failure:
		// error code, BCC, CR
		return 5, nil
	default:
		return 0, fmt.Errorf("%w: mewtocol response type %q", plc.ErrMalformedFrame, header[3])
	}
}

func wordRange(address string, count int) (Address, int, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return Address{}, 0, err
	}
	if count < 1 || count > MaxWords {
		return Address{}, 0, fmt.Errorf("%w: word count %d out of range [1, %d]", plc.ErrInvalidParameter, count, MaxWords)
	}

	start, err := addr.Word()
	if err != nil {
		return Address{}, 0, err
	}

	limit := 9999
	if addr.Area == 'D' {
		limit = 99999
	}
	if start+count-1 > limit {
		return Address{}, 0, fmt.Errorf("%w: word range %d+%d beyond %d", plc.ErrInvalidParameter, start, count, limit)
	}

	return addr, start, nil
}

// appendWordRange appends the command and range of a word read or write; op is "R" or "W".
func appendWordRange(dst []byte, op string, addr Address, start, count int) []byte {
	if addr.Area == 'D' {
		dst = append(dst, op+"DD"...)
		dst = util.AppendDecimal(dst, uint64(start), 5)

		return util.AppendDecimal(dst, uint64(start+count-1), 5)
	}

	dst = append(dst, op+"CC"...)
	dst = append(dst, addr.Area)
	dst = util.AppendDecimal(dst, uint64(start), 4)

	return util.AppendDecimal(dst, uint64(start+count-1), 4)
}

func contact(address string) (Address, int, int, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return Address{}, 0, 0, err
	}

	word, bit, err := addr.Contact()
	if err != nil {
		return Address{}, 0, 0, err
	}

	return addr, word, bit, nil
}

func contactRange(address string, count int) (Address, int, int, error) {
	addr, word, bit, err := contact(address)
	if err != nil {
		return Address{}, 0, 0, err
	}
	if last, _ := nextContact(word, bit, count-1); last > 999 {
		return Address{}, 0, 0, fmt.Errorf("%w: contact range beyond word 999", plc.ErrInvalidParameter)
	}

	return addr, word, bit, nil
}

func nextContact(word, bit, offset int) (int, int) {
	n := word*16 + bit + offset
	return n / 16, n % 16
}

func boolChar(v bool) byte {
	if v {
		return '1'
	}

	return '0'
}

func begin(station uint8) []byte {
	frame := make([]byte, 0, 32)
	frame = append(frame, Start)
	frame = util.AppendHex(frame, uint64(station), 2)

	return append(frame, Command)
}

func end(frame []byte) []byte {
	frame = util.AppendHex(frame, uint64(bcc(frame)), 2)
	return append(frame, Terminator)
}

func bcc(p []byte) byte {
	var x byte
	for _, b := range p {
		x ^= b
	}

	return x
}

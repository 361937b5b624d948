package fatek

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-plc/plc"
	"github.com/arloliu/go-plc/transport"
)

// response builds a response frame around body, which starts at the station field.
func response(body string) []byte {
	frame := append([]byte{STX}, body...)
	frame = append(frame, fmt.Sprintf("%02X", checksum(frame))...)

	return append(frame, ETX)
}

func TestEncodeRead(t *testing.T) {
	tests := []struct {
		name    string
		address string
		count   int
		asBool  bool
		want    []byte
	}{
		{
			name: "X50 six points", address: "X50", count: 6, asBool: true,
			want: []byte{0x02, 0x30, 0x31, 0x34, 0x34, 0x30, 0x36, 0x58, 0x30, 0x30, 0x35, 0x30, 0x34, 0x45, 0x03},
		},
		{
			name: "R12 three words", address: "R12", count: 3, asBool: false,
			want: []byte{0x02, 0x30, 0x31, 0x34, 0x36, 0x30, 0x33, 0x52, 0x30, 0x30, 0x30, 0x31, 0x32, 0x37, 0x35, 0x03},
		},
		{
			name: "lower case address", address: "x50", count: 6, asBool: true,
			want: []byte{0x02, 0x30, 0x31, 0x34, 0x34, 0x30, 0x36, 0x58, 0x30, 0x30, 0x35, 0x30, 0x34, 0x45, 0x03},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeRead(1, tt.address, tt.count, tt.asBool)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeWriteBool(t *testing.T) {
	got, err := EncodeWriteBool(1, "Y0", []bool{true, false, false, true})
	require.NoError(t, err)
	require.Equal(t, []byte{
		0x02, 0x30, 0x31, 0x34, 0x35, 0x30, 0x34, 0x59, 0x30, 0x30, 0x30, 0x30,
		0x31, 0x30, 0x30, 0x31, 0x30, 0x42, 0x03,
	}, got)
}

func TestEncodeWriteBytes(t *testing.T) {
	got, err := EncodeWriteBytes(1, "Y8", []byte{0xAA, 0xAA, 0x55, 0x55})
	require.NoError(t, err)
	require.Equal(t, []byte{
		0x02, 0x30, 0x31, 0x34, 0x37, 0x30, 0x32, 0x59, 0x30, 0x30, 0x30, 0x38,
		0x41, 0x41, 0x41, 0x41, 0x35, 0x35, 0x35, 0x35, 0x32, 0x39, 0x03,
	}, got)

	got, err = EncodeWriteBytes(1, "D100", []byte{0x34, 0x12})
	require.NoError(t, err)
	require.Equal(t, "\x02014701D001001234", string(got[:len(got)-3]))
}

func TestEncode_Validation(t *testing.T) {
	tests := []struct {
		name string
		fn   func() ([]byte, error)
		want error
	}{
		{"unknown area", func() ([]byte, error) { return EncodeRead(1, "Q1", 1, true) }, plc.ErrAddressFormat},
		{"missing offset", func() ([]byte, error) { return EncodeRead(1, "X", 1, true) }, plc.ErrAddressFormat},
		{"too many digits", func() ([]byte, error) { return EncodeRead(1, "X12345", 1, true) }, plc.ErrAddressFormat},
		{"sign in offset", func() ([]byte, error) { return EncodeRead(1, "R+12", 1, false) }, plc.ErrAddressFormat},
		{"zero count", func() ([]byte, error) { return EncodeRead(1, "X0", 0, true) }, plc.ErrInvalidParameter},
		{"count too large", func() ([]byte, error) { return EncodeRead(1, "R0", 256, false) }, plc.ErrInvalidParameter},
		{"bool read of register", func() ([]byte, error) { return EncodeRead(1, "R0", 1, true) }, plc.ErrInvalidParameter},
		{"bool write of register", func() ([]byte, error) { return EncodeWriteBool(1, "D0", []bool{true}) }, plc.ErrInvalidParameter},
		{"empty bool write", func() ([]byte, error) { return EncodeWriteBool(1, "Y0", nil) }, plc.ErrInvalidParameter},
		{"odd byte write", func() ([]byte, error) { return EncodeWriteBytes(1, "R0", []byte{1}) }, plc.ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn()
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in   string
		area string
		kind AreaKind
		wire string
	}{
		{"X50", "X", BitArea, "X0050"},
		{"M1200", "M", BitArea, "M1200"},
		{"R12", "R", WordArea, "R00012"},
		{"D3000", "D", WordArea, "D03000"},
		{"WX8", "WX", WordArea, "WX0008"},
		{"RT3", "RT", WordArea, "RT0003"},
		{"RC10", "RC", WordArea, "RC0010"},
		{"T5", "T", BitArea, "T0005"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			addr, err := ParseAddress(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.area, addr.Area)
			require.Equal(t, tt.kind, addr.Kind)
			require.Equal(t, tt.wire, addr.String())
		})
	}
}

func TestDecodeResponse(t *testing.T) {
	require := require.New(t)

	resp, err := DecodeResponse(response("0144010110"))
	require.NoError(err)
	require.EqualValues(1, resp.Station)
	require.Equal(FuncReadDiscretes, resp.Function)
	bools, err := ParseBools(resp.Data)
	require.NoError(err)
	require.Equal([]bool{true, false, true, true, false}, bools)

	resp, err = DecodeResponse(response("01460" + "1234" + "ABCD"))
	require.NoError(err)
	words, err := ParseWords(resp.Data)
	require.NoError(err)
	require.Equal([]byte{0x34, 0x12, 0xCD, 0xAB}, words)

	resp, err = DecodeResponse(response("01450"))
	require.NoError(err)
	require.Empty(resp.Data)
}

func TestDecodeResponse_Errors(t *testing.T) {
	corrupt := response("01460AAAA")
	corrupt[7] = 'B'

	tests := []struct {
		name  string
		frame []byte
		want  error
	}{
		{"too short", []byte{STX, ETX}, plc.ErrMalformedFrame},
		{"missing ETX", append(response("014500")[:9], 0x00), plc.ErrMalformedFrame},
		{"checksum mismatch", corrupt, plc.ErrChecksumMismatch},
		{"device error", response("01464"), plc.ErrDeviceError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeResponse(tt.frame)
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err := ParseBools([]byte("01x"))
	require.ErrorIs(t, err, plc.ErrMalformedFrame)
	_, err = ParseWords([]byte("123"))
	require.ErrorIs(t, err, plc.ErrMalformedFrame)
}

func TestResponseFramer(t *testing.T) {
	require := require.New(t)

	ok := response("01460" + "1234" + "ABCD")
	framer := NewResponseFramer(ReadDataChars(2, false))

	frames, err := transport.NewAssembler(framer).Feed(ok)
	require.NoError(err)
	require.Equal([][]byte{ok}, frames)

	// error responses are shorter than the expected data
	failed := response("01464")
	frames, err = transport.NewAssembler(framer).Feed(failed)
	require.NoError(err)
	require.Equal([][]byte{failed}, frames)

	_, err = framer.ContentLength([]byte("X01460"))
	require.ErrorIs(err, plc.ErrMalformedFrame)
}

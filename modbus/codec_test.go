package modbus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-plc/plc"
	"github.com/arloliu/go-plc/transport"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in   string
		want Address
	}{
		{"100", Address{Unit: 1, Offset: 100}},
		{"s=2;100", Address{Unit: 2, Offset: 100}},
		{"x=4;7", Address{Unit: 1, Function: FuncReadInputRegisters, Offset: 7}},
		{"s=3;x=2;65535", Address{Unit: 3, Function: FuncReadDiscreteInputs, Offset: 65535}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAddress(tt.in, 1)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "abc", "65536", "s=256;1", "x=7;1", "q=1;1", "s1;1"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			_, err := ParseAddress(bad, 1)
			require.ErrorIs(t, err, plc.ErrAddressFormat)
		})
	}
}

func TestCodec_Read(t *testing.T) {
	require := require.New(t)

	c := NewCodec(1)

	req, err := c.Read("100", 3, false)
	require.NoError(err)
	require.EqualValues(1, req.TransactionID)
	require.Equal([]byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01, 0x03, 0x00, 0x64, 0x00, 0x03}, req.Encode())

	req, err = c.Read("s=5;0", 10, true)
	require.NoError(err)
	require.EqualValues(2, req.TransactionID)
	require.Equal([]byte{0x00, 0x02, 0x00, 0x00, 0x00, 0x06, 0x05, 0x01, 0x00, 0x00, 0x00, 0x0A}, req.Encode())

	req, err = c.Read("x=4;8", 1, false)
	require.NoError(err)
	require.Equal(FuncReadInputRegisters, req.Function)

	_, err = c.Read("x=3;0", 1, true)
	require.ErrorIs(err, plc.ErrInvalidParameter)
	_, err = c.Read("x=6;0", 1, false)
	require.ErrorIs(err, plc.ErrInvalidParameter)
	_, err = c.Read("0", MaxReadRegisters+1, false)
	require.ErrorIs(err, plc.ErrInvalidParameter)
	_, err = c.Read("65535", 2, false)
	require.ErrorIs(err, plc.ErrInvalidParameter)
}

func TestCodec_Write(t *testing.T) {
	require := require.New(t)

	c := NewCodec(1)

	req, err := c.WriteBools("3", []bool{true})
	require.NoError(err)
	require.Equal(FuncWriteSingleCoil, req.Function)
	require.Equal([]byte{0x00, 0x03, 0xFF, 0x00}, req.Data)

	req, err = c.WriteBools("8", []bool{true, false, true, true, false, false, false, false, true})
	require.NoError(err)
	require.Equal(FuncWriteMultipleCoils, req.Function)
	require.Equal([]byte{0x00, 0x08, 0x00, 0x09, 0x02, 0x0D, 0x01}, req.Data)

	req, err = c.WriteBytes("1", []byte{0x34, 0x12})
	require.NoError(err)
	require.Equal(FuncWriteSingleRegister, req.Function)
	require.Equal([]byte{0x00, 0x01, 0x12, 0x34}, req.Data)

	req, err = c.WriteBytes("2", []byte{0x34, 0x12, 0x78, 0x56})
	require.NoError(err)
	require.Equal(FuncWriteMultipleRegisters, req.Function)
	require.Equal([]byte{0x00, 0x02, 0x00, 0x02, 0x04, 0x12, 0x34, 0x56, 0x78}, req.Data)

	req, err = c.WriteBytes("x=16;2", []byte{0x01, 0x00})
	require.NoError(err)
	require.Equal(FuncWriteMultipleRegisters, req.Function)

	_, err = c.WriteBytes("2", []byte{0x01})
	require.ErrorIs(err, plc.ErrInvalidParameter)
	_, err = c.WriteBools("x=5;2", []bool{true, false})
	require.ErrorIs(err, plc.ErrInvalidParameter)
	_, err = c.WriteBools("x=6;2", []bool{true})
	require.ErrorIs(err, plc.ErrInvalidParameter)
	_, err = c.WriteBools("2", nil)
	require.ErrorIs(err, plc.ErrInvalidParameter)
}

func TestCodec_Check(t *testing.T) {
	require := require.New(t)

	c := NewCodec(1)
	req, err := c.Read("0", 2, false)
	require.NoError(err)

	frame := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x07, 0x01, 0x03, 0x04, 0x12, 0x34, 0x56, 0x78}
	resp, err := c.Check(req, frame)
	require.NoError(err)
	words, err := ParseRegisters(resp.Data)
	require.NoError(err)
	require.Equal([]byte{0x34, 0x12, 0x78, 0x56}, words)

	stale := append([]byte{}, frame...)
	stale[1] = 0x09
	_, err = c.Check(req, stale)
	require.ErrorIs(err, plc.ErrMalformedFrame)

	exception := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x03, 0x01, 0x83, 0x02}
	_, err = c.Check(req, exception)
	require.ErrorIs(err, plc.ErrDeviceError)
	require.ErrorContains(err, "illegal data address")
}

func TestDecodeResponse_Malformed(t *testing.T) {
	tests := map[string][]byte{
		"short":       {0x00, 0x01, 0x00},
		"protocol id": {0x00, 0x01, 0x00, 0x01, 0x00, 0x02, 0x01, 0x03},
		"length":      {0x00, 0x01, 0x00, 0x00, 0x00, 0x09, 0x01, 0x03},
	}

	for name, frame := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeResponse(frame)
			require.ErrorIs(t, err, plc.ErrMalformedFrame)
		})
	}
}

func TestParseBits(t *testing.T) {
	values, err := ParseBits([]byte{0x02, 0x0D, 0x01}, 9)
	require.NoError(t, err)
	require.Equal(t, []bool{true, false, true, true, false, false, false, false, true}, values)

	_, err = ParseBits([]byte{0x01, 0x0D}, 9)
	require.ErrorIs(t, err, plc.ErrMalformedFrame)
}

func TestFramer(t *testing.T) {
	frame := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x05, 0x01, 0x03, 0x02, 0x00, 0x2A}

	asm := transport.NewAssembler(Framer{})
	var frames [][]byte
	for _, b := range frame {
		got, err := asm.Feed([]byte{b})
		require.NoError(t, err)
		frames = append(frames, got...)
	}
	require.Equal(t, [][]byte{frame}, frames)

	_, err := Framer{}.ContentLength([]byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x01})
	require.ErrorIs(t, err, plc.ErrMalformedFrame)
}

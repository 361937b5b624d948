package mewtocol

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-plc/plc"
	"github.com/arloliu/go-plc/transport"
)

func TestEncodeRead(t *testing.T) {
	got, err := EncodeRead(0xEE, "X1", 10)
	require.NoError(t, err)
	require.Equal(t, "%EE#RCCX00010010", string(got[:16]))
	require.Equal(t, "%EE#RCCX000100100C\r", string(got))

	got, err = EncodeRead(1, "D0", 2)
	require.NoError(t, err)
	require.Equal(t, "%01#RDD000000000154\r", string(got))

	got, err = EncodeRead(1, "D100", 1)
	require.NoError(t, err)
	require.Equal(t, "%01#RDD001000010055\r", string(got))
}

func TestEncodeWrite(t *testing.T) {
	got, err := EncodeWrite(1, "D100", []byte{0x34, 0x12, 0x78, 0x56})
	require.NoError(t, err)
	require.Equal(t, "%01#WDD00100001013412785659\r", string(got))

	got, err = EncodeWrite(1, "Y0", []byte{0xAA, 0x55})
	require.NoError(t, err)
	require.Equal(t, "%01#WCCY00000000AA5509\r", string(got))
}

func TestEncodeContacts(t *testing.T) {
	got, err := EncodeReadBool(1, "X12")
	require.NoError(t, err)
	require.Equal(t, "%01#RCSX00121E\r", string(got))

	got, err = EncodeReadBool(1, "R100")
	require.NoError(t, err)
	require.Equal(t, "%01#RCSR010016\r", string(got))

	got, err = EncodeWriteBool(1, "Y11", true)
	require.NoError(t, err)
	require.Equal(t, "%01#WCSY0011128\r", string(got))

	got, err = EncodeWriteBools(1, "Y1", []bool{true, false})
	require.NoError(t, err)
	require.Equal(t, "%01#WCP2Y00011Y00020", string(got[:len(got)-3]))

	got, err = EncodeReadBools(1, "X0", 2)
	require.NoError(t, err)
	require.Equal(t, "%01#RCP2X0000X000175\r", string(got))

	// contacts roll over into the next word after bit F
	got, err = EncodeReadBools(1, "XF", 2)
	require.NoError(t, err)
	require.Equal(t, "%01#RCP2X000FX0010", string(got[:len(got)-3]))
}

func TestEncode_Validation(t *testing.T) {
	tests := []struct {
		name string
		fn   func() ([]byte, error)
		want error
	}{
		{"unknown area", func() ([]byte, error) { return EncodeRead(1, "Q1", 1) }, plc.ErrAddressFormat},
		{"empty offset", func() ([]byte, error) { return EncodeRead(1, "X", 1) }, plc.ErrAddressFormat},
		{"hex word", func() ([]byte, error) { return EncodeRead(1, "X1A", 1) }, plc.ErrAddressFormat},
		{"zero count", func() ([]byte, error) { return EncodeRead(1, "D0", 0) }, plc.ErrInvalidParameter},
		{"too many words", func() ([]byte, error) { return EncodeRead(1, "D0", MaxWords+1) }, plc.ErrInvalidParameter},
		{"range past end", func() ([]byte, error) { return EncodeRead(1, "X9999", 2) }, plc.ErrInvalidParameter},
		{"odd write", func() ([]byte, error) { return EncodeWrite(1, "D0", []byte{1}) }, plc.ErrInvalidParameter},
		{"contact of data register", func() ([]byte, error) { return EncodeReadBool(1, "D1") }, plc.ErrInvalidParameter},
		{"bad bit digit", func() ([]byte, error) { return EncodeReadBool(1, "X1G") }, plc.ErrAddressFormat},
		{"too many contacts", func() ([]byte, error) { return EncodeReadBools(1, "X0", 9) }, plc.ErrInvalidParameter},
		{"no contacts", func() ([]byte, error) { return EncodeWriteBools(1, "Y0", nil) }, plc.ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn()
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeResponse(t *testing.T) {
	require := require.New(t)

	resp, err := DecodeResponse([]byte("%01$RC123415\r"))
	require.NoError(err)
	require.EqualValues(1, resp.Station)
	require.Equal("RC", resp.Command)
	words, err := ParseWords(resp.Data)
	require.NoError(err)
	require.Equal([]byte{0x12, 0x34}, words)

	resp, err = DecodeResponse([]byte("%01$RD010017\r"))
	require.NoError(err)
	require.Equal("RD", resp.Command)
	words, err = ParseWords(resp.Data)
	require.NoError(err)
	require.Equal([]byte{0x01, 0x00}, words)

	resp, err = DecodeResponse([]byte("%01$RC120\r"))
	require.NoError(err)
	bools, err := ParseBools(resp.Data)
	require.NoError(err)
	require.Equal([]bool{true}, bools)

	resp, err = DecodeResponse([]byte("%01$WC14\r"))
	require.NoError(err)
	require.Equal("WC", resp.Command)
	require.Empty(resp.Data)

	// "**" skips the BCC check
	_, err = DecodeResponse([]byte("%01$WC**\r"))
	require.NoError(err)
}

func TestDecodeResponse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  error
	}{
		{"device error", "%01!4203\r", plc.ErrDeviceError},
		{"bcc mismatch", "%01$RC123416\r", plc.ErrChecksumMismatch},
		{"short", "%01$\r", plc.ErrMalformedFrame},
		{"no terminator", "%01$WC14\n", plc.ErrMalformedFrame},
		{"bad type", "%01?WC0F\r", plc.ErrMalformedFrame},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeResponse([]byte(tt.frame))
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err := DecodeResponse([]byte("%01!4203\r"))
	require.ErrorContains(t, err, "42")
}

func TestResponseFramer(t *testing.T) {
	require := require.New(t)

	ok := []byte("%01$RC123415\r")
	frames, err := transport.NewAssembler(NewResponseFramer(4)).Feed(ok)
	require.NoError(err)
	require.Equal([][]byte{ok}, frames)

	failed := []byte("%01!4203\r")
	frames, err = transport.NewAssembler(NewResponseFramer(4)).Feed(failed)
	require.NoError(err)
	require.Equal([][]byte{failed}, frames)

	_, err = NewResponseFramer(0).ContentLength([]byte("%01?"))
	require.ErrorIs(err, plc.ErrMalformedFrame)
}

package transport

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-plc/plc"
)

// lenFramer frames as 0x7E, content length, content.
type lenFramer struct{}

func (lenFramer) HeaderSize() int { return 2 }

func (lenFramer) ContentLength(header []byte) (int, error) {
	if header[0] != 0x7E {
		return 0, fmt.Errorf("%w: bad start byte 0x%02X", plc.ErrMalformedFrame, header[0])
	}

	return int(header[1]), nil
}

func lenFrame(content ...byte) []byte {
	return append([]byte{0x7E, byte(len(content))}, content...)
}

func TestAssembler_WholeFrame(t *testing.T) {
	require := require.New(t)

	asm := NewAssembler(lenFramer{})
	frames, err := asm.Feed(lenFrame(1, 2, 3))
	require.NoError(err)
	require.Equal([][]byte{lenFrame(1, 2, 3)}, frames)
	require.False(asm.Pending())
}

func TestAssembler_EmptyContent(t *testing.T) {
	asm := NewAssembler(lenFramer{})
	frames, err := asm.Feed(lenFrame())
	require.NoError(t, err)
	require.Equal(t, [][]byte{{0x7E, 0x00}}, frames)
}

func TestAssembler_FragmentationInvariant(t *testing.T) {
	stream := append(lenFrame(0xAA, 0xBB, 0xCC, 0xDD), lenFrame(0x01)...)
	stream = append(stream, lenFrame()...)
	stream = append(stream, lenFrame(0x10, 0x20)...)

	want, err := NewAssembler(lenFramer{}).Feed(stream)
	require.NoError(t, err)
	require.Len(t, want, 4)

	t.Run("byte by byte", func(t *testing.T) {
		asm := NewAssembler(lenFramer{})
		var got [][]byte
		for i := range stream {
			frames, err := asm.Feed(stream[i : i+1])
			require.NoError(t, err)
			got = append(got, frames...)
		}
		require.Equal(t, want, got)
	})

	t.Run("random splits", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(1, 2))
		for range 200 {
			asm := NewAssembler(lenFramer{})
			var got [][]byte
			rest := stream
			for len(rest) > 0 {
				n := 1 + rng.IntN(len(rest))
				frames, err := asm.Feed(rest[:n])
				require.NoError(t, err)
				got = append(got, frames...)
				rest = rest[n:]
			}
			require.Equal(t, want, got)
		}
	})
}

func TestAssembler_PartialFrameKept(t *testing.T) {
	require := require.New(t)

	asm := NewAssembler(lenFramer{})
	frames, err := asm.Feed([]byte{0x7E, 0x03, 0x01})
	require.NoError(err)
	require.Empty(frames)
	require.True(asm.Pending())

	asm.Clear()
	require.False(asm.Pending())

	frames, err = asm.Feed(lenFrame(0x09))
	require.NoError(err)
	require.Equal([][]byte{lenFrame(0x09)}, frames)
}

func TestAssembler_MalformedHeader(t *testing.T) {
	require := require.New(t)

	asm := NewAssembler(lenFramer{})
	frames, err := asm.Feed(append(lenFrame(0x01), 0x00, 0x05, 0x06))
	require.ErrorIs(err, plc.ErrMalformedFrame)
	require.Equal([][]byte{lenFrame(0x01)}, frames, "frames completed before the bad header are kept")
	require.False(asm.Pending())
}

type hugeFramer struct{ lenFramer }

func (hugeFramer) ContentLength([]byte) (int, error) { return MaxContentLength + 1, nil }

func TestAssembler_ContentTooLarge(t *testing.T) {
	_, err := NewAssembler(hugeFramer{}).Feed([]byte{0x7E, 0x00})
	require.ErrorIs(t, err, plc.ErrMalformedFrame)
}

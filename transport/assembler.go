package transport

import (
	"fmt"

	"github.com/arloliu/go-plc/plc"
)

// MaxContentLength bounds the content size a Framer may announce.
const MaxContentLength = 64 * 1024

// Assembler rebuilds frames from a byte stream.
//
// The result does not depend on how the stream is fragmented: feeding a frame one byte at a
// time yields the same frame as feeding it at once.
//
// Assembler is not goroutine-safe.
type Assembler struct {
	framer       plc.Framer
	header       []byte
	headerCount  int
	content      []byte
	contentCount int
	contentLen   int
}

// NewAssembler creates an assembler using framer to size each frame.
func NewAssembler(framer plc.Framer) *Assembler {
	return &Assembler{
		framer:     framer,
		header:     make([]byte, framer.HeaderSize()),
		contentLen: -1,
	}
}

// Feed consumes p and returns the frames it completed, each a fresh slice holding the header
// followed by the content. Bytes of an incomplete frame are kept for the next call.
//
// An error means the header announced an invalid length; the assembler is cleared and the
// remaining bytes of p are dropped.
func (a *Assembler) Feed(p []byte) ([][]byte, error) {
	var frames [][]byte

	for len(p) > 0 {
		if a.headerCount < len(a.header) {
			n := copy(a.header[a.headerCount:], p)
			a.headerCount += n
			p = p[n:]

			if a.headerCount < len(a.header) {
				break
			}
		}

		if a.contentLen < 0 {
			size, err := a.framer.ContentLength(a.header)
			if err != nil {
				a.Clear()
				return frames, err
			}
			if size < 0 || size > MaxContentLength {
				a.Clear()
				return frames, fmt.Errorf("%w: content length %d out of range", plc.ErrMalformedFrame, size)
			}
			a.contentLen = size
			a.content = make([]byte, size)
		}

		n := copy(a.content[a.contentCount:], p)
		a.contentCount += n
		p = p[n:]

		if a.contentCount == a.contentLen {
			frames = append(frames, a.frame())
			a.Clear()
		}
	}

	return frames, nil
}

// Pending reports whether a partial frame is buffered.
func (a *Assembler) Pending() bool {
	return a.headerCount > 0
}

// Clear drops any partial frame.
func (a *Assembler) Clear() {
	a.headerCount = 0
	a.content = nil
	a.contentCount = 0
	a.contentLen = -1
}

func (a *Assembler) frame() []byte {
	frame := make([]byte, 0, len(a.header)+len(a.content))
	frame = append(frame, a.header...)

	return append(frame, a.content...)
}

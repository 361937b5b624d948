package plc

// Framer tells the receive state machine how large a response frame is.
//
// The first HeaderSize bytes of a frame are collected, then ContentLength derives the
// number of bytes that follow the header. ContentLength must reject headers that cannot
// start a valid frame with an error wrapping ErrMalformedFrame.
type Framer interface {
	HeaderSize() int
	ContentLength(header []byte) (int, error)
}

package binding

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/arloliu/go-plc/plc"
)

// Raw payloads are little-endian device words. order selects how multi-word values are
// assembled from them: binary.LittleEndian puts the low word first.

// Bool binds a discrete point.
func Bool[T any](field func(*T) *bool) Setter[T] {
	return Setter[T]{asBool: true, fn: func(dst *T, raw []byte) error {
		if len(raw) < 1 {
			return short(1, raw)
		}
		*field(dst) = raw[0] != 0

		return nil
	}}
}

// Uint16 binds one word.
func Uint16[T any](field func(*T) *uint16, order binary.ByteOrder) Setter[T] {
	return Setter[T]{words: 1, fn: func(dst *T, raw []byte) error {
		if len(raw) < 2 {
			return short(2, raw)
		}
		*field(dst) = order.Uint16(raw)

		return nil
	}}
}

// Int16 binds one signed word.
func Int16[T any](field func(*T) *int16, order binary.ByteOrder) Setter[T] {
	return Setter[T]{words: 1, fn: func(dst *T, raw []byte) error {
		if len(raw) < 2 {
			return short(2, raw)
		}
		*field(dst) = int16(order.Uint16(raw))

		return nil
	}}
}

// Uint32 binds two words.
func Uint32[T any](field func(*T) *uint32, order binary.ByteOrder) Setter[T] {
	return Setter[T]{words: 2, fn: func(dst *T, raw []byte) error {
		if len(raw) < 4 {
			return short(4, raw)
		}
		*field(dst) = order.Uint32(raw)

		return nil
	}}
}

// Int32 binds two signed words.
func Int32[T any](field func(*T) *int32, order binary.ByteOrder) Setter[T] {
	return Setter[T]{words: 2, fn: func(dst *T, raw []byte) error {
		if len(raw) < 4 {
			return short(4, raw)
		}
		*field(dst) = int32(order.Uint32(raw))

		return nil
	}}
}

// Float32 binds two words holding an IEEE 754 single.
func Float32[T any](field func(*T) *float32, order binary.ByteOrder) Setter[T] {
	return Setter[T]{words: 2, fn: func(dst *T, raw []byte) error {
		if len(raw) < 4 {
			return short(4, raw)
		}
		*field(dst) = math.Float32frombits(order.Uint32(raw))

		return nil
	}}
}

// Bytes binds words words copied verbatim.
func Bytes[T any](field func(*T) *[]byte, words int) Setter[T] {
	return Setter[T]{words: words, fn: func(dst *T, raw []byte) error {
		if len(raw) < words*2 {
			return short(words*2, raw)
		}
		*field(dst) = append([]byte(nil), raw[:words*2]...)

		return nil
	}}
}

func short(want int, raw []byte) error {
	return fmt.Errorf("%w: %d bytes, need %d", plc.ErrMalformedFrame, len(raw), want)
}

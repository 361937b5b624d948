package util

import (
	"errors"
	"fmt"
)

// ErrNotHex is returned when an ASCII field holds a non hexadecimal character.
var ErrNotHex = errors.New("not a hexadecimal digit")

const hexDigits = "0123456789ABCDEF"

// CloneSlice clones slice with cloneSize.
// This function will use src length as the clone size if cloneSize is 0.
func CloneSlice[T any](src []T, cloneSize int) []T {
	if cloneSize == 0 {
		cloneSize = len(src)
	}
	clone := make([]T, cloneSize)
	copy(clone, src)

	return clone
}

// AppendHex appends v as width upper-case hexadecimal ASCII digits, zero padded.
// Higher digits that do not fit in width are dropped.
func AppendHex(dst []byte, v uint64, width int) []byte {
	for i := width - 1; i >= 0; i-- {
		dst = append(dst, hexDigits[(v>>(uint(i)*4))&0x0F])
	}
	return dst
}

// AppendDecimal appends v as width decimal ASCII digits, zero padded.
func AppendDecimal(dst []byte, v uint64, width int) []byte {
	var buf [20]byte
	for i := width - 1; i >= 0; i-- {
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return append(dst, buf[:width]...)
}

// AppendHexBytes appends every byte of src as two upper-case hexadecimal digits.
func AppendHexBytes(dst []byte, src []byte) []byte {
	for _, b := range src {
		dst = append(dst, hexDigits[b>>4], hexDigits[b&0x0F])
	}
	return dst
}

// ParseHex parses an ASCII hexadecimal field (either case) into an unsigned integer.
func ParseHex(field []byte) (uint64, error) {
	if len(field) == 0 || len(field) > 16 {
		return 0, fmt.Errorf("%w: field length %d", ErrNotHex, len(field))
	}

	var v uint64
	for _, c := range field {
		n, ok := hexValue(c)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrNotHex, c)
		}
		v = v<<4 | uint64(n)
	}

	return v, nil
}

// DecodeHexBytes decodes pairs of ASCII hexadecimal digits into bytes.
func DecodeHexBytes(field []byte) ([]byte, error) {
	if len(field)%2 != 0 {
		return nil, fmt.Errorf("%w: odd field length %d", ErrNotHex, len(field))
	}

	out := make([]byte, len(field)/2)
	for i := range out {
		hi, ok1 := hexValue(field[2*i])
		lo, ok2 := hexValue(field[2*i+1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("%w: %q", ErrNotHex, field[2*i:2*i+2])
		}
		out[i] = hi<<4 | lo
	}

	return out, nil
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	default:
		return 0, false
	}
}

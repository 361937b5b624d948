package cip

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/go-plc/plc"
)

const (
	segmentSymbolic  byte = 0x91
	segmentElement8  byte = 0x28
	segmentElement16 byte = 0x29
	segmentElement32 byte = 0x2A
)

// maxPathBytes keeps the path size expressible in one byte of 16-bit words.
const maxPathBytes = 255 * 2

// EncodeTagPath builds the request path addressing tag.
func EncodeTagPath(tag string) ([]byte, error) {
	if strings.TrimSpace(tag) == "" {
		return nil, fmt.Errorf("%w: empty tag name", plc.ErrAddressFormat)
	}

	var path []byte
	for _, member := range strings.Split(tag, ".") {
		name, indices, err := splitIndices(member)
		if err != nil {
			return nil, fmt.Errorf("%w: tag %q: %w", plc.ErrAddressFormat, tag, err)
		}
		if name == "" || len(name) > 255 {
			return nil, fmt.Errorf("%w: tag %q has an invalid member name", plc.ErrAddressFormat, tag)
		}

		path = append(path, segmentSymbolic, byte(len(name)))
		path = append(path, name...)
		if len(name)%2 != 0 {
			path = append(path, 0x00)
		}

		for _, idx := range indices {
			path = appendElement(path, idx)
		}
	}

	if len(path) > maxPathBytes {
		return nil, fmt.Errorf("%w: tag %q path too long", plc.ErrAddressFormat, tag)
	}

	return path, nil
}

func splitIndices(member string) (string, []uint32, error) {
	open := strings.IndexByte(member, '[')
	if open < 0 {
		if strings.ContainsRune(member, ']') {
			return "", nil, fmt.Errorf("unbalanced bracket in %q", member)
		}
		return member, nil, nil
	}
	if !strings.HasSuffix(member, "]") {
		return "", nil, fmt.Errorf("unbalanced bracket in %q", member)
	}

	inner := member[open+1 : len(member)-1]
	if inner == "" || strings.ContainsAny(inner, "[]") {
		return "", nil, fmt.Errorf("invalid index in %q", member)
	}

	parts := strings.Split(inner, ",")
	indices := make([]uint32, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return "", nil, fmt.Errorf("invalid index %q", p)
		}
		indices = append(indices, uint32(v))
	}

	return member[:open], indices, nil
}

func appendElement(path []byte, idx uint32) []byte {
	switch {
	case idx <= 0xFF:
		return append(path, segmentElement8, byte(idx))
	case idx <= 0xFFFF:
		path = append(path, segmentElement16, 0x00)
		return binary.LittleEndian.AppendUint16(path, uint16(idx))
	default:
		path = append(path, segmentElement32, 0x00)
		return binary.LittleEndian.AppendUint32(path, idx)
	}
}

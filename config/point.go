package config

import (
	"fmt"
	"strings"

	"github.com/arloliu/go-plc/plc"
)

// PointType is the value type of a named point.
type PointType string

const (
	PointBool    PointType = "bool"
	PointUint16  PointType = "uint16"
	PointInt16   PointType = "int16"
	PointUint32  PointType = "uint32"
	PointInt32   PointType = "int32"
	PointFloat32 PointType = "float32"
	// PointWords reads Count raw words.
	PointWords PointType = "words"
)

// Words returns the number of 16-bit words one value of t occupies, zero for bool.
func (t PointType) Words() int {
	switch t {
	case PointUint16, PointInt16, PointWords:
		return 1
	case PointUint32, PointInt32, PointFloat32:
		return 2
	default:
		return 0
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *PointType) UnmarshalText(text []byte) error {
	v := PointType(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case "":
		*t = PointUint16
	case PointBool, PointUint16, PointInt16, PointUint32, PointInt32, PointFloat32, PointWords:
		*t = v
	default:
		return fmt.Errorf("unknown point type %q", text)
	}

	return nil
}

// Validate checks the point definition.
func (p PointConfig) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: point name is required", plc.ErrInvalidParameter)
	}
	if strings.TrimSpace(p.Address) == "" {
		return fmt.Errorf("%w: point %s: address is required", plc.ErrInvalidParameter, p.Name)
	}
	if p.Count < 0 {
		return fmt.Errorf("%w: point %s: count %d", plc.ErrInvalidParameter, p.Name, p.Count)
	}

	return nil
}

// Elements returns the number of values the point spans.
func (p PointConfig) Elements() int {
	return max(p.Count, 1)
}

// Kind returns the point type, uint16 when none is set.
func (p PointConfig) Kind() PointType {
	if p.Type == "" {
		return PointUint16
	}

	return p.Type
}

package fatek

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/go-plc/plc"
)

// AreaKind tells whether an area holds discrete points or 16-bit registers.
type AreaKind uint8

const (
	// BitArea holds discrete points.
	BitArea AreaKind = iota
	// WordArea holds 16-bit registers.
	WordArea
)

type area struct {
	prefix string
	kind   AreaKind
	digits int
}

// ordered so that two-letter prefixes are tried first
var areas = []area{
	{"WX", WordArea, 4},
	{"WY", WordArea, 4},
	{"WM", WordArea, 4},
	{"WS", WordArea, 4},
	{"WT", WordArea, 4},
	{"WC", WordArea, 4},
	{"RT", WordArea, 4},
	{"RC", WordArea, 4},
	{"R", WordArea, 5},
	{"D", WordArea, 5},
	{"X", BitArea, 4},
	{"Y", BitArea, 4},
	{"M", BitArea, 4},
	{"S", BitArea, 4},
	{"T", BitArea, 4},
	{"C", BitArea, 4},
}

// Address is a parsed Fatek device address such as "X50" or "R12".
type Address struct {
	Area   string
	Kind   AreaKind
	Offset int
	digits int
}

// ParseAddress parses a Fatek device address.
func ParseAddress(s string) (Address, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	for _, a := range areas {
		if !strings.HasPrefix(s, a.prefix) {
			continue
		}

		num := s[len(a.prefix):]
		if num == "" || len(num) > a.digits {
			return Address{}, fmt.Errorf("%w: fatek address %q", plc.ErrAddressFormat, s)
		}
		offset, err := strconv.Atoi(num)
		if err != nil || !isDigits(num) {
			return Address{}, fmt.Errorf("%w: fatek address %q", plc.ErrAddressFormat, s)
		}

		return Address{Area: a.prefix, Kind: a.kind, Offset: offset, digits: a.digits}, nil
	}

	return Address{}, fmt.Errorf("%w: unknown fatek area in %q", plc.ErrAddressFormat, s)
}

// String returns the wire form of the address: the area followed by the zero padded offset.
func (a Address) String() string {
	return a.Area + fmt.Sprintf("%0*d", a.digits, a.Offset)
}

func (a Address) appendTo(dst []byte) []byte {
	return append(dst, a.String()...)
}

func isDigits(s string) bool {
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}

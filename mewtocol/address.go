package mewtocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/go-plc/internal/util"
	"github.com/arloliu/go-plc/plc"
)

// Address is a parsed Mewtocol device address.
type Address struct {
	// Area is the area letter: X, Y, R, L or D.
	Area byte
	// Number is the digits following the area letter.
	Number string
}

// ParseAddress parses a Mewtocol device address such as "X1", "R10F" or "D100".
func ParseAddress(s string) (Address, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 {
		return Address{}, fmt.Errorf("%w: mewtocol address %q", plc.ErrAddressFormat, s)
	}

	switch s[0] {
	case 'X', 'Y', 'R', 'L', 'D':
	default:
		return Address{}, fmt.Errorf("%w: unknown mewtocol area in %q", plc.ErrAddressFormat, s)
	}

	return Address{Area: s[0], Number: s[1:]}, nil
}

// IsContactArea reports whether the area holds contacts.
func (a Address) IsContactArea() bool {
	return a.Area != 'D'
}

// Word returns the address as a word number.
func (a Address) Word() (int, error) {
	n, err := strconv.Atoi(a.Number)
	if err != nil || !isDigits(a.Number) {
		return 0, fmt.Errorf("%w: mewtocol word address %c%s", plc.ErrAddressFormat, a.Area, a.Number)
	}

	limit := 9999
	if a.Area == 'D' {
		limit = 99999
	}
	if n > limit {
		return 0, fmt.Errorf("%w: mewtocol word %d beyond %d", plc.ErrAddressFormat, n, limit)
	}

	return n, nil
}

// Contact returns the address as a word number and a bit index.
func (a Address) Contact() (word int, bit int, err error) {
	if !a.IsContactArea() {
		return 0, 0, fmt.Errorf("%w: %c is not a contact area", plc.ErrInvalidParameter, a.Area)
	}

	digits := a.Number[:len(a.Number)-1]
	b, hexErr := util.ParseHex([]byte(a.Number[len(a.Number)-1:]))
	if hexErr != nil {
		return 0, 0, fmt.Errorf("%w: mewtocol contact %c%s", plc.ErrAddressFormat, a.Area, a.Number)
	}

	if digits != "" {
		if !isDigits(digits) || len(digits) > 3 {
			return 0, 0, fmt.Errorf("%w: mewtocol contact %c%s", plc.ErrAddressFormat, a.Area, a.Number)
		}
		word, _ = strconv.Atoi(digits)
	}

	return word, int(b), nil
}

func appendContact(dst []byte, area byte, word, bit int) []byte {
	dst = append(dst, area)
	dst = util.AppendDecimal(dst, uint64(word), 3)

	return util.AppendHex(dst, uint64(bit), 1)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}

package modbus

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/go-plc/plc"
)

// Address is a parsed Modbus device address.
type Address struct {
	Unit     uint8
	Function FunctionCode // zero selects the default function
	Offset   uint16
}

// ParseAddress parses an address of the form "[s=<unit>;][x=<function>;]<offset>", using
// defaultUnit when the address names no unit.
func ParseAddress(s string, defaultUnit uint8) (Address, error) {
	addr := Address{Unit: defaultUnit}

	parts := strings.Split(strings.TrimSpace(s), ";")
	for _, p := range parts[:len(parts)-1] {
		key, value, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok {
			return Address{}, fmt.Errorf("%w: modbus address %q", plc.ErrAddressFormat, s)
		}

		n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 8)
		if err != nil {
			return Address{}, fmt.Errorf("%w: modbus address %q: %s", plc.ErrAddressFormat, s, key)
		}

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "s":
			addr.Unit = uint8(n)
		case "x":
			addr.Function = FunctionCode(n)
			if !addr.Function.isRead() && !isWrite(addr.Function) {
				return Address{}, fmt.Errorf("%w: modbus function %d not supported", plc.ErrAddressFormat, n)
			}
		default:
			return Address{}, fmt.Errorf("%w: modbus address %q: unknown key %q", plc.ErrAddressFormat, s, key)
		}
	}

	offset, err := strconv.ParseUint(strings.TrimSpace(parts[len(parts)-1]), 10, 16)
	if err != nil {
		return Address{}, fmt.Errorf("%w: modbus address %q", plc.ErrAddressFormat, s)
	}
	addr.Offset = uint16(offset)

	return addr, nil
}

func isWrite(f FunctionCode) bool {
	switch f {
	case FuncWriteSingleCoil, FuncWriteSingleRegister, FuncWriteMultipleCoils, FuncWriteMultipleRegisters:
		return true
	default:
		return false
	}
}

package plc

import (
	"fmt"
	"strings"
)

// Vendor selects the protocol codec used by a device client.
type Vendor uint8

const (
	VendorUnknown Vendor = iota
	VendorFatek
	VendorPanasonic
	VendorAllenBradley
	VendorModbus
)

// String returns string representation of the vendor.
func (v Vendor) String() string {
	switch v {
	case VendorFatek:
		return "fatek"
	case VendorPanasonic:
		return "panasonic"
	case VendorAllenBradley:
		return "allen-bradley"
	case VendorModbus:
		return "modbus"
	default:
		return "unknown"
	}
}

// DefaultPort returns the TCP port the vendor protocol listens on by default.
func (v Vendor) DefaultPort() int {
	switch v {
	case VendorFatek:
		return 500
	case VendorPanasonic:
		return 9094
	case VendorAllenBradley:
		return 44818
	case VendorModbus:
		return 502
	default:
		return 0
	}
}

// ParseVendor parses a vendor name as used in configuration files and CLI flags.
func ParseVendor(name string) (Vendor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fatek", "facon":
		return VendorFatek, nil
	case "panasonic", "mewtocol":
		return VendorPanasonic, nil
	case "allen-bradley", "allenbradley", "ab", "cip", "logix":
		return VendorAllenBradley, nil
	case "modbus", "modbus-tcp", "modbustcp":
		return VendorModbus, nil
	default:
		return VendorUnknown, fmt.Errorf("%w: unknown vendor %q", ErrInvalidParameter, name)
	}
}

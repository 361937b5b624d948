package cip

// Elementary data type codes.
const (
	TypeBOOL  uint16 = 0xC1
	TypeSINT  uint16 = 0xC2
	TypeINT   uint16 = 0xC3
	TypeDINT  uint16 = 0xC4
	TypeLINT  uint16 = 0xC5
	TypeUSINT uint16 = 0xC6
	TypeUINT  uint16 = 0xC7
	TypeUDINT uint16 = 0xC8
	TypeULINT uint16 = 0xC9
	TypeREAL  uint16 = 0xCA
	TypeLREAL uint16 = 0xCB

	// TypeStruct prefixes structure data with a two byte structure handle.
	TypeStruct uint16 = 0x02A0
)

// TypeSize returns the byte size of one element of an elementary type, or 0 when unknown.
func TypeSize(typeCode uint16) int {
	switch typeCode {
	case TypeBOOL, TypeSINT, TypeUSINT:
		return 1
	case TypeINT, TypeUINT:
		return 2
	case TypeDINT, TypeUDINT, TypeREAL:
		return 4
	case TypeLINT, TypeULINT, TypeLREAL:
		return 8
	default:
		return 0
	}
}

// TypeName returns the Logix name of a type code.
func TypeName(typeCode uint16) string {
	switch typeCode {
	case TypeBOOL:
		return "BOOL"
	case TypeSINT:
		return "SINT"
	case TypeINT:
		return "INT"
	case TypeDINT:
		return "DINT"
	case TypeLINT:
		return "LINT"
	case TypeUSINT:
		return "USINT"
	case TypeUINT:
		return "UINT"
	case TypeUDINT:
		return "UDINT"
	case TypeULINT:
		return "ULINT"
	case TypeREAL:
		return "REAL"
	case TypeLREAL:
		return "LREAL"
	case TypeStruct:
		return "STRUCT"
	default:
		return "UNKNOWN"
	}
}

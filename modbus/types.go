package modbus

import "fmt"

// FunctionCode is a Modbus function code.
type FunctionCode uint8

// Supported function codes.
const (
	FuncReadCoils              FunctionCode = 0x01
	FuncReadDiscreteInputs     FunctionCode = 0x02
	FuncReadHoldingRegisters   FunctionCode = 0x03
	FuncReadInputRegisters     FunctionCode = 0x04
	FuncWriteSingleCoil        FunctionCode = 0x05
	FuncWriteSingleRegister    FunctionCode = 0x06
	FuncWriteMultipleCoils     FunctionCode = 0x0F
	FuncWriteMultipleRegisters FunctionCode = 0x10

	exceptionFlag FunctionCode = 0x80
)

// IsBitAccess reports whether the function code reads or writes coils or discrete inputs.
func (f FunctionCode) IsBitAccess() bool {
	switch f {
	case FuncReadCoils, FuncReadDiscreteInputs, FuncWriteSingleCoil, FuncWriteMultipleCoils:
		return true
	default:
		return false
	}
}

func (f FunctionCode) isRead() bool {
	return f >= FuncReadCoils && f <= FuncReadInputRegisters
}

// ExceptionCode is the code carried by an exception response.
type ExceptionCode uint8

// Exception codes.
const (
	ExceptionIllegalFunction    ExceptionCode = 0x01
	ExceptionIllegalDataAddress ExceptionCode = 0x02
	ExceptionIllegalDataValue   ExceptionCode = 0x03
	ExceptionSlaveDeviceFailure ExceptionCode = 0x04
	ExceptionAcknowledge        ExceptionCode = 0x05
	ExceptionSlaveDeviceBusy    ExceptionCode = 0x06
	ExceptionGatewayPathUnavail ExceptionCode = 0x0A
	ExceptionGatewayTargetFail  ExceptionCode = 0x0B
)

func (e ExceptionCode) String() string {
	switch e {
	case ExceptionIllegalFunction:
		return "illegal function"
	case ExceptionIllegalDataAddress:
		return "illegal data address"
	case ExceptionIllegalDataValue:
		return "illegal data value"
	case ExceptionSlaveDeviceFailure:
		return "slave device failure"
	case ExceptionAcknowledge:
		return "acknowledge"
	case ExceptionSlaveDeviceBusy:
		return "slave device busy"
	case ExceptionGatewayPathUnavail:
		return "gateway path unavailable"
	case ExceptionGatewayTargetFail:
		return "gateway target device failed to respond"
	default:
		return fmt.Sprintf("exception 0x%02X", uint8(e))
	}
}

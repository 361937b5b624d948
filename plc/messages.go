package plc

// Messages maps error kinds to the human readable text placed in Result.Message.
//
// Applications pass a Messages value to the device constructor to localize results.
type Messages map[ErrorKind]string

// DefaultMessages holds the English texts.
var DefaultMessages = Messages{
	KindAddressFormat:       "address format is invalid",
	KindInvalidParameter:    "parameter is out of range",
	KindChecksumMismatch:    "response checksum mismatch",
	KindMalformedFrame:      "response frame is malformed",
	KindConnectionExhausted: "no connection available",
	KindSocketTransport:     "socket transport failure",
	KindTimeout:             "operation timed out",
	KindDeviceError:         "device returned an error",
	KindUnsupported:         "operation is not supported",
	KindClosed:              "connection closed",
	KindUnknown:             "unexpected error",
}

// Format returns the message for kind followed by the error text.
// Kinds missing from m fall back to DefaultMessages.
func (m Messages) Format(kind ErrorKind, err error) string {
	text, ok := m[kind]
	if !ok {
		text = DefaultMessages[kind]
	}
	if err == nil {
		return text
	}
	if text == "" {
		return err.Error()
	}

	return text + ": " + err.Error()
}

package protocol

// ErrorCode identifies the class of a wire error.
type ErrorCode uint16

const (
	ErrUnknown        ErrorCode = 0x0000
	ErrInvalidFrame   ErrorCode = 0x0001
	ErrInvalidEvent   ErrorCode = 0x0002
	ErrTargetNotFound ErrorCode = 0x0003 // no listener registered for node
	ErrHandlerPanic   ErrorCode = 0x0004
	ErrSessionExpired ErrorCode = 0x0005
	ErrServerError    ErrorCode = 0x0100
)

func (ec ErrorCode) String() string {
	switch ec {
	case ErrInvalidFrame:
		return "InvalidFrame"
	case ErrInvalidEvent:
		return "InvalidEvent"
	case ErrTargetNotFound:
		return "TargetNotFound"
	case ErrHandlerPanic:
		return "HandlerPanic"
	case ErrSessionExpired:
		return "SessionExpired"
	case ErrServerError:
		return "ServerError"
	default:
		return "Unknown"
	}
}

// ErrorMessage reports a failure to the peer. Fatal means the connection
// should be closed after delivery.
type ErrorMessage struct {
	Code    ErrorCode
	Message string
	Fatal   bool
}

// EncodeErrorMessage serializes an error payload.
func EncodeErrorMessage(em *ErrorMessage) []byte {
	e := NewEncoder()
	e.WriteUint16(uint16(em.Code))
	e.WriteString(em.Message)
	e.WriteBool(em.Fatal)
	return e.Bytes()
}

// DecodeErrorMessage parses an error payload.
func DecodeErrorMessage(payload []byte) (*ErrorMessage, error) {
	d := NewDecoder(payload)
	em := &ErrorMessage{}
	code, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	em.Code = ErrorCode(code)
	if em.Message, err = d.ReadString(); err != nil {
		return nil, err
	}
	if em.Fatal, err = d.ReadBool(); err != nil {
		return nil, err
	}
	return em, nil
}

package protocol

// HelloStatus is the result of a connection handshake.
type HelloStatus uint8

const (
	HelloOK              HelloStatus = 0x00
	HelloVersionMismatch HelloStatus = 0x01
	HelloSessionExpired  HelloStatus = 0x02
	HelloServerBusy      HelloStatus = 0x03
	HelloInvalidFormat   HelloStatus = 0x04
	HelloInternalError   HelloStatus = 0x05
)

func (s HelloStatus) String() string {
	switch s {
	case HelloOK:
		return "OK"
	case HelloVersionMismatch:
		return "VersionMismatch"
	case HelloSessionExpired:
		return "SessionExpired"
	case HelloServerBusy:
		return "ServerBusy"
	case HelloInvalidFormat:
		return "InvalidFormat"
	case HelloInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// Version is a protocol version as major.minor.
type Version struct {
	Major uint8
	Minor uint8
}

// CurrentVersion is the protocol version this package speaks.
var CurrentVersion = Version{Major: 1, Minor: 0}

// ClientHello opens a connection: either fresh (empty SessionID) or resuming
// an existing session from LastSeq.
type ClientHello struct {
	Version   Version
	SessionID string
	LastSeq   uint64
}

// ServerHello answers a ClientHello. On HelloOK the client applies HTML as
// its initial tree (empty when resuming) and expects mutations from NextSeq.
type ServerHello struct {
	Status    HelloStatus
	SessionID string
	NextSeq   uint64
	HTML      string
}

// EncodeClientHello serializes a ClientHello payload.
func EncodeClientHello(ch *ClientHello) []byte {
	e := NewEncoder()
	e.WriteByte(ch.Version.Major)
	e.WriteByte(ch.Version.Minor)
	e.WriteString(ch.SessionID)
	e.WriteUvarint(ch.LastSeq)
	return e.Bytes()
}

// DecodeClientHello parses a ClientHello payload.
func DecodeClientHello(payload []byte) (*ClientHello, error) {
	d := NewDecoder(payload)
	ch := &ClientHello{}
	var err error
	if ch.Version.Major, err = d.ReadByte(); err != nil {
		return nil, err
	}
	if ch.Version.Minor, err = d.ReadByte(); err != nil {
		return nil, err
	}
	if ch.SessionID, err = d.ReadString(); err != nil {
		return nil, err
	}
	if ch.LastSeq, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	return ch, nil
}

// EncodeServerHello serializes a ServerHello payload.
func EncodeServerHello(sh *ServerHello) []byte {
	e := NewEncoder()
	e.WriteByte(byte(sh.Status))
	e.WriteString(sh.SessionID)
	e.WriteUvarint(sh.NextSeq)
	e.WriteString(sh.HTML)
	return e.Bytes()
}

// DecodeServerHello parses a ServerHello payload.
func DecodeServerHello(payload []byte) (*ServerHello, error) {
	d := NewDecoder(payload)
	sh := &ServerHello{}
	status, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	sh.Status = HelloStatus(status)
	if sh.SessionID, err = d.ReadString(); err != nil {
		return nil, err
	}
	if sh.NextSeq, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if sh.HTML, err = d.ReadString(); err != nil {
		return nil, err
	}
	return sh, nil
}

package protocol

// EventFrame is one client input event targeting a node the server
// registered a listener on. Data is an opaque payload the application
// interprets (form value, key name, coordinates as JSON).
type EventFrame struct {
	Seq  uint64
	Node uint64
	Type string
	Data string
}

// EncodeEvent serializes an event frame payload.
func EncodeEvent(ev *EventFrame) []byte {
	e := NewEncoder()
	e.WriteUvarint(ev.Seq)
	e.WriteUvarint(ev.Node)
	e.WriteString(ev.Type)
	e.WriteString(ev.Data)
	return e.Bytes()
}

// DecodeEvent parses an event frame payload.
func DecodeEvent(payload []byte) (*EventFrame, error) {
	d := NewDecoder(payload)
	ev := &EventFrame{}
	var err error
	if ev.Seq, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if ev.Node, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if ev.Type, err = d.ReadString(); err != nil {
		return nil, err
	}
	if ev.Data, err = d.ReadString(); err != nil {
		return nil, err
	}
	return ev, nil
}

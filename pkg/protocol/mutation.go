package protocol

import "fmt"

// MutationOp is the kind of host mutation carried in a mutations frame.
type MutationOp uint8

const (
	MutSetAttr        MutationOp = 0x01 // set attribute
	MutRemoveAttr     MutationOp = 0x02 // remove attribute
	MutSetProp        MutationOp = 0x03 // set property
	MutSetText        MutationOp = 0x04 // replace text content
	MutInsert         MutationOp = 0x05 // insert serialized subtree
	MutRemove         MutationOp = 0x06 // remove node
	MutMove           MutationOp = 0x07 // reposition attached node
	MutAddListener    MutationOp = 0x08 // start forwarding an event
	MutRemoveListener MutationOp = 0x09 // stop forwarding an event
)

func (op MutationOp) String() string {
	switch op {
	case MutSetAttr:
		return "SetAttr"
	case MutRemoveAttr:
		return "RemoveAttr"
	case MutSetProp:
		return "SetProp"
	case MutSetText:
		return "SetText"
	case MutInsert:
		return "Insert"
	case MutRemove:
		return "Remove"
	case MutMove:
		return "Move"
	case MutAddListener:
		return "AddListener"
	case MutRemoveListener:
		return "RemoveListener"
	default:
		return "Unknown"
	}
}

// Commit phases as carried on the wire.
const (
	PhaseMutation uint8 = 0
	PhaseLayout   uint8 = 1
	PhasePassive  uint8 = 2
)

// Mutation is one committed host write. Node identifiers are session-scoped
// and assigned by the server's node registry; zero means "no node" (for
// Before it means append).
type Mutation struct {
	Op     MutationOp
	Phase  uint8
	Node   uint64
	Name   string // attribute, property, or event name
	Value  string // formatted value for SetAttr/SetProp/SetText
	Parent uint64 // Insert/Move target parent
	Before uint64 // Insert/Move position anchor, 0 = append
	HTML   string // Insert: serialized subtree
}

// MutationBatch is one flush's worth of mutations with a sequence number.
type MutationBatch struct {
	Seq       uint64
	Mutations []Mutation
}

// EncodeMutations serializes a batch as a mutations-frame payload.
func EncodeMutations(mb *MutationBatch) []byte {
	e := NewEncoder()
	EncodeMutationsTo(e, mb)
	return e.Bytes()
}

// EncodeMutationsTo serializes a batch into e.
func EncodeMutationsTo(e *Encoder, mb *MutationBatch) {
	e.WriteUvarint(mb.Seq)
	e.WriteUvarint(uint64(len(mb.Mutations)))
	for i := range mb.Mutations {
		encodeMutation(e, &mb.Mutations[i])
	}
}

func encodeMutation(e *Encoder, m *Mutation) {
	e.WriteByte(byte(m.Op))
	e.WriteByte(m.Phase)
	e.WriteUvarint(m.Node)

	switch m.Op {
	case MutSetAttr, MutSetProp:
		e.WriteString(m.Name)
		e.WriteString(m.Value)
	case MutRemoveAttr, MutAddListener, MutRemoveListener:
		e.WriteString(m.Name)
	case MutSetText:
		e.WriteString(m.Value)
	case MutInsert:
		e.WriteUvarint(m.Parent)
		e.WriteUvarint(m.Before)
		e.WriteString(m.HTML)
	case MutMove:
		e.WriteUvarint(m.Parent)
		e.WriteUvarint(m.Before)
	case MutRemove:
		// node id alone
	}
}

// DecodeMutations parses a mutations-frame payload.
func DecodeMutations(payload []byte) (*MutationBatch, error) {
	d := NewDecoder(payload)

	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}

	mb := &MutationBatch{Seq: seq, Mutations: make([]Mutation, count)}
	for i := 0; i < count; i++ {
		if err := decodeMutation(d, &mb.Mutations[i]); err != nil {
			return nil, err
		}
	}
	return mb, nil
}

func decodeMutation(d *Decoder, m *Mutation) error {
	op, err := d.ReadByte()
	if err != nil {
		return err
	}
	m.Op = MutationOp(op)
	if m.Phase, err = d.ReadByte(); err != nil {
		return err
	}
	if m.Node, err = d.ReadUvarint(); err != nil {
		return err
	}

	switch m.Op {
	case MutSetAttr, MutSetProp:
		if m.Name, err = d.ReadString(); err != nil {
			return err
		}
		m.Value, err = d.ReadString()
	case MutRemoveAttr, MutAddListener, MutRemoveListener:
		m.Name, err = d.ReadString()
	case MutSetText:
		m.Value, err = d.ReadString()
	case MutInsert:
		if m.Parent, err = d.ReadUvarint(); err != nil {
			return err
		}
		if m.Before, err = d.ReadUvarint(); err != nil {
			return err
		}
		m.HTML, err = d.ReadString()
	case MutMove:
		if m.Parent, err = d.ReadUvarint(); err != nil {
			return err
		}
		m.Before, err = d.ReadUvarint()
	case MutRemove:
		// nothing further
	default:
		return fmt.Errorf("protocol: unknown mutation op 0x%02x", op)
	}
	return err
}

package protocol

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"
)

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 16383, 16384, 1<<32 - 1, math.MaxUint64}

	e := NewEncoder()
	for _, v := range values {
		e.WriteUvarint(v)
	}
	d := NewDecoder(e.Bytes())
	for _, want := range values {
		got, err := d.ReadUvarint()
		if err != nil {
			t.Fatalf("read %d: %v", want, err)
		}
		if got != want {
			t.Errorf("expected %d, got %d", want, got)
		}
	}
	if !d.EOF() {
		t.Errorf("expected EOF, %d bytes remain", d.Remaining())
	}
}

func TestSvarintRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 63, -64, 64, -65, math.MaxInt64, math.MinInt64}

	e := NewEncoder()
	for _, v := range values {
		e.WriteSvarint(v)
	}
	d := NewDecoder(e.Bytes())
	for _, want := range values {
		got, err := d.ReadSvarint()
		if err != nil {
			t.Fatalf("read %d: %v", want, err)
		}
		if got != want {
			t.Errorf("expected %d, got %d", want, got)
		}
	}
}

func TestVarintOverflow(t *testing.T) {
	buf := bytes.Repeat([]byte{0xFF}, 10)
	d := NewDecoder(buf)
	if _, err := d.ReadUvarint(); !errors.Is(err, ErrVarintOverflow) {
		t.Errorf("expected ErrVarintOverflow, got %v", err)
	}
}

func TestStringTruncated(t *testing.T) {
	e := NewEncoder()
	e.WriteString("hello")
	buf := e.Bytes()

	d := NewDecoder(buf[:3])
	if _, err := d.ReadString(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestCollectionCountBounds(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(MaxCollectionCount + 1)
	e.WriteBytes(make([]byte, 64))
	d := NewDecoder(e.Bytes())
	if _, err := d.ReadCollectionCount(); !errors.Is(err, ErrCollectionTooLarge) {
		t.Errorf("expected ErrCollectionTooLarge, got %v", err)
	}

	// A count larger than the remaining bytes cannot be honest.
	e = NewEncoder()
	e.WriteUvarint(1000)
	d = NewDecoder(e.Bytes())
	if _, err := d.ReadCollectionCount(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestFixedWidthRoundTrip(t *testing.T) {
	e := NewEncoder()
	e.WriteUint16(0xBEEF)
	e.WriteUint32(0xDEADBEEF)
	e.WriteUint64(0x0123456789ABCDEF)
	e.WriteFloat64(3.14159)
	e.WriteBool(true)
	e.WriteBool(false)

	d := NewDecoder(e.Bytes())
	if v, _ := d.ReadUint16(); v != 0xBEEF {
		t.Errorf("uint16: got %x", v)
	}
	if v, _ := d.ReadUint32(); v != 0xDEADBEEF {
		t.Errorf("uint32: got %x", v)
	}
	if v, _ := d.ReadUint64(); v != 0x0123456789ABCDEF {
		t.Errorf("uint64: got %x", v)
	}
	if v, _ := d.ReadFloat64(); v != 3.14159 {
		t.Errorf("float64: got %v", v)
	}
	if v, _ := d.ReadBool(); !v {
		t.Error("expected true")
	}
	if v, _ := d.ReadBool(); v {
		t.Error("expected false")
	}
}

func TestFrameRoundTrip(t *testing.T) {
	f := &Frame{Type: FrameMutations, Flags: FlagFinal | FlagUrgent, Payload: []byte("payload")}

	got, err := DecodeFrame(f.Encode())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Type != FrameMutations || !got.Flags.Has(FlagFinal) || !got.Flags.Has(FlagUrgent) {
		t.Errorf("header mismatch: %+v", got)
	}
	if string(got.Payload) != "payload" {
		t.Errorf("payload mismatch: %q", got.Payload)
	}
}

func TestFrameStreamReadWrite(t *testing.T) {
	var buf bytes.Buffer
	frames := []*Frame{
		NewFrame(FrameHello, []byte{1, 2, 3}),
		{Type: FrameMutations, Flags: FlagFinal, Payload: nil},
		NewFrame(FrameControl, EncodeControl(&Control{Type: ControlPing, Timestamp: 42})),
	}
	for _, f := range frames {
		if err := WriteFrame(&buf, f); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	for i, want := range frames {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("read frame %d: %v", i, err)
		}
		if got.Type != want.Type || got.Flags != want.Flags || !bytes.Equal(got.Payload, want.Payload) {
			t.Errorf("frame %d mismatch: %+v vs %+v", i, got, want)
		}
	}
	if _, err := ReadFrame(&buf); err != io.EOF {
		t.Errorf("expected EOF after last frame, got %v", err)
	}
}

func TestWriteFrameRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	f := NewFrame(FrameMutations, make([]byte, MaxPayloadSize+1))
	if err := WriteFrame(&buf, f); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestMutationBatchRoundTrip(t *testing.T) {
	mb := &MutationBatch{
		Seq: 7,
		Mutations: []Mutation{
			{Op: MutSetAttr, Phase: PhaseMutation, Node: 2, Name: "class", Value: "open"},
			{Op: MutRemoveAttr, Node: 2, Name: "hidden"},
			{Op: MutSetProp, Phase: PhaseLayout, Node: 3, Name: "value", Value: "abc"},
			{Op: MutSetText, Node: 4, Value: "count: 1"},
			{Op: MutInsert, Node: 9, Parent: 2, Before: 4, HTML: "<li>new</li>"},
			{Op: MutMove, Node: 5, Parent: 2, Before: 0},
			{Op: MutRemove, Node: 6},
			{Op: MutAddListener, Node: 2, Name: "click"},
			{Op: MutRemoveListener, Node: 2, Name: "click"},
		},
	}

	got, err := DecodeMutations(EncodeMutations(mb))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Seq != mb.Seq {
		t.Errorf("seq: expected %d, got %d", mb.Seq, got.Seq)
	}
	if len(got.Mutations) != len(mb.Mutations) {
		t.Fatalf("expected %d mutations, got %d", len(mb.Mutations), len(got.Mutations))
	}
	for i, want := range mb.Mutations {
		if got.Mutations[i] != want {
			t.Errorf("mutation %d: expected %+v, got %+v", i, want, got.Mutations[i])
		}
	}
}

func TestDecodeMutationsUnknownOp(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(1) // seq
	e.WriteUvarint(1) // count
	e.WriteByte(0x7F) // bogus op
	e.WriteByte(0)    // phase
	e.WriteUvarint(1) // node

	if _, err := DecodeMutations(e.Bytes()); err == nil {
		t.Error("expected an error for an unknown mutation op")
	}
}

func TestEventRoundTrip(t *testing.T) {
	ev := &EventFrame{Seq: 12, Node: 2, Type: "click", Data: `{"x":4}`}
	got, err := DecodeEvent(EncodeEvent(ev))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if *got != *ev {
		t.Errorf("expected %+v, got %+v", ev, got)
	}
}

func TestHelloRoundTrip(t *testing.T) {
	ch := &ClientHello{Version: CurrentVersion, SessionID: "abcdef", LastSeq: 41}
	gotCH, err := DecodeClientHello(EncodeClientHello(ch))
	if err != nil {
		t.Fatalf("client hello decode failed: %v", err)
	}
	if *gotCH != *ch {
		t.Errorf("expected %+v, got %+v", ch, gotCH)
	}

	sh := &ServerHello{Status: HelloOK, SessionID: "abcdef", NextSeq: 42, HTML: "<div></div>"}
	gotSH, err := DecodeServerHello(EncodeServerHello(sh))
	if err != nil {
		t.Fatalf("server hello decode failed: %v", err)
	}
	if *gotSH != *sh {
		t.Errorf("expected %+v, got %+v", sh, gotSH)
	}
}

func TestControlRoundTrip(t *testing.T) {
	cases := []*Control{
		{Type: ControlPing, Timestamp: 1234},
		{Type: ControlPong, Timestamp: 1235},
		{Type: ControlClose, Reason: CloseServerShutdown},
	}
	for _, c := range cases {
		got, err := DecodeControl(EncodeControl(c))
		if err != nil {
			t.Fatalf("decode %s failed: %v", c.Type, err)
		}
		if *got != *c {
			t.Errorf("expected %+v, got %+v", c, got)
		}
	}
}

func TestErrorMessageRoundTrip(t *testing.T) {
	em := &ErrorMessage{Code: ErrHandlerPanic, Message: "handler panicked", Fatal: false}
	got, err := DecodeErrorMessage(EncodeErrorMessage(em))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if *got != *em {
		t.Errorf("expected %+v, got %+v", em, got)
	}
}

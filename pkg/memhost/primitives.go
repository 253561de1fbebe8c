package memhost

import (
	"fmt"
	"reflect"

	"github.com/weft-ui/weft/pkg/weft"
)

// primitiveDirective is the per-part-kind directive returned by
// Backend.ResolvePrimitive. One instance exists per kind per backend, so
// directive identity stays stable across renders.
type primitiveDirective struct {
	backend *Backend
	kind    weft.PartKind
	name    string
}

var _ weft.Directive = (*primitiveDirective)(nil)

func (d *primitiveDirective) Name() string { return d.name }

func (d *primitiveDirective) ResolveBinding(value any, part weft.Part, ctx *weft.UpdateContext) (weft.Binding, error) {
	if part.Kind != d.kind {
		return nil, &weft.ProtocolError{
			Op: "memhost.ResolveBinding", Part: &part, Directive: d, Value: value,
			Msg: fmt.Sprintf("%s directive bound at %s part", d.name, part.Kind),
		}
	}
	state := primitiveState{directive: d, part: part, pending: value}
	switch d.kind {
	case weft.PartAttribute:
		return &attrBinding{primitiveState: state}, nil
	case weft.PartProperty:
		return &propBinding{primitiveState: state}, nil
	case weft.PartLive:
		return &liveBinding{primitiveState: state}, nil
	case weft.PartEvent:
		if _, err := toHandler(value); err != nil {
			return nil, &weft.ProtocolError{
				Op: "memhost.ResolveBinding", Part: &part, Directive: d, Value: value,
				Msg: err.Error(),
			}
		}
		return &eventBinding{primitiveState: state}, nil
	case weft.PartText:
		return &textBinding{primitiveState: state}, nil
	case weft.PartElement:
		if _, ok := value.(func(*Node)); !ok && value != nil {
			return nil, &weft.ProtocolError{
				Op: "memhost.ResolveBinding", Part: &part, Directive: d, Value: value,
				Msg: "ref values must be func(*Node)",
			}
		}
		return &refBinding{primitiveState: state}, nil
	default:
		return &childBinding{primitiveState: state}, nil
	}
}

// primitiveState carries the bookkeeping every primitive binding shares:
// pending vs. committed value tracking and the default ShouldBind/Bind.
type primitiveState struct {
	directive *primitiveDirective
	part      weft.Part
	pending   any
	committed any
	applied   bool
}

func (s *primitiveState) Directive() weft.Directive { return s.directive }

func (s *primitiveState) Part() weft.Part { return s.part }

func (s *primitiveState) ShouldBind(newValue any) bool {
	if !s.applied {
		return true
	}
	return !equal(s.committed, newValue)
}

func (s *primitiveState) Bind(newValue any) { s.pending = newValue }

func (s *primitiveState) Connect(ctx *weft.UpdateContext) error { return nil }

func (s *primitiveState) Disconnect(ctx *weft.UpdateContext) {}

func (s *primitiveState) node() *Node { return s.part.Node.(*Node) }

// attrBinding renders an attribute. Nil and false remove it, true sets the
// empty string, everything else is formatted.
type attrBinding struct{ primitiveState }

func (b *attrBinding) Commit(ctx *weft.CommitContext) {
	n := b.node()
	switch v := b.pending.(type) {
	case nil:
		n.RemoveAttribute(b.part.Name)
	case bool:
		if v {
			n.SetAttribute(b.part.Name, "")
		} else {
			n.RemoveAttribute(b.part.Name)
		}
	case string:
		n.SetAttribute(b.part.Name, v)
	default:
		n.SetAttribute(b.part.Name, fmt.Sprint(v))
	}
	b.committed = b.pending
	b.applied = true
}

func (b *attrBinding) Rollback(ctx *weft.CommitContext) {
	if !b.applied {
		return
	}
	if def, ok := b.part.DefaultValue.(string); ok {
		b.node().SetAttribute(b.part.Name, def)
	} else {
		b.node().RemoveAttribute(b.part.Name)
	}
	b.committed = nil
	b.applied = false
}

// propBinding writes a property verbatim and restores the part's default on
// rollback.
type propBinding struct{ primitiveState }

func (b *propBinding) Commit(ctx *weft.CommitContext) {
	b.node().SetProperty(b.part.Name, b.pending)
	b.committed = b.pending
	b.applied = true
}

func (b *propBinding) Rollback(ctx *weft.CommitContext) {
	if !b.applied {
		return
	}
	b.node().SetProperty(b.part.Name, b.part.DefaultValue)
	b.committed = nil
	b.applied = false
}

// liveBinding is a property binding that checks the host's current value at
// commit time, re-asserting bound state the host may have drifted from
// (an input's value, a scroll position).
type liveBinding struct{ primitiveState }

// ShouldBind always rebinds: the host value may have changed even when the
// bound value has not.
func (b *liveBinding) ShouldBind(newValue any) bool { return true }

func (b *liveBinding) Commit(ctx *weft.CommitContext) {
	n := b.node()
	if !equal(n.Prop(b.part.Name), b.pending) {
		n.SetProperty(b.part.Name, b.pending)
	}
	b.committed = b.pending
	b.applied = true
}

func (b *liveBinding) Rollback(ctx *weft.CommitContext) {
	if !b.applied {
		return
	}
	b.node().SetProperty(b.part.Name, b.part.DefaultValue)
	b.committed = nil
	b.applied = false
}

// eventBinding swaps one listener per commit. Handlers are compared by
// function identity, so stable callbacks (UseCallback) never re-register.
type eventBinding struct {
	primitiveState
	listener *Listener
}

func (b *eventBinding) Commit(ctx *weft.CommitContext) {
	n := b.node()
	if b.listener != nil {
		n.RemoveEventListener(b.listener)
		b.listener = nil
	}
	handler, err := toHandler(b.pending)
	if err != nil {
		ctx.Engine().Logger().Warn("memhost: dropping event binding", "event", b.part.Name, "err", err)
		return
	}
	if handler != nil {
		b.listener = n.AddEventListener(b.part.Name, handler)
	}
	b.committed = b.pending
	b.applied = true
}

func (b *eventBinding) Rollback(ctx *weft.CommitContext) {
	if b.listener != nil {
		b.node().RemoveEventListener(b.listener)
		b.listener = nil
	}
	b.committed = nil
	b.applied = false
}

func toHandler(value any) (EventHandler, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case EventHandler:
		return v, nil
	case func(Event):
		return EventHandler(v), nil
	case func():
		return func(Event) { v() }, nil
	default:
		return nil, fmt.Errorf("event values must be func(Event) or func(), got %T", value)
	}
}

// textBinding updates a text node's content, preserving the static runs
// around the dynamic part.
type textBinding struct{ primitiveState }

func (b *textBinding) Commit(ctx *weft.CommitContext) {
	n := b.node()
	var s string
	if b.pending != nil {
		s = fmt.Sprint(b.pending)
	}
	n.SetText(b.part.PrecedingText + s + b.part.FollowingText)
	b.committed = b.pending
	b.applied = true
}

func (b *textBinding) Rollback(ctx *weft.CommitContext) {
	if !b.applied {
		return
	}
	b.node().SetText(b.part.PrecedingText + b.part.FollowingText)
	b.committed = nil
	b.applied = false
}

// refBinding hands the part's element to a callback on commit and nil on
// rollback.
type refBinding struct{ primitiveState }

func (b *refBinding) Commit(ctx *weft.CommitContext) {
	if fn, ok := b.pending.(func(*Node)); ok && fn != nil {
		fn(b.node())
	}
	b.committed = b.pending
	b.applied = true
}

func (b *refBinding) Rollback(ctx *weft.CommitContext) {
	if !b.applied {
		return
	}
	if fn, ok := b.committed.(func(*Node)); ok && fn != nil {
		fn(nil)
	}
	b.committed = nil
	b.applied = false
}

// childBinding places primitive content at a child position: a *Node is
// adopted directly, anything else renders as a text node the binding owns.
type childBinding struct {
	primitiveState
	owned *Node
}

var _ weft.NodeRange = (*childBinding)(nil)

// HostNodes implements weft.NodeRange so keyed lists can move this
// binding's content without re-committing it.
func (b *childBinding) HostNodes() []weft.Node {
	if b.owned == nil {
		return nil
	}
	return []weft.Node{b.owned}
}

func (b *childBinding) Commit(ctx *weft.CommitContext) {
	parent := b.node()
	var anchor *Node
	if b.part.AnchorNode != nil {
		anchor = b.part.AnchorNode.(*Node)
	}
	switch v := b.pending.(type) {
	case nil:
		b.detachOwned(parent)
	case *Node:
		if b.owned != v {
			b.detachOwned(parent)
			parent.InsertBefore(v, anchor)
			b.owned = v
		}
	default:
		s := fmt.Sprint(v)
		if b.owned != nil && b.owned.Kind == TextNode {
			b.owned.SetText(s)
		} else {
			b.detachOwned(parent)
			txt := parent.doc.CreateText(s)
			parent.InsertBefore(txt, anchor)
			b.owned = txt
		}
	}
	b.committed = b.pending
	b.applied = true
}

func (b *childBinding) Rollback(ctx *weft.CommitContext) {
	b.detachOwned(b.node())
	b.committed = nil
	b.applied = false
}

func (b *childBinding) detachOwned(parent *Node) {
	if b.owned != nil {
		parent.RemoveChild(b.owned)
		b.owned = nil
	}
}

// equal mirrors the runtime's value identity rules: reference types compare
// by pointer, plain values by content.
func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() != rb.Kind() {
		return false
	}
	switch ra.Kind() {
	case reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return ra.Pointer() == rb.Pointer()
	}
	return reflect.DeepEqual(a, b)
}

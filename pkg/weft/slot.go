package weft

// SlotKind distinguishes slots whose directive type is pinned by the static
// shape of the tree (strict) from positions that may hold a different kind of
// content on every update (loose).
type SlotKind uint8

const (
	// SlotStrict slots must keep resolving to the same directive type; a
	// mismatch is a protocol violation.
	SlotStrict SlotKind = iota

	// SlotLoose slots may swap directive types across updates; the old
	// binding is rolled back before the new one commits.
	SlotLoose
)

// String returns the string representation of the SlotKind.
func (k SlotKind) String() string {
	if k == SlotStrict {
		return "strict"
	}
	return "loose"
}

// Slot holds the current binding for one part and reconciles new values
// against it: rebind when the directive type matches, swap bindings when a
// loose slot's type changes, no-op when ShouldBind says the value is
// unchanged. A slot's dirty flag transitions atomically at commit; the host
// never observes a half-committed slot.
type Slot struct {
	kind    SlotKind
	part    Part
	binding Binding

	// previous is the binding displaced by a loose type swap. It is rolled
	// back at commit, before the replacement commits, so both bindings'
	// host effects are never visible together.
	previous Binding

	dirty     bool
	connected bool
}

// ResolveSlot creates a slot for value at part, resolving the directive and
// constructing (but not connecting) the initial binding.
func ResolveSlot(value any, part Part, ctx *UpdateContext) (*Slot, error) {
	dv := resolveDirectiveValue(value, part, ctx)
	binding, err := dv.Directive.ResolveBinding(dv.Value, part, ctx)
	if err != nil {
		return nil, err
	}
	return &Slot{
		kind:    ctx.engine.backend.ResolveSlotKind(value, part),
		part:    part,
		binding: binding,
		dirty:   true,
	}, nil
}

// Kind returns the slot's reconciliation mode.
func (s *Slot) Kind() SlotKind { return s.kind }

// Part returns the binding site this slot occupies.
func (s *Slot) Part() Part { return s.part }

// Binding returns the slot's current binding.
func (s *Slot) Binding() Binding { return s.binding }

// IsDirty reports whether the slot has uncommitted changes.
func (s *Slot) IsDirty() bool { return s.dirty }

// Connect attaches the slot's binding.
func (s *Slot) Connect(ctx *UpdateContext) error {
	if err := s.binding.Connect(ctx); err != nil {
		return err
	}
	s.connected = true
	return nil
}

// Disconnect detaches the slot's binding and marks the slot dirty so the
// next commit rolls the host back.
func (s *Slot) Disconnect(ctx *UpdateContext) {
	if !s.connected {
		return
	}
	s.binding.Disconnect(ctx)
	s.connected = false
	s.dirty = true
}

// Reconcile updates the slot with newValue and reports whether the slot
// became dirty. Callers propagate dirtiness upward to decide whether to
// enqueue a mutation effect for the slot.
func (s *Slot) Reconcile(newValue any, ctx *UpdateContext) (bool, error) {
	dv := resolveDirectiveValue(newValue, s.part, ctx)

	if dv.Directive == s.binding.Directive() {
		if !s.binding.ShouldBind(dv.Value) {
			return s.dirty, nil
		}
		s.binding.Bind(dv.Value)
		if err := s.binding.Connect(ctx); err != nil {
			return false, err
		}
		s.connected = true
		s.dirty = true
		return true, nil
	}

	if s.kind == SlotStrict {
		return false, protocolErrorf("Slot.Reconcile", &s.part, dv.Directive, dv.Value,
			"directive type changed from %s in a strict slot", s.binding.Directive().Name())
	}

	// Loose swap: detach the old binding, then construct and connect its
	// replacement. The displaced binding rolls back at commit time.
	if s.connected {
		s.binding.Disconnect(ctx)
	}
	if s.previous == nil {
		s.previous = s.binding
	}
	binding, err := dv.Directive.ResolveBinding(dv.Value, s.part, ctx)
	if err != nil {
		return false, err
	}
	if err := binding.Connect(ctx); err != nil {
		return false, err
	}
	s.binding = binding
	s.connected = true
	s.dirty = true
	return true, nil
}

// Commit applies the slot's pending state to the host: the displaced binding
// (if any) rolls back first, then the current binding commits, or rolls back
// if the slot was disconnected. Implements CommitEffect; slots enqueue into
// the mutation phase.
func (s *Slot) Commit(ctx *CommitContext) {
	if !s.dirty {
		return
	}
	if s.previous != nil && s.previous != s.binding {
		s.previous.Rollback(ctx)
		s.previous = nil
	}
	if s.connected {
		s.binding.Commit(ctx)
	} else {
		s.binding.Rollback(ctx)
	}
	s.dirty = false
}

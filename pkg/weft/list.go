package weft

// KeyedValue wraps one entry of an ordered child collection with an explicit
// reconciliation key.
type KeyedValue struct {
	Key   any
	Value any
}

// Keyed pairs a key with a value for keyed-list reconciliation.
func Keyed(key, value any) KeyedValue {
	return KeyedValue{Key: key, Value: value}
}

// ListDirective reconciles ordered keyed collections. Matching old to new
// children by key (not position) lets a reorder reuse every surviving
// binding instead of recreating it.
var ListDirective Directive = &listDirective{}

type listDirective struct{}

// List wraps a keyed item sequence as a bindable value.
func List(items []KeyedValue) DirectiveValue {
	return DirectiveValue{Directive: ListDirective, Value: items}
}

// Name implements Directive.
func (d *listDirective) Name() string { return "list" }

// ResolveBinding implements Directive.
func (d *listDirective) ResolveBinding(value any, part Part, ctx *UpdateContext) (Binding, error) {
	items, ok := value.([]KeyedValue)
	if !ok {
		return nil, protocolErrorf("listDirective.ResolveBinding", &part, d, value,
			"list value must be []KeyedValue, got %T", value)
	}
	if part.Kind != PartChildNode {
		return nil, protocolErrorf("listDirective.ResolveBinding", &part, d, value,
			"lists bind only at ChildNode parts")
	}
	return &listBinding{directive: d, part: part, pending: items}, nil
}

// NodeRange is implemented by bindings occupying a ChildNode part that can
// expose their committed host nodes, enabling keyed moves without rebinding.
type NodeRange interface {
	HostNodes() []Node
}

// ChildMover is optionally implemented by backends whose hosts support
// moving attached children. Without it, keyed reorders fall back to
// re-committing the moved slots.
type ChildMover interface {
	MoveChildren(parent Node, nodes []Node, before Node)
}

// listItem is one keyed entry: the key and the slot whose binding it reuses
// across positions.
type listItem struct {
	key   any
	slot  *Slot
	moved bool
}

// listBinding owns an ordered sequence of child slots reconciled by key.
type listBinding struct {
	directive *listDirective
	part      Part

	pending []KeyedValue
	items   []*listItem

	// removed holds slots whose keys vanished this pass; their rollback
	// commits with the rest of the batch.
	removed []*Slot

	dirty     bool
	connected bool
	status    BindingStatus
}

var _ Binding = (*listBinding)(nil)

// Directive implements Binding.
func (b *listBinding) Directive() Directive { return b.directive }

// Part implements Binding.
func (b *listBinding) Part() Part { return b.part }

// ShouldBind implements Binding: element-wise comparison of keys and value
// identities, positional tie-break.
func (b *listBinding) ShouldBind(newValue any) bool {
	items, ok := newValue.([]KeyedValue)
	if !ok {
		return true
	}
	if len(items) != len(b.items) || !b.connected {
		return true
	}
	for i, item := range items {
		if !valueEqual(item.Key, b.items[i].key) {
			return true
		}
	}
	// Same key order; rebind only if some value changed.
	for i, item := range items {
		if b.items[i].slot.Binding().ShouldBind(item.Value) {
			return true
		}
	}
	return false
}

// Bind implements Binding.
func (b *listBinding) Bind(newValue any) {
	if items, ok := newValue.([]KeyedValue); ok {
		b.pending = items
	}
}

// Connect implements Binding: reconcile the pending items against the
// current ones by key. A key present in both reuses its slot (rebinding only
// when ShouldBind says so); a key only in the old set disconnects; a key
// only in the new set gets a fresh slot.
func (b *listBinding) Connect(ctx *UpdateContext) error {
	if DebugMode {
		if err := b.checkDuplicateKeys(); err != nil {
			return err
		}
	}

	oldIndex := make(map[any]int, len(b.items))
	for i, item := range b.items {
		oldIndex[item.key] = i
	}

	next := make([]*listItem, 0, len(b.pending))
	matched := make(map[int]bool, len(b.items))
	for pos, kv := range b.pending {
		if oldPos, ok := oldIndex[kv.Key]; ok && !matched[oldPos] {
			item := b.items[oldPos]
			matched[oldPos] = true
			if item.slot.Binding().ShouldBind(kv.Value) {
				if _, err := item.slot.Reconcile(kv.Value, ctx); err != nil {
					return err
				}
			}
			item.moved = oldPos != pos
			next = append(next, item)
			continue
		}

		part := Part{Kind: PartChildNode, Node: b.part.Node, AnchorNode: b.part.AnchorNode}
		slot, err := ResolveSlot(kv.Value, part, ctx)
		if err != nil {
			return err
		}
		if err := slot.Connect(ctx); err != nil {
			return err
		}
		next = append(next, &listItem{key: kv.Key, slot: slot, moved: true})
	}

	for i, item := range b.items {
		if !matched[i] {
			item.slot.Disconnect(ctx)
			b.removed = append(b.removed, item.slot)
		}
	}

	b.items = next
	b.connected = true
	b.dirty = true
	b.status = StatusCommitPending
	return nil
}

// checkDuplicateKeys raises a developer-facing error when two entries share
// a key; behavior would otherwise be undefined.
func (b *listBinding) checkDuplicateKeys() error {
	seen := make(map[any]int, len(b.pending))
	for i, kv := range b.pending {
		if first, dup := seen[kv.Key]; dup {
			return protocolErrorf("listBinding.Connect", &b.part, b.directive, kv.Key,
				"duplicate key %v at positions %d and %d", kv.Key, first, i)
		}
		seen[kv.Key] = i
	}
	return nil
}

// Disconnect implements Binding.
func (b *listBinding) Disconnect(ctx *UpdateContext) {
	if !b.connected {
		return
	}
	for _, item := range b.items {
		item.slot.Disconnect(ctx)
	}
	b.connected = false
	b.dirty = true
	b.status = StatusRollbackPending
}

// Commit implements Binding: removed slots roll back first, dirty item slots
// commit, then moved items are re-placed in final order. Unmoved items with
// unchanged values receive zero host writes.
func (b *listBinding) Commit(ctx *CommitContext) {
	for _, slot := range b.removed {
		slot.Commit(ctx)
	}
	b.removed = nil

	for _, item := range b.items {
		if item.slot.IsDirty() {
			item.slot.Commit(ctx)
		}
	}

	mover, _ := ctx.engine.backend.(ChildMover)
	if mover != nil {
		// Walk back to front so each moved item lands before the already
		// settled item that follows it.
		before := b.part.AnchorNode
		for i := len(b.items) - 1; i >= 0; i-- {
			item := b.items[i]
			nodes := hostNodesOf(item.slot.Binding())
			if item.moved && len(nodes) > 0 {
				mover.MoveChildren(b.part.Node, nodes, before)
			}
			if len(nodes) > 0 {
				before = nodes[0]
			}
			item.moved = false
		}
	}

	b.dirty = false
	b.status = StatusIdle
}

// Rollback implements Binding: every item slot rolls back. Idempotent.
func (b *listBinding) Rollback(ctx *CommitContext) {
	for _, slot := range b.removed {
		slot.Commit(ctx)
	}
	b.removed = nil
	for _, item := range b.items {
		item.slot.Commit(ctx)
	}
	b.status = StatusIdle
}

// Len returns the number of live items.
func (b *listBinding) Len() int { return len(b.items) }

// SlotAt returns the slot at position i, for tests and debugging.
func (b *listBinding) SlotAt(i int) *Slot { return b.items[i].slot }

// KeyAt returns the key at position i.
func (b *listBinding) KeyAt(i int) any { return b.items[i].key }

// hostNodesOf returns the committed host nodes of a binding, if it exposes
// them.
func hostNodesOf(binding Binding) []Node {
	if r, ok := binding.(NodeRange); ok {
		return r.HostNodes()
	}
	return nil
}

// DebugMode enables extra development-time validation throughout the
// package: duplicate-key detection in keyed lists and scheduling diagnostics
// on the engine's logger. Set it at startup; it is not synchronized.
var DebugMode bool

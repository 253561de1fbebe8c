package weft

import "sync"

// Template is the opaque contract with the template provider: a static node
// layout plus a list of dynamic holes. The core never parses templates; it
// instantiates them and routes hole values into the returned slots.
type Template interface {
	// Render instantiates the template's static layout for part and creates
	// one slot per hole, bound (but not committed) with the given binds.
	Render(binds []any, part Part, ctx *UpdateContext) (*TemplateFragment, error)

	// Hydrate adopts an existing host tree instead of creating nodes,
	// walking it with the scope's hydration cursor.
	Hydrate(binds []any, part Part, ctx *UpdateContext) (*TemplateFragment, error)
}

// TemplateFragment is one instantiation of a template: the created (or
// adopted) top-level host nodes and the slots occupying the template's holes.
// Mount and Unmount are supplied by the host-aware template provider; the
// core calls them during commit and rollback so it never touches host nodes
// itself.
type TemplateFragment struct {
	ChildNodes []Node
	Slots      []*Slot

	// Mount attaches ChildNodes at the owning part's anchor. May be nil
	// for hydrated fragments whose nodes are already attached.
	Mount func()

	// Unmount detaches ChildNodes from the host.
	Unmount func()
}

// TemplateResult pairs a template with the bind values for its holes. It is
// the value a tagged-template expression produces.
type TemplateResult struct {
	Template Template
	Binds    []any
}

// templateDirectives memoizes one directive per template instance so
// repeated results of the same template keep one directive identity.
var templateDirectives sync.Map // Template -> *TemplateDirective

// TemplateDirective binds a TemplateResult's holes into a template fragment.
type TemplateDirective struct {
	template Template
}

func templateDirectiveFor(t Template) *TemplateDirective {
	if d, ok := templateDirectives.Load(t); ok {
		return d.(*TemplateDirective)
	}
	d, _ := templateDirectives.LoadOrStore(t, &TemplateDirective{template: t})
	return d.(*TemplateDirective)
}

// Name implements Directive.
func (d *TemplateDirective) Name() string { return "template" }

// ResolveBinding implements Directive.
func (d *TemplateDirective) ResolveBinding(value any, part Part, ctx *UpdateContext) (Binding, error) {
	binds, ok := value.([]any)
	if !ok && value != nil {
		return nil, protocolErrorf("TemplateDirective.ResolveBinding", &part, d, value,
			"template binds must be []any, got %T", value)
	}
	if part.Kind != PartChildNode {
		return nil, protocolErrorf("TemplateDirective.ResolveBinding", &part, d, value,
			"templates bind only at ChildNode parts")
	}
	return &templateBinding{directive: d, part: part, pending: binds}, nil
}

// templateBinding owns one fragment instance. Binds reconcile hole-by-hole
// into the fragment's slots; the fragment's own nodes are static and commit
// once.
type templateBinding struct {
	directive *TemplateDirective
	part      Part

	pending   []any
	committed []any
	fragment  *TemplateFragment
	mounted   bool
	dirty     bool
	connected bool
	status    BindingStatus
}

var _ Binding = (*templateBinding)(nil)

// Directive implements Binding.
func (b *templateBinding) Directive() Directive { return b.directive }

// Part implements Binding.
func (b *templateBinding) Part() Part { return b.part }

// ShouldBind implements Binding: element-wise identity over the binds.
func (b *templateBinding) ShouldBind(newValue any) bool {
	binds, ok := newValue.([]any)
	if !ok {
		return true
	}
	if b.committed == nil {
		return true
	}
	return !shallowEqual(b.committed, binds)
}

// Bind implements Binding.
func (b *templateBinding) Bind(newValue any) {
	if binds, ok := newValue.([]any); ok {
		b.pending = binds
	}
	b.dirty = true
}

// Connect implements Binding. The first connect instantiates the fragment
// (or adopts the host tree when a hydration cursor is in scope); later
// connects reconcile the pending binds into the fragment's slots.
func (b *templateBinding) Connect(ctx *UpdateContext) error {
	if b.fragment == nil {
		var fragment *TemplateFragment
		var err error
		if ctx.scope != nil && ctx.scope.HydrationCursor() != nil {
			fragment, err = b.directive.template.Hydrate(b.pending, b.part, ctx)
		} else {
			fragment, err = b.directive.template.Render(b.pending, b.part, ctx)
		}
		if err != nil {
			return err
		}
		if len(fragment.Slots) != len(b.pending) {
			return protocolErrorf("templateBinding.Connect", &b.part, b.directive, b.pending,
				"template produced %d slots for %d binds", len(fragment.Slots), len(b.pending))
		}
		b.fragment = fragment
		for _, slot := range fragment.Slots {
			if err := slot.Connect(ctx); err != nil {
				return err
			}
		}
		b.connected = true
		b.dirty = true
		b.status = StatusCommitPending
		return nil
	}

	for i, slot := range b.fragment.Slots {
		if i >= len(b.pending) {
			break
		}
		if _, err := slot.Reconcile(b.pending[i], ctx); err != nil {
			return err
		}
	}
	b.connected = true
	b.status = StatusCommitPending
	return nil
}

// Disconnect implements Binding.
func (b *templateBinding) Disconnect(ctx *UpdateContext) {
	if !b.connected {
		return
	}
	for _, slot := range b.fragment.Slots {
		slot.Disconnect(ctx)
	}
	b.connected = false
	b.dirty = true
	b.status = StatusRollbackPending
}

// Commit implements Binding: attach the fragment's nodes on first commit,
// then commit every hole slot.
func (b *templateBinding) Commit(ctx *CommitContext) {
	if !b.dirty {
		return
	}
	if !b.mounted {
		if b.fragment.Mount != nil {
			b.fragment.Mount()
		}
		b.mounted = true
	}
	for _, slot := range b.fragment.Slots {
		slot.Commit(ctx)
	}
	b.committed = b.pending
	b.dirty = false
	b.status = StatusIdle
}

// Rollback implements Binding: roll back every hole slot, then detach the
// fragment's nodes. Idempotent; a fragment that never committed is a no-op.
func (b *templateBinding) Rollback(ctx *CommitContext) {
	if b.fragment == nil || !b.mounted {
		b.status = StatusIdle
		return
	}
	for _, slot := range b.fragment.Slots {
		slot.Commit(ctx)
	}
	if b.fragment.Unmount != nil {
		b.fragment.Unmount()
	}
	b.mounted = false
	b.committed = nil
	b.dirty = false
	b.status = StatusIdle
}

// Fragment exposes the instantiated fragment, primarily for backends that
// need the fragment's nodes to place them in the host tree.
func (b *templateBinding) Fragment() *TemplateFragment { return b.fragment }

// HostNodes implements NodeRange: a keyed list can relocate the fragment's
// top-level nodes without touching its slots.
func (b *templateBinding) HostNodes() []Node {
	if b.fragment == nil {
		return nil
	}
	return b.fragment.ChildNodes
}

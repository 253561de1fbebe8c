package weft

import (
	"reflect"
	"runtime"
	"sync"
)

// componentDirectives memoizes one directive per component function, keyed
// by the function's code pointer. Successive renders of the same component
// therefore resolve to the same directive identity, which is what lets slot
// reconciliation rebind instead of remounting.
var componentDirectives sync.Map // uintptr -> *ComponentDirective

// ComponentDirective is the directive for a single component function.
type ComponentDirective struct {
	fn       ComponentFunc
	funcName string
}

// Component wraps a component function and its props as a bindable value.
// The directive for fn is created once and reused for every call.
func Component(fn ComponentFunc, props any) DirectiveValue {
	return DirectiveValue{Directive: componentDirectiveFor(fn), Value: props}
}

func componentDirectiveFor(fn ComponentFunc) *ComponentDirective {
	key := reflect.ValueOf(fn).Pointer()
	if d, ok := componentDirectives.Load(key); ok {
		return d.(*ComponentDirective)
	}
	name := "component"
	if f := runtime.FuncForPC(key); f != nil {
		name = f.Name()
	}
	d, _ := componentDirectives.LoadOrStore(key, &ComponentDirective{fn: fn, funcName: name})
	return d.(*ComponentDirective)
}

// Name implements Directive.
func (d *ComponentDirective) Name() string { return d.funcName }

// ResolveBinding implements Directive. The binding for a component is its
// block: the schedulable unit of re-render work.
func (d *ComponentDirective) ResolveBinding(value any, part Part, ctx *UpdateContext) (Binding, error) {
	return &componentBlock{
		directive:    d,
		part:         part,
		pendingProps: value,
		parent:       ctx.block,
		engine:       ctx.engine,
		parentScope:  ctx.scope,
	}, nil
}

// componentBlock is both the Binding that occupies a component's part and
// the Block the scheduler queues. It owns the component instance's hook
// array, its scope, and the slot holding the rendered result.
type componentBlock struct {
	directive *ComponentDirective
	part      Part

	pendingProps  any
	memoizedProps any

	// hooks is the positional hook array; finalized after the first full
	// render, after which its length is immutable.
	hooks     []*hookSlot
	finalized bool

	// slot holds the component's rendered value at the same part.
	slot *Slot

	parent      Block
	parentScope *Scope
	scope       *Scope
	engine      *UpdateEngine

	connected bool
	updating  bool
	status    BindingStatus
}

var (
	_ Binding = (*componentBlock)(nil)
	_ Block   = (*componentBlock)(nil)
)

func (b *componentBlock) name() string { return b.directive.funcName }

// Directive implements Binding.
func (b *componentBlock) Directive() Directive { return b.directive }

// Part implements Binding.
func (b *componentBlock) Part() Part { return b.part }

// ShouldBind implements Binding: a component rebinds only when its props
// changed by identity against the last committed props. With a commit or
// rollback outstanding the block always rebinds.
func (b *componentBlock) ShouldBind(newValue any) bool {
	if b.status != StatusIdle {
		return true
	}
	return !valueEqual(b.memoizedProps, newValue)
}

// Bind implements Binding.
func (b *componentBlock) Bind(newValue any) {
	b.pendingProps = newValue
}

// Connect implements Binding. Connecting a component enqueues its first (or
// next) render at the lane currently being serviced.
func (b *componentBlock) Connect(ctx *UpdateContext) error {
	if !b.connected {
		b.connected = true
		b.scope = NewScope(b.parentScope)
	}
	b.status = StatusCommitPending
	b.engine.scheduleUpdate(b, ctx.lane)
	return nil
}

// Disconnect implements Binding. A disconnected block no longer enqueues
// updates; any queued update is cancelled, and the rendered subtree
// disconnects recursively.
func (b *componentBlock) Disconnect(ctx *UpdateContext) {
	if !b.connected {
		return
	}
	b.connected = false
	b.status = StatusRollbackPending
	b.engine.cancelUpdate(b)
	if b.slot != nil {
		b.slot.Disconnect(ctx)
	}
}

// Commit implements Binding. The component's host writes live in its slot,
// which commits as its own mutation effect; the block itself only settles
// its status.
func (b *componentBlock) Commit(ctx *CommitContext) {
	b.memoizedProps = b.pendingProps
	b.status = StatusIdle
}

// Rollback implements Binding. Effect cleanups run in reverse hook order
// (stack-unwind semantics), then the rendered subtree rolls back.
func (b *componentBlock) Rollback(ctx *CommitContext) {
	for i := len(b.hooks) - 1; i >= 0; i-- {
		h := b.hooks[i]
		if h.cleanup != nil {
			h.cleanup()
			h.cleanup = nil
		}
	}
	if b.slot != nil {
		b.slot.Commit(ctx)
	}
	b.status = StatusIdle
}

// IsUpdating implements Block.
func (b *componentBlock) IsUpdating() bool { return b.updating }

// Parent implements Block.
func (b *componentBlock) Parent() Block { return b.parent }

// ShouldUpdate implements Block: a block refuses to run while disconnected
// or while any ancestor block is mid-update, since the ancestor's re-render
// reconciles this block anyway.
func (b *componentBlock) ShouldUpdate() bool {
	if !b.connected {
		return false
	}
	for p := b.parent; p != nil; p = p.Parent() {
		if p.IsUpdating() {
			return false
		}
	}
	return true
}

// CancelUpdate implements Block.
func (b *componentBlock) CancelUpdate() {
	b.engine.cancelUpdate(b)
}

// Update implements Block: render the component against its hook array, then
// reconcile the rendered value into the block's slot. Render-time
// application errors propagate to the nearest boundary in the scope chain;
// protocol violations abort the flush.
func (b *componentBlock) Update(ctx *UpdateContext) error {
	if !b.connected {
		return nil
	}
	b.updating = true
	defer func() { b.updating = false }()

	result, pending, err := renderComponent(b, b.scope, ctx.lane, b.engine)
	if err != nil {
		if escaped := b.scope.catchError(err); escaped != nil {
			return escaped
		}
		return nil
	}
	if pending != LaneNone {
		// Writes in lanes this pass did not service reschedule the block.
		b.engine.scheduleUpdate(b, pending)
	}

	childCtx := &UpdateContext{engine: b.engine, scope: b.scope, lane: ctx.lane, block: b}
	if b.slot == nil {
		slot, err := ResolveSlot(result, b.part, childCtx)
		if err != nil {
			return err
		}
		b.slot = slot
		if err := slot.Connect(childCtx); err != nil {
			return err
		}
		b.engine.enqueueEffect(PhaseMutation, slot)
		return nil
	}

	dirty, err := b.slot.Reconcile(result, childCtx)
	if err != nil {
		return err
	}
	if dirty {
		b.engine.enqueueEffect(PhaseMutation, b.slot)
	}
	return nil
}

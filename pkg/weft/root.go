package weft

import "context"

// Root ties a top-level value, a container node, and a backend together.
// Each root owns one UpdateEngine; multiple roots schedule independently.
type Root struct {
	engine    *UpdateEngine
	container Node
	scope     *Scope
	slot      *Slot

	// initial holds the top-level value until Mount resolves the slot.
	initial any
	mounted bool
}

// NewRoot creates a root that renders value into container against backend.
func NewRoot(value any, container Node, backend Backend, opts ...EngineOption) *Root {
	return &Root{
		engine:    NewUpdateEngine(backend, opts...),
		container: container,
		scope:     NewScope(nil),
		initial:   value,
	}
}

// Engine returns the root's update engine.
func (r *Root) Engine() *UpdateEngine { return r.engine }

// Scope returns the root scope. Application code may register a top-level
// error boundary or contextual values on it before mounting.
func (r *Root) Scope() *Scope { return r.scope }

// Mount connects the root value into the container and synchronously flushes
// the initial render and commit.
func (r *Root) Mount() error {
	if err := r.connect(); err != nil {
		return err
	}
	return r.engine.FlushSync()
}

// MountAsync is Mount with cooperative yielding between batches and phases.
func (r *Root) MountAsync(ctx context.Context) error {
	if err := r.connect(); err != nil {
		return err
	}
	return r.engine.FlushAsync(ctx)
}

// Hydrate adopts an existing host tree instead of creating nodes: the
// backend's walk cursor is installed on the root scope and templates adopt
// nodes as they connect. The flush still runs so effects fire.
func (r *Root) Hydrate(cursor any) error {
	if r.mounted {
		return ErrRootMounted
	}
	r.scope.SetHydrationCursor(cursor)
	err := r.Mount()
	// Fragments created by later updates must render, not adopt.
	r.scope.SetHydrationCursor(nil)
	return err
}

func (r *Root) connect() error {
	if r.mounted {
		return ErrRootMounted
	}
	part := Part{Kind: PartChildNode, Node: r.container}
	ctx := r.updateContext()

	slot, err := ResolveSlot(r.initial, part, ctx)
	if err != nil {
		return err
	}
	if err := slot.Connect(ctx); err != nil {
		return err
	}
	r.slot = slot
	r.engine.enqueueEffect(PhaseMutation, slot)
	r.mounted = true
	return nil
}

// Update reconciles a new top-level value and synchronously flushes.
func (r *Root) Update(value any) error {
	if !r.mounted {
		return ErrRootUnmounted
	}
	dirty, err := r.slot.Reconcile(value, r.updateContext())
	if err != nil {
		return err
	}
	if dirty {
		r.engine.enqueueEffect(PhaseMutation, r.slot)
	}
	return r.engine.FlushSync()
}

// UpdateAsync is Update with cooperative yielding.
func (r *Root) UpdateAsync(ctx context.Context, value any) error {
	if !r.mounted {
		return ErrRootUnmounted
	}
	dirty, err := r.slot.Reconcile(value, r.updateContext())
	if err != nil {
		return err
	}
	if dirty {
		r.engine.enqueueEffect(PhaseMutation, r.slot)
	}
	return r.engine.FlushAsync(ctx)
}

// Unmount disconnects the root's binding tree and flushes the rollback. The
// host is restored to its pre-mount state; effect cleanups run in reverse
// order as part of the rollback.
func (r *Root) Unmount() error {
	if !r.mounted {
		return ErrRootUnmounted
	}
	r.slot.Disconnect(r.updateContext())
	r.engine.enqueueEffect(PhaseMutation, r.slot)
	r.mounted = false
	return r.engine.FlushSync()
}

func (r *Root) updateContext() *UpdateContext {
	return &UpdateContext{
		engine: r.engine,
		scope:  r.scope,
		lane:   r.engine.backend.GetCurrentLane(),
	}
}

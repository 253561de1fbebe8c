package weft

import "fmt"

// ComponentFunc is a component render function. It is executed once per
// render pass with a RenderContext whose hook accessors must be called
// unconditionally and in a fixed order.
type ComponentFunc func(rc *RenderContext) any

// RenderContext is the explicit resumable state for one render pass of one
// component instance: the hook cursor, the lane being serviced, the scope the
// component renders in, and the lanes its hooks deferred. There is no hidden
// global render state; hook accessors take the context explicitly.
type RenderContext struct {
	engine *UpdateEngine
	block  *componentBlock
	scope  *Scope

	// lane is the lane set serviced by this render pass.
	lane Lane

	// cursor is the position of the next hook call.
	cursor int

	// pendingLanes accumulates lanes whose writes were not serviced by this
	// pass and must be rescheduled.
	pendingLanes Lane
}

// Lane returns the lane set this render pass services.
func (rc *RenderContext) Lane() Lane { return rc.lane }

// Props returns the props the component was resolved with.
func (rc *RenderContext) Props() any { return rc.block.pendingProps }

// nextHook advances the hook cursor, appending a new slot on the first
// render or validating the existing slot's kind afterwards. Hook-count and
// hook-kind mismatches are deterministic programming errors and fail fast.
func (rc *RenderContext) nextHook(kind hookKind) *hookSlot {
	b := rc.block
	idx := rc.cursor

	if b.finalized {
		// The last slot is the Finalizer; user hooks may not reach it.
		if idx >= len(b.hooks)-1 {
			panic(protocolErrorf("hooks", nil, b.directive, nil,
				"hook #%d exceeds the %d hooks recorded on the first render of %s",
				idx+1, len(b.hooks)-1, b.name()))
		}
		h := b.hooks[idx]
		if h.kind != kind {
			panic(protocolErrorf("hooks", nil, b.directive, nil,
				"hook #%d of %s changed kind: expected %s, got %s",
				idx+1, b.name(), h.kind, kind))
		}
		rc.cursor++
		return h
	}

	h := &hookSlot{kind: kind}
	b.hooks = append(b.hooks, h)
	rc.cursor++
	return h
}

// finish seals the hook array after the first full render and verifies later
// renders consumed exactly the finalized hook count.
func (rc *RenderContext) finish() {
	b := rc.block
	if !b.finalized {
		b.hooks = append(b.hooks, &hookSlot{kind: hookFinalizer, initialized: true})
		b.finalized = true
		return
	}
	if rc.cursor != len(b.hooks)-1 {
		panic(protocolErrorf("hooks", nil, b.directive, nil,
			"%s used %d hooks, first render recorded %d",
			b.name(), rc.cursor, len(b.hooks)-1))
	}
}

// renderComponent executes one component function against its hook array for
// one render pass. The hook cursor is reset first; the raw value the
// component returns is not yet bound to parts. Panics inside the component
// are converted to errors: application errors for the boundary chain,
// protocol violations passed through untouched.
func renderComponent(block *componentBlock, scope *Scope, lane Lane, engine *UpdateEngine) (result any, pending Lane, err error) {
	rc := &RenderContext{
		engine: engine,
		block:  block,
		scope:  scope,
		lane:   lane,
	}

	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*ProtocolError); ok {
				err = pe
				return
			}
			err = &RenderError{Component: block.name(), Err: recoveredError(r)}
		}
	}()

	result = block.directive.fn(rc)
	rc.finish()
	return result, rc.pendingLanes, nil
}

// recoveredError normalizes a recovered panic value to an error.
func recoveredError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}

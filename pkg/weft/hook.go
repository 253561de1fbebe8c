package weft

import "strconv"

// hookKind identifies the kind of hook stored in a component's hook array.
// Hook identity is purely positional: the Nth hook call on one render must
// be the Nth hook call, of the same kind, on every later render.
type hookKind uint8

const (
	hookReducer hookKind = iota + 1
	hookMemo
	hookEffect
	hookLayoutEffect
	hookInsertionEffect
	hookIdentifier
	hookFinalizer
)

// String returns a human-readable name for the hook kind.
func (k hookKind) String() string {
	switch k {
	case hookReducer:
		return "Reducer"
	case hookMemo:
		return "Memo"
	case hookEffect:
		return "Effect"
	case hookLayoutEffect:
		return "LayoutEffect"
	case hookInsertionEffect:
		return "InsertionEffect"
	case hookIdentifier:
		return "Identifier"
	case hookFinalizer:
		return "Finalizer"
	default:
		return "Unknown"
	}
}

// Cleanup is a function returned by effects to release resources. It runs
// before the effect re-runs and when the component unmounts.
type Cleanup func()

// hookSlot is one entry in a component's hook array. Created on the first
// render, mutated in place on every later render.
type hookSlot struct {
	kind        hookKind
	initialized bool

	// Reducer state: the memoized value visible to renders, the pending
	// value awaiting its lane, and the lanes with outstanding writes.
	memoized   any
	pending    any
	hasPending bool
	lanes      Lane

	// Memo state.
	value any
	deps  []any

	// Effect state.
	fn      func() Cleanup
	cleanup Cleanup

	// Identifier state.
	id string
}

// invoke runs the effect callback, running the previous cleanup first.
func (h *hookSlot) invoke() {
	if h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
	if h.fn != nil {
		h.cleanup = h.fn()
	}
}

// DispatchOption configures a single dispatch call.
type DispatchOption func(*dispatchConfig)

type dispatchConfig struct {
	lane    Lane
	hasLane bool
}

// WithLane schedules the dispatched update in the given lane instead of the
// backend's current lane.
func WithLane(l Lane) DispatchOption {
	return func(c *dispatchConfig) {
		c.lane = l
		c.hasLane = true
	}
}

// Dispatch schedules a state transition for a reducer hook.
type Dispatch[A any] func(action A, opts ...DispatchOption)

// UseReducer returns the hook's memoized state and a dispatch function.
//
// Dispatch computes the next state eagerly. If the reducer returns a value
// identical to the current state, nothing is scheduled. Otherwise the value
// is stored as pending, the dispatch lane is OR'd into the hook's lane set,
// and the component is enqueued for update at that lane. The pending value
// becomes memoized on the render pass that services one of its lanes; lanes
// serviced by a different pass fold into the render's next-lanes result so
// the work is not lost.
func UseReducer[S, A any](rc *RenderContext, reducer func(S, A) S, initial S) (S, Dispatch[A]) {
	h := rc.nextHook(hookReducer)
	if !h.initialized {
		h.memoized = initial
		h.initialized = true
	}

	if h.hasPending {
		if h.lanes.Intersects(rc.lane) {
			h.memoized = h.pending
			h.pending = nil
			h.hasPending = false
			h.lanes = LaneNone
		} else {
			rc.pendingLanes = rc.pendingLanes.Union(h.lanes)
		}
	}

	block := rc.block
	engine := rc.engine
	dispatch := func(action A, opts ...DispatchOption) {
		var cfg dispatchConfig
		for _, opt := range opts {
			opt(&cfg)
		}
		lane := cfg.lane
		if !cfg.hasLane {
			lane = engine.backend.GetCurrentLane()
		}

		current := h.memoized
		if h.hasPending {
			current = h.pending
		}
		next := reducer(current.(S), action)
		if valueEqual(current, next) {
			// No-op transition, nothing to schedule.
			return
		}
		h.pending = next
		h.hasPending = true
		h.lanes = h.lanes.Union(lane)
		engine.scheduleUpdate(block, lane)
	}

	return h.memoized.(S), dispatch
}

// UseState is UseReducer with a replace-state reducer.
func UseState[T any](rc *RenderContext, initial T) (T, func(T)) {
	value, dispatch := UseReducer(rc, func(_, next T) T { return next }, initial)
	return value, func(next T) { dispatch(next) }
}

// UseMemo returns a value cached across renders, recomputing only when the
// dependency array changes by shallow element-wise identity. nil deps mean
// recompute every render; an empty slice means compute once.
func UseMemo[T any](rc *RenderContext, compute func() T, deps []any) T {
	h := rc.nextHook(hookMemo)
	if !h.initialized || deps == nil || !shallowEqual(h.deps, deps) {
		h.value = compute()
		h.deps = deps
		h.initialized = true
	}
	return h.value.(T)
}

// UseCallback memoizes fn itself: UseCallback(fn, deps) is
// UseMemo(func() { return fn }, deps).
func UseCallback[T any](rc *RenderContext, fn T, deps []any) T {
	return UseMemo(rc, func() T { return fn }, deps)
}

// UseEffect enqueues fn into the passive commit phase when deps changed
// since the previous render. The previous cleanup runs before fn.
func UseEffect(rc *RenderContext, fn func() Cleanup, deps []any) {
	useEffectHook(rc, hookEffect, PhasePassive, fn, deps)
}

// UseLayoutEffect enqueues fn into the layout phase, after all host
// mutations and before passive effects.
func UseLayoutEffect(rc *RenderContext, fn func() Cleanup, deps []any) {
	useEffectHook(rc, hookLayoutEffect, PhaseLayout, fn, deps)
}

// UseInsertionEffect enqueues fn into the mutation phase, alongside host
// tree writes.
func UseInsertionEffect(rc *RenderContext, fn func() Cleanup, deps []any) {
	useEffectHook(rc, hookInsertionEffect, PhaseMutation, fn, deps)
}

func useEffectHook(rc *RenderContext, kind hookKind, phase CommitPhase, fn func() Cleanup, deps []any) {
	h := rc.nextHook(kind)
	changed := !h.initialized || deps == nil || !shallowEqual(h.deps, deps)
	h.fn = fn
	h.deps = deps
	h.initialized = true
	if changed {
		rc.engine.enqueueEffect(phase, &effectCommit{hook: h, scope: rc.scope, component: rc.block.name()})
	}
}

// UseID returns an identifier that is stable for this hook position across
// renders of the component instance.
func UseID(rc *RenderContext) string {
	h := rc.nextHook(hookIdentifier)
	if !h.initialized {
		h.id = "weft-" + strconv.FormatUint(rc.engine.nextID(), 10)
		h.initialized = true
	}
	return h.id
}

// UseContextValue looks key up the component's scope chain;
// nearest-ancestor provider wins.
func UseContextValue(rc *RenderContext, key any) (any, bool) {
	return rc.scope.Value(key)
}

// ProvideContextValue binds key to value for this component's subtree. The
// binding is scoped to the render's position in the scope chain and does not
// leak to siblings.
func ProvideContextValue(rc *RenderContext, key, value any) {
	rc.scope.SetValue(key, value)
}

// UseErrorBoundary registers h as the error boundary for this component's
// subtree. Render-time application errors thrown below propagate to the
// nearest boundary; calling rethrow inside the handler delegates upward.
func UseErrorBoundary(rc *RenderContext, h ErrorHandler) {
	rc.scope.SetErrorHandler(h)
}

// effectCommit applies one effect hook during its commit phase. Panics in
// the callback are routed to the owning component's error boundary chain;
// errors that escape every boundary abort the flush.
type effectCommit struct {
	hook      *hookSlot
	scope     *Scope
	component string
}

// Commit implements CommitEffect.
func (e *effectCommit) Commit(ctx *CommitContext) {
	defer func() {
		if r := recover(); r != nil {
			err := &RenderError{Component: e.component, Err: recoveredError(r)}
			if escaped := e.scope.catchError(err); escaped != nil {
				ctx.recordError(escaped)
			}
		}
	}()
	e.hook.invoke()
}

package memhost

import (
	"context"
	"sync"
	"time"

	"github.com/weft-ui/weft/pkg/weft"
)

// BackendOption configures a Backend.
type BackendOption func(*Backend)

// WithFrameBudget sets the elapsed time after which an async flush is asked
// to yield. Zero (the default) never yields on time.
func WithFrameBudget(d time.Duration) BackendOption {
	return func(b *Backend) { b.frameBudget = d }
}

// Backend drives a weft engine against an in-memory Document. Callbacks are
// queued rather than run, so tests and servers control exactly when flushes
// happen via RunCallbacks.
type Backend struct {
	doc *Document

	mu          sync.Mutex
	currentLane weft.Lane
	queues      [3][]func()
	yields      int
	frameBudget time.Duration

	attr    *primitiveDirective
	prop    *primitiveDirective
	live    *primitiveDirective
	event   *primitiveDirective
	text    *primitiveDirective
	child   *primitiveDirective
	element *primitiveDirective
}

var (
	_ weft.Backend    = (*Backend)(nil)
	_ weft.ChildMover = (*Backend)(nil)
)

// New creates a backend over doc. The current lane starts at UserVisible.
func New(doc *Document, opts ...BackendOption) *Backend {
	b := &Backend{doc: doc, currentLane: weft.LaneUserVisible}
	b.attr = &primitiveDirective{backend: b, kind: weft.PartAttribute, name: "attr"}
	b.prop = &primitiveDirective{backend: b, kind: weft.PartProperty, name: "prop"}
	b.live = &primitiveDirective{backend: b, kind: weft.PartLive, name: "live"}
	b.event = &primitiveDirective{backend: b, kind: weft.PartEvent, name: "event"}
	b.text = &primitiveDirective{backend: b, kind: weft.PartText, name: "text"}
	b.child = &primitiveDirective{backend: b, kind: weft.PartChildNode, name: "child"}
	b.element = &primitiveDirective{backend: b, kind: weft.PartElement, name: "ref"}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Document returns the backend's document.
func (b *Backend) Document() *Document { return b.doc }

// CommitEffects implements weft.Backend: effects run in order with the
// document tagging logged writes with the phase.
func (b *Backend) CommitEffects(ctx *weft.CommitContext, effects []weft.CommitEffect, phase weft.CommitPhase) {
	b.doc.beginPhase(phase)
	defer b.doc.endPhase()
	for _, effect := range effects {
		effect.Commit(ctx)
	}
}

// GetCurrentLane implements weft.Backend.
func (b *Backend) GetCurrentLane() weft.Lane {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentLane
}

// SetCurrentLane overrides the ambient lane. Event dispatch and RunAt do
// this around handler invocation.
func (b *Backend) SetCurrentLane(lane weft.Lane) {
	b.mu.Lock()
	b.currentLane = lane
	b.mu.Unlock()
}

// RunAt invokes fn with the ambient lane set to lane, restoring the previous
// lane after. Use it to model timer ticks (background) or input handlers
// (user-blocking) outside of node event dispatch.
func (b *Backend) RunAt(lane weft.Lane, fn func()) {
	b.mu.Lock()
	prev := b.currentLane
	b.currentLane = lane
	b.mu.Unlock()
	defer b.SetCurrentLane(prev)
	fn()
}

// RequestCallback implements weft.Backend: fn is queued at the lane's
// priority until RunCallbacks drains it.
func (b *Backend) RequestCallback(fn func(), lane weft.Lane) {
	pri := lane.Priority()
	if pri < 0 {
		pri = 0
	}
	b.mu.Lock()
	b.queues[pri] = append(b.queues[pri], fn)
	b.mu.Unlock()
}

// PendingCallbacks reports how many queued callbacks are waiting.
func (b *Backend) PendingCallbacks() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues[0]) + len(b.queues[1]) + len(b.queues[2])
}

// RunCallbacks drains queued callbacks highest priority first, including any
// queued while draining, and returns how many ran.
func (b *Backend) RunCallbacks() int {
	ran := 0
	for {
		fn := b.popCallback()
		if fn == nil {
			return ran
		}
		fn()
		ran++
	}
}

func (b *Backend) popCallback() func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for pri := len(b.queues) - 1; pri >= 0; pri-- {
		if len(b.queues[pri]) > 0 {
			fn := b.queues[pri][0]
			b.queues[pri] = b.queues[pri][1:]
			return fn
		}
	}
	return nil
}

// YieldToMain implements weft.Backend. The in-memory host has no event loop
// to return to, so a yield just counts and honors cancellation.
func (b *Backend) YieldToMain(ctx context.Context) error {
	b.mu.Lock()
	b.yields++
	b.mu.Unlock()
	return ctx.Err()
}

// Yields reports how many times the engine yielded during async flushes.
func (b *Backend) Yields() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.yields
}

// ShouldYieldToMain implements weft.Backend.
func (b *Backend) ShouldYieldToMain(elapsed time.Duration) bool {
	return b.frameBudget > 0 && elapsed >= b.frameBudget
}

// ResolvePrimitive implements weft.Backend: one identity-stable directive per
// part kind, so strict slots resolve the same directive for the life of the
// backend.
func (b *Backend) ResolvePrimitive(value any, part weft.Part) weft.Directive {
	switch part.Kind {
	case weft.PartAttribute:
		return b.attr
	case weft.PartProperty:
		return b.prop
	case weft.PartLive:
		return b.live
	case weft.PartEvent:
		return b.event
	case weft.PartText:
		return b.text
	case weft.PartElement:
		return b.element
	default:
		return b.child
	}
}

// ResolveSlotKind implements weft.Backend: child positions swap content
// types freely, every other part is locked to its first directive.
func (b *Backend) ResolveSlotKind(value any, part weft.Part) weft.SlotKind {
	if part.Kind == weft.PartChildNode {
		return weft.SlotLoose
	}
	return weft.SlotStrict
}

// MoveChildren implements weft.ChildMover: attached nodes are repositioned
// with move writes instead of remove/insert pairs.
func (b *Backend) MoveChildren(parent weft.Node, nodes []weft.Node, before weft.Node) {
	p, ok := parent.(*Node)
	if !ok {
		return
	}
	var ref *Node
	if before != nil {
		ref, _ = before.(*Node)
	}
	for _, n := range nodes {
		if child, ok := n.(*Node); ok {
			p.moveBefore(child, ref)
		}
	}
}

// FireEvent dispatches an event on node with the ambient lane raised to
// user-blocking, then runs any callbacks the dispatch scheduled. It is how
// tests and the serve transport model user input.
func (b *Backend) FireEvent(node *Node, event string, data any) {
	b.RunAt(weft.LaneUserBlocking, func() {
		node.dispatch(Event{Type: event, Target: node, Data: data})
	})
	b.RunCallbacks()
}

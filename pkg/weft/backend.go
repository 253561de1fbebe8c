package weft

import (
	"context"
	"time"
)

// CommitPhase identifies one of the three ordered effect-application stages.
// Within a flush, every mutation effect commits before any layout effect,
// and every layout effect before any passive effect.
type CommitPhase uint8

const (
	PhaseMutation CommitPhase = iota // host tree writes, insertion effects
	PhaseLayout                      // layout effects, post-mutation reads
	PhasePassive                     // passive effects, subscriptions
)

// String returns the string representation of the CommitPhase.
func (p CommitPhase) String() string {
	switch p {
	case PhaseMutation:
		return "mutation"
	case PhaseLayout:
		return "layout"
	case PhasePassive:
		return "passive"
	default:
		return "unknown"
	}
}

// CommitEffect is a unit of committed work: a host mutation, an effect
// callback, or a rollback. Effects are collected during the render pass and
// applied by the Backend in phase order.
type CommitEffect interface {
	Commit(ctx *CommitContext)
}

// CommitFunc adapts a plain function to a CommitEffect.
type CommitFunc func(ctx *CommitContext)

// Commit implements CommitEffect.
func (f CommitFunc) Commit(ctx *CommitContext) { f(ctx) }

// Backend is the host collaborator the core renders against. The core never
// creates or mutates host nodes itself; it resolves primitives for literal
// values from the backend and hands it ordered effect lists to apply.
//
// Implementations are expected to be single-threaded with respect to one
// engine: RequestCallback delivers callbacks on the goroutine that drives
// the engine, never concurrently with a running flush.
type Backend interface {
	// CommitEffects applies one phase's effects in order.
	CommitEffects(ctx *CommitContext, effects []CommitEffect, phase CommitPhase)

	// GetCurrentLane reports the lane that work scheduled "now" should run
	// in. Event handlers typically run at LaneUserBlocking; timers at
	// LaneBackground.
	GetCurrentLane() Lane

	// RequestCallback schedules fn to run on the engine's goroutine at the
	// given lane's priority.
	RequestCallback(fn func(), lane Lane)

	// YieldToMain suspends cooperative work so the host can service input.
	// Returns when the engine may resume, or with ctx's error if cancelled.
	YieldToMain(ctx context.Context) error

	// ShouldYieldToMain reports whether a flush that has been running for
	// elapsed time should yield before processing the next batch.
	ShouldYieldToMain(elapsed time.Duration) bool

	// ResolvePrimitive returns the directive that binds a literal value at
	// the given part (e.g. a string at an Attribute part). The returned
	// directive must be identity-stable for a given (value kind, part kind)
	// so strict slots keep resolving to the same directive type.
	ResolvePrimitive(value any, part Part) Directive

	// ResolveSlotKind decides whether a slot created for value at part is
	// strict or loose.
	ResolveSlotKind(value any, part Part) SlotKind
}

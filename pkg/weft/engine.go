package weft

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Block is a schedulable unit of re-render work, typically one component
// instance. Blocks move Idle → Updating → Idle; a queued block's priority can
// be escalated in place while it waits.
type Block interface {
	// Update renders or rebinds the block, collecting commit effects into
	// the engine's phase queues.
	Update(ctx *UpdateContext) error

	// ShouldUpdate reports whether the block should run now. A block
	// refuses while disconnected or while an ancestor is mid-update.
	ShouldUpdate() bool

	// CancelUpdate clears any queued update without running it.
	CancelUpdate()

	// IsUpdating reports whether the block is mid-update.
	IsUpdating() bool

	// Parent returns the enclosing block, or nil at the root.
	Parent() Block
}

// UpdateContext carries the state of one render pass: the engine, the scope
// new bindings resolve in, the lane set being serviced, and the block whose
// update is running (the parent of any binding resolved during it).
type UpdateContext struct {
	engine *UpdateEngine
	scope  *Scope
	lane   Lane
	block  Block
}

// Engine returns the engine driving this pass.
func (c *UpdateContext) Engine() *UpdateEngine { return c.engine }

// Scope returns the scope new bindings resolve in.
func (c *UpdateContext) Scope() *Scope { return c.scope }

// Lane returns the lane set this pass services.
func (c *UpdateContext) Lane() Lane { return c.lane }

// CommitContext carries the state of one commit phase.
type CommitContext struct {
	engine *UpdateEngine
	phase  CommitPhase
	err    error
}

// Phase returns the commit phase being applied.
func (c *CommitContext) Phase() CommitPhase { return c.phase }

// Engine returns the engine driving this commit.
func (c *CommitContext) Engine() *UpdateEngine { return c.engine }

// recordError captures the first error that escaped every boundary during
// this phase. Later effects in the phase still run; the flush returns the
// error afterwards, leaving the host in whatever state the completed phases
// produced.
func (c *CommitContext) recordError(err error) {
	if c.err == nil {
		c.err = err
	}
}

// Observer receives scheduling telemetry. Implementations must be cheap;
// they run inline with the flush.
type Observer interface {
	// ObserveRender is called after each block update.
	ObserveRender(component string, lane Lane, d time.Duration)

	// ObserveCommit is called after each commit phase with the number of
	// effects applied.
	ObserveCommit(phase CommitPhase, effects int)

	// ObserveFlush is called when a flush drains completely.
	ObserveFlush(d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveRender(string, Lane, time.Duration) {}
func (nopObserver) ObserveCommit(CommitPhase, int)            {}
func (nopObserver) ObserveFlush(time.Duration)                {}

// queuedBlock is one pending entry in the block queue.
type queuedBlock struct {
	block Block
	lanes Lane
}

// EngineOption configures an UpdateEngine.
type EngineOption func(*UpdateEngine)

// WithLogger sets the engine's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *UpdateEngine) {
		e.logger = logger
	}
}

// WithObserver attaches a telemetry observer to the engine.
func WithObserver(o Observer) EngineOption {
	return func(e *UpdateEngine) {
		e.observer = o
	}
}

// UpdateEngine owns the render→commit pipeline for one root: the dirty-block
// queue, the three effect phase queues, and the flush drivers. One engine
// per root instance; it is never a process-wide singleton, so independent
// roots schedule independently.
//
// The engine is single-threaded and cooperative: renders and commits
// interleave with host input only at explicit yield points, never in
// parallel. The hook arrays, scope chain, and effect queues are owned
// exclusively by the engine's goroutine; cross-goroutine writes must arrive
// through Backend.RequestCallback.
type UpdateEngine struct {
	backend  Backend
	logger   *slog.Logger
	observer Observer

	mu     sync.Mutex
	queue  []*queuedBlock
	queued map[Block]*queuedBlock

	// deferred holds blocks scheduled re-entrantly during a commit; they
	// run in the next flush pass, never by recursing into the current one.
	deferred []*queuedBlock

	flushing bool
	inCommit bool

	mutationEffects []CommitEffect
	layoutEffects   []CommitEffect
	passiveEffects  []CommitEffect

	flushRequested atomic.Bool
	idCounter      atomic.Uint64
}

// NewUpdateEngine creates an engine rendering against backend.
func NewUpdateEngine(backend Backend, opts ...EngineOption) *UpdateEngine {
	e := &UpdateEngine{
		backend:  backend,
		logger:   slog.Default(),
		observer: nopObserver{},
		queued:   make(map[Block]*queuedBlock),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Backend returns the engine's host backend.
func (e *UpdateEngine) Backend() Backend { return e.backend }

// Logger returns the engine's logger.
func (e *UpdateEngine) Logger() *slog.Logger { return e.logger }

// nextID returns a monotonically increasing identifier, used for stable hook
// identifiers.
func (e *UpdateEngine) nextID() uint64 {
	return e.idCounter.Add(1)
}

// debugf emits a scheduling diagnostic when DebugMode is set.
func (e *UpdateEngine) debugf(msg string, args ...any) {
	if DebugMode {
		e.logger.Debug(msg, args...)
	}
}

// blockName names a block for diagnostics.
func blockName(b Block) string {
	if cb, ok := b.(*componentBlock); ok {
		return cb.name()
	}
	return "block"
}

// scheduleUpdate enqueues block at the given lanes. If the block is already
// queued, its lanes are raised in place rather than double-queuing. During a
// commit the entry is deferred to the next flush pass.
func (e *UpdateEngine) scheduleUpdate(block Block, lanes Lane) {
	if lanes == LaneNone {
		lanes = e.backend.GetCurrentLane()
	}

	e.mu.Lock()
	if e.inCommit {
		escalated := false
		for _, qb := range e.deferred {
			if qb.block == block {
				qb.lanes = qb.lanes.Union(lanes)
				escalated = true
				break
			}
		}
		if !escalated {
			e.deferred = append(e.deferred, &queuedBlock{block: block, lanes: lanes})
		}
		e.mu.Unlock()
		e.debugf("update deferred to next pass", "block", blockName(block), "lanes", lanes)
		return
	}

	if qb, ok := e.queued[block]; ok {
		qb.lanes = qb.lanes.Union(lanes)
		merged := qb.lanes
		e.mu.Unlock()
		e.debugf("queued update escalated in place", "block", blockName(block), "lanes", merged)
		return
	}
	qb := &queuedBlock{block: block, lanes: lanes}
	e.queue = append(e.queue, qb)
	e.queued[block] = qb
	flushing := e.flushing
	e.mu.Unlock()

	e.debugf("update queued", "block", blockName(block), "lanes", lanes)
	if !flushing {
		e.requestFlush(lanes)
	}
}

// cancelUpdate removes any queued update for block without running it. Used
// when a block disconnects before its scheduled update executes.
func (e *UpdateEngine) cancelUpdate(block Block) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.queued[block]; ok {
		delete(e.queued, block)
		for i, qb := range e.queue {
			if qb.block == block {
				e.queue = append(e.queue[:i], e.queue[i+1:]...)
				break
			}
		}
	}
	for i, qb := range e.deferred {
		if qb.block == block {
			e.deferred = append(e.deferred[:i], e.deferred[i+1:]...)
			break
		}
	}
}

// requestFlush asks the backend to run an async flush on the engine
// goroutine. Collapses repeated requests into one callback.
func (e *UpdateEngine) requestFlush(lanes Lane) {
	if !e.flushRequested.CompareAndSwap(false, true) {
		return
	}
	e.backend.RequestCallback(func() {
		e.flushRequested.Store(false)
		if err := e.FlushSync(); err != nil {
			e.logger.Error("flush failed", "error", err)
		}
	}, lanes)
}

// enqueueEffect appends an effect to the queue for its commit phase.
func (e *UpdateEngine) enqueueEffect(phase CommitPhase, effect CommitEffect) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch phase {
	case PhaseMutation:
		e.mutationEffects = append(e.mutationEffects, effect)
	case PhaseLayout:
		e.layoutEffects = append(e.layoutEffects, effect)
	case PhasePassive:
		e.passiveEffects = append(e.passiveEffects, effect)
	}
}

// HasPendingWork reports whether any block or effect is waiting.
func (e *UpdateEngine) HasPendingWork() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue) > 0 || len(e.deferred) > 0 ||
		len(e.mutationEffects) > 0 || len(e.layoutEffects) > 0 || len(e.passiveEffects) > 0
}

// dequeueHighest removes and returns the queued block with the highest
// priority, preserving enqueue order among equals. Returns nil when empty.
func (e *UpdateEngine) dequeueHighest() *queuedBlock {
	e.mu.Lock()
	defer e.mu.Unlock()

	best := -1
	bestPriority := -2
	for i, qb := range e.queue {
		if p := qb.lanes.Priority(); p > bestPriority {
			best, bestPriority = i, p
		}
	}
	if best < 0 {
		return nil
	}
	qb := e.queue[best]
	e.queue = append(e.queue[:best], e.queue[best+1:]...)
	delete(e.queued, qb.block)
	return qb
}

// FlushSync drains the block queue and commits all three effect phases
// without yielding. Returns the first error that escaped every boundary.
func (e *UpdateEngine) FlushSync() error {
	return e.flush(context.Background(), false)
}

// FlushAsync drains the block queue cooperatively: between block batches and
// between the layout and passive phases it consults the backend's frame
// budget and yields to the host when asked. Mutation effects always commit
// synchronously.
func (e *UpdateEngine) FlushAsync(ctx context.Context) error {
	return e.flush(ctx, true)
}

func (e *UpdateEngine) flush(ctx context.Context, async bool) error {
	e.mu.Lock()
	if e.flushing {
		e.mu.Unlock()
		return ErrFlushInProgress
	}
	e.flushing = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.flushing = false
		e.mu.Unlock()
	}()

	start := time.Now()
	for {
		// Render passes: run until no block remains at any priority.
		for {
			qb := e.dequeueHighest()
			if qb == nil {
				break
			}
			if !qb.block.ShouldUpdate() {
				continue
			}

			uctx := &UpdateContext{engine: e, lane: qb.lanes, block: qb.block.Parent()}
			renderStart := time.Now()
			err := qb.block.Update(uctx)
			if cb, ok := qb.block.(*componentBlock); ok {
				e.observer.ObserveRender(cb.name(), qb.lanes, time.Since(renderStart))
			}
			if err != nil {
				return err
			}

			if async && e.backend.ShouldYieldToMain(time.Since(start)) {
				if err := e.backend.YieldToMain(ctx); err != nil {
					return err
				}
			}
		}

		if err := e.commitPhases(ctx, async); err != nil {
			return err
		}

		// Re-entrant updates scheduled during the commit run as a fresh
		// pass; if none arrived, the flush is complete.
		e.mu.Lock()
		if len(e.deferred) == 0 && len(e.queue) == 0 {
			e.mu.Unlock()
			e.observer.ObserveFlush(time.Since(start))
			return nil
		}
		for _, qb := range e.deferred {
			if existing, ok := e.queued[qb.block]; ok {
				existing.lanes = existing.lanes.Union(qb.lanes)
				continue
			}
			e.queue = append(e.queue, qb)
			e.queued[qb.block] = qb
		}
		e.deferred = nil
		e.mu.Unlock()
	}
}

// commitPhases applies the three effect queues strictly in Mutation → Layout
// → Passive order across the whole batch. Mutation is always synchronous;
// async flushes may yield between the later phases.
func (e *UpdateEngine) commitPhases(ctx context.Context, async bool) error {
	e.mu.Lock()
	e.inCommit = true
	mutation := e.mutationEffects
	layout := e.layoutEffects
	passive := e.passiveEffects
	e.mutationEffects = nil
	e.layoutEffects = nil
	e.passiveEffects = nil
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.inCommit = false
		e.mu.Unlock()
	}()

	commit := func(effects []CommitEffect, phase CommitPhase) error {
		if len(effects) == 0 {
			return nil
		}
		cctx := &CommitContext{engine: e, phase: phase}
		e.backend.CommitEffects(cctx, effects, phase)
		e.observer.ObserveCommit(phase, len(effects))
		return cctx.err
	}

	if err := commit(mutation, PhaseMutation); err != nil {
		return err
	}
	if async && len(layout)+len(passive) > 0 {
		if err := e.backend.YieldToMain(ctx); err != nil {
			return err
		}
	}
	if err := commit(layout, PhaseLayout); err != nil {
		return err
	}
	if async && len(passive) > 0 {
		if err := e.backend.YieldToMain(ctx); err != nil {
			return err
		}
	}
	return commit(passive, PhasePassive)
}

package weft_test

import (
	"sync"
	"testing"
	"time"

	"github.com/weft-ui/weft/pkg/memhost"
	"github.com/weft-ui/weft/pkg/weft"
)

// recordingObserver captures scheduling telemetry for assertions.
type recordingObserver struct {
	mu      sync.Mutex
	renders []renderRecord
	commits []commitRecord
	flushes int
}

type renderRecord struct {
	component string
	lane      weft.Lane
}

type commitRecord struct {
	phase   weft.CommitPhase
	effects int
}

func (o *recordingObserver) ObserveRender(component string, lane weft.Lane, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.renders = append(o.renders, renderRecord{component, lane})
}

func (o *recordingObserver) ObserveCommit(phase weft.CommitPhase, effects int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.commits = append(o.commits, commitRecord{phase, effects})
}

func (o *recordingObserver) ObserveFlush(time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.flushes++
}

func (o *recordingObserver) renderCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.renders)
}

var labelTemplate = &memhost.Template{Tag: "span", ChildHoles: 1}

func TestComponentRendersIntoHost(t *testing.T) {
	greet := func(rc *weft.RenderContext) any {
		name, _ := rc.Props().(string)
		return labelTemplate.Bind("hello " + name)
	}

	doc, backend := newHost()
	root := weft.NewRoot(weft.Component(greet, "world"), doc.Body(), backend)
	if err := root.Mount(); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	span := doc.Body().Query("span")
	if span == nil {
		t.Fatalf("span not mounted: %s", doc.Body().Render())
	}
	if got := span.Render(); got != `<span>hello world<!--hole--></span>` {
		t.Errorf("unexpected render: %s", got)
	}
}

func TestDispatchCoalescesIntoOneRender(t *testing.T) {
	obs := &recordingObserver{}

	var bump func()
	counter := func(rc *weft.RenderContext) any {
		count, setCount := weft.UseState(rc, 0)
		bump = func() { setCount(count + 1) }
		return labelTemplate.Bind(count)
	}

	doc, backend := newHost()
	root := weft.NewRoot(weft.Component(counter, nil), doc.Body(), backend, weft.WithObserver(obs))
	if err := root.Mount(); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	mountRenders := obs.renderCount()

	// Three dispatches before any flush: the closure captures count from the
	// last committed render each time, so the eager reducer chains through the
	// pending value only when bump is refreshed. Dispatch them in one batch.
	bump()
	bump() // no-op: same captured count, same eager result
	bump()
	if n := backend.RunCallbacks(); n != 1 {
		t.Fatalf("expected 1 coalesced flush callback, got %d", n)
	}

	if got := obs.renderCount() - mountRenders; got != 1 {
		t.Errorf("expected 1 render for coalesced dispatches, got %d", got)
	}
	span := doc.Body().Query("span")
	if got := span.Children()[0].Text; got != "1" {
		t.Errorf("expected count 1, got %q", got)
	}
}

func TestReducerDispatchesChainBeforeFlush(t *testing.T) {
	obs := &recordingObserver{}

	var add weft.Dispatch[int]
	counter := func(rc *weft.RenderContext) any {
		count, dispatch := weft.UseReducer(rc, func(s, a int) int { return s + a }, 0)
		add = dispatch
		return labelTemplate.Bind(count)
	}

	doc, backend := newHost()
	root := weft.NewRoot(weft.Component(counter, nil), doc.Body(), backend, weft.WithObserver(obs))
	if err := root.Mount(); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	mountRenders := obs.renderCount()

	// Unlike the closure form, the dispatch function reduces against the
	// pending value, so synchronous dispatches chain: 0 → 1 → 2 → 3 with no
	// render in between.
	add(1, weft.WithLane(weft.LaneUserBlocking))
	add(1, weft.WithLane(weft.LaneUserBlocking))
	add(1, weft.WithLane(weft.LaneUserBlocking))
	if n := backend.RunCallbacks(); n != 1 {
		t.Fatalf("expected 1 coalesced flush callback, got %d", n)
	}

	if got := obs.renderCount() - mountRenders; got != 1 {
		t.Errorf("expected 1 render for chained dispatches, got %d", got)
	}
	obs.mu.Lock()
	last := obs.renders[len(obs.renders)-1]
	obs.mu.Unlock()
	if !last.lane.Has(weft.LaneUserBlocking) {
		t.Errorf("expected the render to service the user-blocking lane, got %v", last.lane)
	}
	span := doc.Body().Query("span")
	if got := span.Children()[0].Text; got != "3" {
		t.Errorf("expected count 3 after chained dispatches, got %q", got)
	}
}

type badgeProps struct {
	Label string
}

func TestPropsChangeToNilRebinds(t *testing.T) {
	badge := func(rc *weft.RenderContext) any {
		if p, ok := rc.Props().(badgeProps); ok {
			return labelTemplate.Bind(p.Label)
		}
		return labelTemplate.Bind("empty")
	}

	doc, backend := newHost()
	root := weft.NewRoot(weft.Component(badge, badgeProps{Label: "new"}), doc.Body(), backend)
	if err := root.Mount(); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	if err := root.Update(weft.Component(badge, nil)); err != nil {
		t.Fatalf("update with nil props failed: %v", err)
	}
	span := doc.Body().Query("span")
	if got := span.Children()[0].Text; got != "empty" {
		t.Errorf("expected nil props to render empty, got %q", got)
	}

	if err := root.Update(weft.Component(badge, badgeProps{Label: "back"})); err != nil {
		t.Fatalf("update back to struct props failed: %v", err)
	}
	if got := span.Children()[0].Text; got != "back" {
		t.Errorf("expected struct props to render again, got %q", got)
	}
}

func TestSequentialDispatchesAccumulate(t *testing.T) {
	var bump func()
	counter := func(rc *weft.RenderContext) any {
		count, setCount := weft.UseState(rc, 0)
		bump = func() { setCount(count + 1) }
		return labelTemplate.Bind(count)
	}

	doc, backend := newHost()
	root := weft.NewRoot(weft.Component(counter, nil), doc.Body(), backend)
	if err := root.Mount(); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		bump()
		backend.RunCallbacks()
	}

	span := doc.Body().Query("span")
	if got := span.Children()[0].Text; got != "3" {
		t.Errorf("expected count 3 after three flushed dispatches, got %q", got)
	}
}

func TestChildSkippedOnIdenticalProps(t *testing.T) {
	obs := &recordingObserver{}

	child := func(rc *weft.RenderContext) any {
		label, _ := rc.Props().(string)
		return labelTemplate.Bind(label)
	}

	var bump func()
	parentTemplate := &memhost.Template{Tag: "div", ChildHoles: 1}
	parent := func(rc *weft.RenderContext) any {
		count, setCount := weft.UseState(rc, 0)
		bump = func() { setCount(count + 1) }
		_ = count
		return parentTemplate.Bind(weft.Component(child, "static"))
	}

	doc, backend := newHost()
	root := weft.NewRoot(weft.Component(parent, nil), doc.Body(), backend, weft.WithObserver(obs))
	if err := root.Mount(); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	before := obs.renderCount()

	bump()
	backend.RunCallbacks()

	// Only the parent re-rendered: the child's props are identical, so its
	// binding reports ShouldBind false and the child block never enqueues.
	if got := obs.renderCount() - before; got != 1 {
		t.Errorf("expected only the parent to re-render, got %d renders", got)
	}
}

func TestEffectDispatchDefersToNextPass(t *testing.T) {
	obs := &recordingObserver{}

	status := func(rc *weft.RenderContext) any {
		ready, setReady := weft.UseState(rc, false)
		weft.UseEffect(rc, func() weft.Cleanup {
			setReady(true)
			return nil
		}, []any{})
		if ready {
			return labelTemplate.Bind("ready")
		}
		return labelTemplate.Bind("loading")
	}

	doc, backend := newHost()
	root := weft.NewRoot(weft.Component(status, nil), doc.Body(), backend, weft.WithObserver(obs))
	if err := root.Mount(); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	// The dispatch during the passive phase must not recurse into the running
	// flush; it runs as a second pass of the same flush, so Mount returns with
	// the updated content already committed.
	span := doc.Body().Query("span")
	if got := span.Children()[0].Text; got != "ready" {
		t.Errorf("expected effect-driven update before Mount returned, got %q", got)
	}
	if got := obs.renderCount(); got != 2 {
		t.Errorf("expected 2 renders (initial + deferred pass), got %d", got)
	}
}

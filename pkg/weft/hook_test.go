package weft_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/weft-ui/weft/pkg/memhost"
	"github.com/weft-ui/weft/pkg/weft"
)

func TestUseMemoRecomputesOnDepsChange(t *testing.T) {
	computes := 0
	var bump func()
	var setDep func(int)

	comp := func(rc *weft.RenderContext) any {
		dep, set := weft.UseState(rc, 0)
		tick, setTick := weft.UseState(rc, 0)
		setDep = set
		bump = func() { setTick(tick + 1) }

		derived := weft.UseMemo(rc, func() int {
			computes++
			return dep * 2
		}, []any{dep})
		return labelTemplate.Bind(derived)
	}

	doc, backend := newHost()
	root := weft.NewRoot(weft.Component(comp, nil), doc.Body(), backend)
	if err := root.Mount(); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	if computes != 1 {
		t.Fatalf("expected 1 compute on mount, got %d", computes)
	}

	// A render whose deps are unchanged reuses the cached value.
	bump()
	backend.RunCallbacks()
	if computes != 1 {
		t.Errorf("expected cached value on unrelated update, got %d computes", computes)
	}

	setDep(21)
	backend.RunCallbacks()
	if computes != 2 {
		t.Errorf("expected recompute on deps change, got %d computes", computes)
	}
	if got := doc.Body().Query("span").Children()[0].Text; got != "42" {
		t.Errorf("expected derived value 42, got %q", got)
	}
}

func TestUseMemoNilDepsRecomputesEveryRender(t *testing.T) {
	computes := 0
	var bump func()

	comp := func(rc *weft.RenderContext) any {
		tick, setTick := weft.UseState(rc, 0)
		bump = func() { setTick(tick + 1) }
		weft.UseMemo(rc, func() int {
			computes++
			return tick
		}, nil)
		return labelTemplate.Bind(tick)
	}

	doc, backend := newHost()
	root := weft.NewRoot(weft.Component(comp, nil), doc.Body(), backend)
	if err := root.Mount(); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	bump()
	backend.RunCallbacks()
	if computes != 2 {
		t.Errorf("expected recompute on every render with nil deps, got %d", computes)
	}
}

func TestUseMemoDepsWithNilElement(t *testing.T) {
	type box struct{ n int }
	computes := 0
	var setDep func(any)

	comp := func(rc *weft.RenderContext) any {
		dep, set := weft.UseState(rc, any(box{1}))
		setDep = set
		weft.UseMemo(rc, func() int {
			computes++
			return 0
		}, []any{dep})
		return labelTemplate.Bind("x")
	}

	doc, backend := newHost()
	root := weft.NewRoot(weft.Component(comp, nil), doc.Body(), backend)
	if err := root.Mount(); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	// A nil element compared against a struct element must read as a deps
	// change, never as an error.
	setDep(nil)
	backend.RunCallbacks()
	if computes != 2 {
		t.Errorf("expected recompute when a deps element becomes nil, got %d", computes)
	}

	setDep(box{2})
	backend.RunCallbacks()
	if computes != 3 {
		t.Errorf("expected recompute when the element returns to a struct, got %d", computes)
	}
}

func TestEffectPhaseOrdering(t *testing.T) {
	var order []string

	comp := func(rc *weft.RenderContext) any {
		weft.UseEffect(rc, func() weft.Cleanup {
			order = append(order, "passive")
			return nil
		}, []any{})
		weft.UseLayoutEffect(rc, func() weft.Cleanup {
			order = append(order, "layout")
			return nil
		}, []any{})
		weft.UseInsertionEffect(rc, func() weft.Cleanup {
			order = append(order, "insertion")
			return nil
		}, []any{})
		return labelTemplate.Bind("x")
	}

	doc, backend := newHost()
	root := weft.NewRoot(weft.Component(comp, nil), doc.Body(), backend)
	if err := root.Mount(); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	want := []string{"insertion", "layout", "passive"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected phase order %v, got %v", want, order)
		}
	}
}

func TestEffectCleanupRunsBeforeRerunAndOnUnmount(t *testing.T) {
	var events []string
	var setDep func(int)

	comp := func(rc *weft.RenderContext) any {
		dep, set := weft.UseState(rc, 0)
		setDep = set
		weft.UseEffect(rc, func() weft.Cleanup {
			events = append(events, "run a")
			return func() { events = append(events, "clean a") }
		}, []any{dep})
		weft.UseEffect(rc, func() weft.Cleanup {
			events = append(events, "run b")
			return func() { events = append(events, "clean b") }
		}, []any{})
		return labelTemplate.Bind(dep)
	}

	doc, backend := newHost()
	root := weft.NewRoot(weft.Component(comp, nil), doc.Body(), backend)
	if err := root.Mount(); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	setDep(1)
	backend.RunCallbacks()

	if err := root.Unmount(); err != nil {
		t.Fatalf("unmount failed: %v", err)
	}

	// Mount runs both effects; the deps change re-runs only a, cleaning its
	// previous instance first; unmount cleans up in reverse hook order.
	want := []string{"run a", "run b", "clean a", "run a", "clean b", "clean a"}
	if len(events) != len(want) {
		t.Fatalf("expected %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, events)
		}
	}
}

func TestUseIDStableAcrossRenders(t *testing.T) {
	var ids []string
	var bump func()

	comp := func(rc *weft.RenderContext) any {
		tick, setTick := weft.UseState(rc, 0)
		bump = func() { setTick(tick + 1) }
		ids = append(ids, weft.UseID(rc))
		return labelTemplate.Bind(tick)
	}

	doc, backend := newHost()
	root := weft.NewRoot(weft.Component(comp, nil), doc.Body(), backend)
	if err := root.Mount(); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	bump()
	backend.RunCallbacks()

	if len(ids) != 2 {
		t.Fatalf("expected 2 renders, got %d", len(ids))
	}
	if ids[0] != ids[1] {
		t.Errorf("identifier changed across renders: %q vs %q", ids[0], ids[1])
	}
	if !strings.HasPrefix(ids[0], "weft-") {
		t.Errorf("unexpected identifier format: %q", ids[0])
	}
}

type themeKey struct{}

func TestContextValueNearestProviderWins(t *testing.T) {
	var innerTheme, outerTheme string

	leaf := func(rc *weft.RenderContext) any {
		v, _ := weft.UseContextValue(rc, themeKey{})
		innerTheme, _ = v.(string)
		return labelTemplate.Bind("leaf")
	}

	midTemplate := &memhost.Template{Tag: "div", ChildHoles: 1}
	mid := func(rc *weft.RenderContext) any {
		weft.ProvideContextValue(rc, themeKey{}, "dark")
		return midTemplate.Bind(weft.Component(leaf, nil))
	}

	sibling := func(rc *weft.RenderContext) any {
		v, ok := weft.UseContextValue(rc, themeKey{})
		if ok {
			outerTheme, _ = v.(string)
		}
		return labelTemplate.Bind("sibling")
	}

	rootTemplate := &memhost.Template{Tag: "main", ChildHoles: 2}
	app := func(rc *weft.RenderContext) any {
		weft.ProvideContextValue(rc, themeKey{}, "light")
		return rootTemplate.Bind(weft.Component(mid, nil), weft.Component(sibling, nil))
	}

	doc, backend := newHost()
	root := weft.NewRoot(weft.Component(app, nil), doc.Body(), backend)
	if err := root.Mount(); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	if innerTheme != "dark" {
		t.Errorf("leaf under mid: expected dark, got %q", innerTheme)
	}
	if outerTheme != "light" {
		t.Errorf("sibling: expected light from app provider, got %q", outerTheme)
	}
}

func TestErrorBoundaryCatchesRenderPanic(t *testing.T) {
	errBoom := errors.New("boom")
	var caught error

	broken := func(rc *weft.RenderContext) any {
		panic(errBoom)
	}

	boundaryTemplate := &memhost.Template{Tag: "div", ChildHoles: 1}
	boundary := func(rc *weft.RenderContext) any {
		weft.UseErrorBoundary(rc, func(err error, rethrow func()) {
			caught = err
		})
		return boundaryTemplate.Bind(weft.Component(broken, nil))
	}

	doc, backend := newHost()
	root := weft.NewRoot(weft.Component(boundary, nil), doc.Body(), backend)
	if err := root.Mount(); err != nil {
		t.Fatalf("expected boundary to absorb the error, got %v", err)
	}
	if !errors.Is(caught, errBoom) {
		t.Errorf("boundary received %v, want %v", caught, errBoom)
	}
}

func TestErrorBoundaryRethrowDelegatesUpward(t *testing.T) {
	errBoom := errors.New("boom")
	var innerSaw, outerSaw bool

	broken := func(rc *weft.RenderContext) any {
		panic(errBoom)
	}

	innerTemplate := &memhost.Template{Tag: "div", ChildHoles: 1}
	inner := func(rc *weft.RenderContext) any {
		weft.UseErrorBoundary(rc, func(err error, rethrow func()) {
			innerSaw = true
			rethrow()
		})
		return innerTemplate.Bind(weft.Component(broken, nil))
	}

	outerTemplate := &memhost.Template{Tag: "section", ChildHoles: 1}
	outer := func(rc *weft.RenderContext) any {
		weft.UseErrorBoundary(rc, func(err error, rethrow func()) {
			outerSaw = true
		})
		return outerTemplate.Bind(weft.Component(inner, nil))
	}

	doc, backend := newHost()
	root := weft.NewRoot(weft.Component(outer, nil), doc.Body(), backend)
	if err := root.Mount(); err != nil {
		t.Fatalf("expected outer boundary to absorb the error, got %v", err)
	}
	if !innerSaw {
		t.Error("inner boundary never saw the error")
	}
	if !outerSaw {
		t.Error("rethrown error never reached the outer boundary")
	}
}

func TestErrorBoundaryCatchesEffectPanic(t *testing.T) {
	errBoom := errors.New("boom")
	var caught error

	broken := func(rc *weft.RenderContext) any {
		weft.UseEffect(rc, func() weft.Cleanup {
			panic(errBoom)
		}, []any{})
		return labelTemplate.Bind("x")
	}

	boundaryTemplate := &memhost.Template{Tag: "div", ChildHoles: 1}
	boundary := func(rc *weft.RenderContext) any {
		weft.UseErrorBoundary(rc, func(err error, rethrow func()) {
			caught = err
		})
		return boundaryTemplate.Bind(weft.Component(broken, nil))
	}

	doc, backend := newHost()
	root := weft.NewRoot(weft.Component(boundary, nil), doc.Body(), backend)
	if err := root.Mount(); err != nil {
		t.Fatalf("expected boundary to absorb the effect panic, got %v", err)
	}
	if !errors.Is(caught, errBoom) {
		t.Errorf("boundary received %v, want %v", caught, errBoom)
	}
	var re *weft.RenderError
	if !errors.As(caught, &re) {
		t.Errorf("expected a RenderError at the boundary, got %T", caught)
	}
}

func TestEffectPanicWithoutBoundaryFailsFlush(t *testing.T) {
	errBoom := errors.New("boom")
	broken := func(rc *weft.RenderContext) any {
		weft.UseEffect(rc, func() weft.Cleanup {
			panic(errBoom)
		}, []any{})
		return labelTemplate.Bind("x")
	}

	doc, backend := newHost()
	root := weft.NewRoot(weft.Component(broken, nil), doc.Body(), backend)
	err := root.Mount()
	if err == nil {
		t.Fatal("expected mount to fail when no boundary absorbs the effect panic")
	}
	if !errors.Is(err, errBoom) {
		t.Errorf("expected wrapped application error, got %v", err)
	}
}

func TestUncaughtRenderErrorSurfacesFromFlush(t *testing.T) {
	errBoom := errors.New("boom")
	broken := func(rc *weft.RenderContext) any {
		panic(errBoom)
	}

	doc, backend := newHost()
	root := weft.NewRoot(weft.Component(broken, nil), doc.Body(), backend)
	err := root.Mount()
	if err == nil {
		t.Fatal("expected mount to fail with no boundary installed")
	}
	if !errors.Is(err, errBoom) {
		t.Errorf("expected wrapped application error, got %v", err)
	}
	var re *weft.RenderError
	if !errors.As(err, &re) {
		t.Errorf("expected a RenderError, got %T", err)
	}
}

func TestHookCountMismatchIsProtocolError(t *testing.T) {
	first := true
	var bump func()
	comp := func(rc *weft.RenderContext) any {
		tick, setTick := weft.UseState(rc, 0)
		bump = func() { setTick(tick + 1) }
		if first {
			weft.UseID(rc)
			first = false
		}
		return labelTemplate.Bind(tick)
	}

	doc, backend := newHost()
	root := weft.NewRoot(weft.Component(comp, nil), doc.Body(), backend)
	if err := root.Mount(); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	// The second render drops a hook; boundaries must not absorb this.
	bump()
	err := root.Engine().FlushSync()
	if err == nil {
		t.Fatal("expected a hook-count protocol error")
	}
	if !weft.IsProtocolError(err) {
		t.Errorf("expected protocol error, got %T: %v", err, err)
	}
}

func TestHookKindMismatchIsProtocolError(t *testing.T) {
	first := true
	var bump func()
	comp := func(rc *weft.RenderContext) any {
		tick, setTick := weft.UseState(rc, 0)
		bump = func() { setTick(tick + 1) }
		if first {
			weft.UseID(rc)
			first = false
		} else {
			weft.UseMemo(rc, func() int { return 0 }, []any{})
		}
		return labelTemplate.Bind(tick)
	}

	doc, backend := newHost()
	root := weft.NewRoot(weft.Component(comp, nil), doc.Body(), backend)
	if err := root.Mount(); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	bump()
	err := root.Engine().FlushSync()
	if err == nil {
		t.Fatal("expected a hook-kind protocol error")
	}
	if !weft.IsProtocolError(err) {
		t.Errorf("expected protocol error, got %T: %v", err, err)
	}
}

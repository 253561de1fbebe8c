package memhost

import (
	"testing"

	"github.com/weft-ui/weft/pkg/weft"
)

var activateTemplate = &Template{Tag: "button", StaticText: "go", EventHoles: []string{"click"}}

func TestHydrateAdoptsServerRenderedTree(t *testing.T) {
	doc := NewDocument()
	backend := New(doc)

	// The tree a server would have rendered from the same template.
	btn := doc.CreateElement("button")
	btn.AppendChild(doc.CreateText("go"))
	doc.Body().AppendChild(btn)
	doc.ResetLog()

	clicks := 0
	root := weft.NewRoot(activateTemplate.Bind(func(Event) { clicks++ }), doc.Body(), backend)
	if err := root.Hydrate(NewCursor()); err != nil {
		t.Fatalf("hydrate failed: %v", err)
	}

	// Hydration activates the existing node; it never rebuilds the tree.
	for _, w := range doc.Log() {
		if w.Op == OpInsert || w.Op == OpRemove {
			t.Fatalf("hydration touched the tree: %v", w)
		}
	}
	if doc.Body().ChildCount() != 1 {
		t.Fatalf("expected the adopted button to remain the only child, got %s", doc.Body().Render())
	}

	backend.FireEvent(btn, "click", nil)
	if clicks != 1 {
		t.Errorf("expected the adopted node to carry the bound handler, got %d clicks", clicks)
	}
}

func TestHydrateTagMismatch(t *testing.T) {
	doc := NewDocument()
	backend := New(doc)

	div := doc.CreateElement("div")
	doc.Body().AppendChild(div)

	root := weft.NewRoot(activateTemplate.Bind(func(Event) {}), doc.Body(), backend)
	if err := root.Hydrate(NewCursor()); err == nil {
		t.Fatal("expected a mismatch error hydrating <div> as <button>")
	}
}

func TestHydratedRootStillUpdates(t *testing.T) {
	tmpl := &Template{Tag: "p", AttrHoles: []string{"data-state"}}

	doc := NewDocument()
	backend := New(doc)
	p := doc.CreateElement("p")
	p.SetAttribute("data-state", "cold")
	doc.Body().AppendChild(p)

	root := weft.NewRoot(tmpl.Bind("cold"), doc.Body(), backend)
	if err := root.Hydrate(NewCursor()); err != nil {
		t.Fatalf("hydrate failed: %v", err)
	}

	if err := root.Update(tmpl.Bind("warm")); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if got, _ := p.Attr("data-state"); got != "warm" {
		t.Errorf("expected updated attribute on the adopted node, got %q", got)
	}
}

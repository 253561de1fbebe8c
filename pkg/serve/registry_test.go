package serve

import (
	"testing"

	"github.com/weft-ui/weft/pkg/memhost"
)

func TestRegistryPreOrderIDs(t *testing.T) {
	doc := memhost.NewDocument()
	div := doc.CreateElement("div")
	div.AppendChild(doc.CreateText("hello"))
	div.AppendChild(doc.CreateComment("hole"))
	doc.Body().AppendChild(div)

	r := NewNodeRegistry()
	if got := r.RegisterSubtree(doc.Body()); got != 1 {
		t.Errorf("expected body id 1, got %d", got)
	}
	if got := r.ID(div); got != 2 {
		t.Errorf("expected div id 2, got %d", got)
	}
	if got := r.ID(div.Children()[0]); got != 3 {
		t.Errorf("expected text id 3, got %d", got)
	}
	if got := r.ID(div.Children()[1]); got != 4 {
		t.Errorf("expected comment id 4, got %d", got)
	}
	if r.Len() != 4 {
		t.Errorf("expected 4 registered nodes, got %d", r.Len())
	}
}

func TestRegistryIdempotentAndIncremental(t *testing.T) {
	doc := memhost.NewDocument()
	div := doc.CreateElement("div")
	doc.Body().AppendChild(div)

	r := NewNodeRegistry()
	r.RegisterSubtree(doc.Body())
	divID := r.ID(div)

	// Re-registering keeps existing ids.
	r.RegisterSubtree(doc.Body())
	if got := r.ID(div); got != divID {
		t.Errorf("re-registration changed id from %d to %d", divID, got)
	}

	// A new node appended later gets the next free id.
	span := doc.CreateElement("span")
	div.AppendChild(span)
	if got := r.RegisterSubtree(span); got != 3 {
		t.Errorf("expected span id 3, got %d", got)
	}
}

func TestRegistryReleaseAndLookup(t *testing.T) {
	doc := memhost.NewDocument()
	div := doc.CreateElement("div")
	span := doc.CreateElement("span")
	div.AppendChild(span)
	doc.Body().AppendChild(div)

	r := NewNodeRegistry()
	r.RegisterSubtree(doc.Body())
	divID := r.ID(div)

	if got := r.Node(divID); got != div {
		t.Errorf("expected lookup to return the div")
	}

	r.Release(div)
	if got := r.ID(div); got != 0 {
		t.Errorf("expected released div to report 0, got %d", got)
	}
	if got := r.ID(span); got != 0 {
		t.Errorf("expected released descendant to report 0, got %d", got)
	}
	if got := r.Node(divID); got != nil {
		t.Errorf("expected stale id to resolve to nil")
	}
	if got := r.ID(nil); got != 0 {
		t.Errorf("nil node must be id 0, got %d", got)
	}
}

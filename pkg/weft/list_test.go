package weft_test

import (
	"testing"

	"github.com/weft-ui/weft/pkg/memhost"
	"github.com/weft-ui/weft/pkg/weft"
)

var (
	listTemplate = &memhost.Template{Tag: "ul", ChildHoles: 1}
	rowTemplate  = &memhost.Template{Tag: "li", ChildHoles: 1}
)

func keyedRows(keys ...string) weft.DirectiveValue {
	items := make([]weft.KeyedValue, len(keys))
	for i, k := range keys {
		items[i] = weft.Keyed(k, rowTemplate.Bind(k))
	}
	return weft.List(items)
}

// rowNodes returns the li elements currently under the list, skipping the
// hole anchor.
func rowNodes(ul *memhost.Node) []*memhost.Node {
	var rows []*memhost.Node
	for _, c := range ul.Children() {
		if c.Kind == memhost.ElementNode && c.Tag == "li" {
			rows = append(rows, c)
		}
	}
	return rows
}

func rowTexts(ul *memhost.Node) []string {
	var texts []string
	for _, li := range rowNodes(ul) {
		texts = append(texts, li.Children()[0].Text)
	}
	return texts
}

func mountList(t *testing.T, keys ...string) (*memhost.Document, *memhost.Backend, *weft.Root, *memhost.Node) {
	t.Helper()
	doc, backend := newHost()
	root := weft.NewRoot(listTemplate.Bind(keyedRows(keys...)), doc.Body(), backend)
	if err := root.Mount(); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	ul := doc.Body().Query("ul")
	if ul == nil {
		t.Fatal("ul not mounted")
	}
	return doc, backend, root, ul
}

func TestKeyedListMountsInOrder(t *testing.T) {
	doc, _, _, ul := mountList(t, "foo", "bar", "baz")

	got := rowTexts(ul)
	want := []string{"foo", "bar", "baz"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	// Mounting in order needs no repositioning.
	for _, w := range doc.Log() {
		if w.Op == memhost.OpMove {
			t.Errorf("unexpected move during mount: %v", w)
		}
	}
}

func TestKeyedReorderReusesNodes(t *testing.T) {
	doc, _, root, ul := mountList(t, "foo", "bar", "baz", "qux")

	before := map[string]*memhost.Node{}
	for _, li := range rowNodes(ul) {
		before[li.Children()[0].Text] = li
	}

	doc.ResetLog()
	if err := root.Update(listTemplate.Bind(keyedRows("foo", "baz", "bar", "qux"))); err != nil {
		t.Fatalf("reorder failed: %v", err)
	}

	got := rowTexts(ul)
	want := []string{"foo", "baz", "bar", "qux"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}

	// Every surviving key keeps its host node.
	for _, li := range rowNodes(ul) {
		key := li.Children()[0].Text
		if before[key] != li {
			t.Errorf("row %q was recreated instead of reused", key)
		}
	}

	// Swapping two adjacent rows costs a single move; nothing else is written.
	log := doc.Log()
	if len(log) != 1 {
		t.Fatalf("expected exactly 1 write, got %d: %v", len(log), log)
	}
	if log[0].Op != memhost.OpMove {
		t.Errorf("expected a move write, got %s", log[0].Op)
	}
	if log[0].Node != before["bar"] {
		t.Errorf("expected the move to target the bar row")
	}
}

func TestKeyedListInsertAndRemove(t *testing.T) {
	doc, _, root, ul := mountList(t, "foo", "bar", "baz")

	doc.ResetLog()
	if err := root.Update(listTemplate.Bind(keyedRows("foo", "baz"))); err != nil {
		t.Fatalf("removal failed: %v", err)
	}
	got := rowTexts(ul)
	if len(got) != 2 || got[0] != "foo" || got[1] != "baz" {
		t.Fatalf("expected [foo baz], got %v", got)
	}
	removes := 0
	for _, w := range doc.Log() {
		if w.Op == memhost.OpRemove {
			removes++
		}
	}
	if removes != 1 {
		t.Errorf("expected 1 remove write, got %d: %v", removes, doc.Log())
	}

	if err := root.Update(listTemplate.Bind(keyedRows("foo", "new", "baz"))); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	got = rowTexts(ul)
	want := []string{"foo", "new", "baz"}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestKeyedListClearAndRepopulate(t *testing.T) {
	_, _, root, ul := mountList(t, "a", "b")

	if err := root.Update(listTemplate.Bind(keyedRows())); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if n := len(rowNodes(ul)); n != 0 {
		t.Fatalf("expected empty list, got %d rows", n)
	}

	if err := root.Update(listTemplate.Bind(keyedRows("c"))); err != nil {
		t.Fatalf("repopulate failed: %v", err)
	}
	got := rowTexts(ul)
	if len(got) != 1 || got[0] != "c" {
		t.Errorf("expected [c], got %v", got)
	}
}

func TestDuplicateKeysRejectedInDebugMode(t *testing.T) {
	weft.DebugMode = true
	defer func() { weft.DebugMode = false }()

	doc, backend := newHost()
	root := weft.NewRoot(listTemplate.Bind(keyedRows("dup", "dup")), doc.Body(), backend)
	err := root.Mount()
	if err == nil {
		t.Fatal("expected duplicate keys to fail in debug mode")
	}
	if !weft.IsProtocolError(err) {
		t.Errorf("expected protocol error, got %T: %v", err, err)
	}
}

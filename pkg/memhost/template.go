package memhost

import (
	"fmt"

	"github.com/weft-ui/weft/pkg/weft"
)

// Template is a static element shape with holes. Bind order is attribute
// holes first (in AttrHoles order), event holes, then child holes. Template
// values are compared by identity, so declare them once (package level or
// sync.Once) and reuse them across renders.
type Template struct {
	// Tag is the element to create.
	Tag string

	// StaticAttrs are set once at instantiation.
	StaticAttrs map[string]string

	// AttrHoles are dynamic attribute names, one bind each.
	AttrHoles []string

	// EventHoles are event names, one handler bind each.
	EventHoles []string

	// ChildHoles is the number of dynamic child positions, appended after
	// any static text.
	ChildHoles int

	// StaticText, when non-empty, becomes a leading text child.
	StaticText string
}

var _ weft.Template = (*Template)(nil)

// Bind pairs the template with hole values, ready to return from a
// component or mount at a root.
func (t *Template) Bind(binds ...any) weft.TemplateResult {
	return weft.TemplateResult{Template: t, Binds: binds}
}

// Render implements weft.Template: create the element detached, carve one
// slot per hole, and hand node attachment to the fragment's Mount.
func (t *Template) Render(binds []any, part weft.Part, ctx *weft.UpdateContext) (*weft.TemplateFragment, error) {
	parent, ok := part.Node.(*Node)
	if !ok {
		return nil, fmt.Errorf("memhost: template rendered against %T, want *Node", part.Node)
	}
	doc := parent.doc

	el := doc.CreateElement(t.Tag)
	for name, value := range t.StaticAttrs {
		el.SetAttribute(name, value)
	}
	if t.StaticText != "" {
		el.AppendChild(doc.CreateText(t.StaticText))
	}

	anchors := make([]*Node, t.ChildHoles)
	for i := range anchors {
		anchors[i] = doc.CreateComment("hole")
		el.AppendChild(anchors[i])
	}

	slots, err := t.makeSlots(el, anchors, binds, ctx)
	if err != nil {
		return nil, err
	}

	var anchor *Node
	if part.AnchorNode != nil {
		anchor = part.AnchorNode.(*Node)
	}
	return &weft.TemplateFragment{
		ChildNodes: []weft.Node{el},
		Slots:      slots,
		Mount:      func() { parent.InsertBefore(el, anchor) },
		Unmount:    func() { parent.RemoveChild(el) },
	}, nil
}

// Hydrate implements weft.Template: adopt the next element the scope's
// cursor points at instead of creating one. The adopted element must match
// the template's tag and carry one comment anchor per child hole.
func (t *Template) Hydrate(binds []any, part weft.Part, ctx *weft.UpdateContext) (*weft.TemplateFragment, error) {
	cursor, ok := ctx.Scope().HydrationCursor().(*Cursor)
	if !ok {
		return nil, fmt.Errorf("memhost: hydrate without a memhost.Cursor in scope")
	}
	parent, ok := part.Node.(*Node)
	if !ok {
		return nil, fmt.Errorf("memhost: template hydrated against %T, want *Node", part.Node)
	}

	el := cursor.nextElement(parent)
	if el == nil {
		return nil, fmt.Errorf("memhost: hydration mismatch: no element left under %s for <%s>", parent.Path(), t.Tag)
	}
	if el.Tag != t.Tag {
		return nil, fmt.Errorf("memhost: hydration mismatch: found <%s>, want <%s>", el.Tag, t.Tag)
	}

	var anchors []*Node
	for _, c := range el.children {
		if c.Kind == CommentNode {
			anchors = append(anchors, c)
		}
	}
	if len(anchors) < t.ChildHoles {
		return nil, fmt.Errorf("memhost: hydration mismatch: <%s> has %d anchors, want %d", el.Tag, len(anchors), t.ChildHoles)
	}

	slots, err := t.makeSlots(el, anchors[:t.ChildHoles], binds, ctx)
	if err != nil {
		return nil, err
	}

	// Already attached: Mount is nil, only Unmount matters.
	return &weft.TemplateFragment{
		ChildNodes: []weft.Node{el},
		Slots:      slots,
		Unmount:    func() { parent.RemoveChild(el) },
	}, nil
}

func (t *Template) makeSlots(el *Node, anchors []*Node, binds []any, ctx *weft.UpdateContext) ([]*weft.Slot, error) {
	want := len(t.AttrHoles) + len(t.EventHoles) + t.ChildHoles
	if len(binds) != want {
		return nil, fmt.Errorf("memhost: template <%s> has %d holes, got %d binds", t.Tag, want, len(binds))
	}

	slots := make([]*weft.Slot, 0, want)
	i := 0
	for _, name := range t.AttrHoles {
		slot, err := weft.ResolveSlot(binds[i], weft.Part{Kind: weft.PartAttribute, Node: el, Name: name}, ctx)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
		i++
	}
	for _, name := range t.EventHoles {
		slot, err := weft.ResolveSlot(binds[i], weft.Part{Kind: weft.PartEvent, Node: el, Name: name}, ctx)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
		i++
	}
	for h := 0; h < t.ChildHoles; h++ {
		slot, err := weft.ResolveSlot(binds[i], weft.Part{Kind: weft.PartChildNode, Node: el, AnchorNode: anchors[h]}, ctx)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
		i++
	}
	return slots, nil
}

// Cursor walks an existing tree during hydration, handing out element
// children in document order per parent. Install it on the root scope with
// Root.Hydrate.
type Cursor struct {
	next map[*Node]int
}

// NewCursor creates a cursor positioned at the start of every parent.
func NewCursor() *Cursor {
	return &Cursor{next: make(map[*Node]int)}
}

func (c *Cursor) nextElement(parent *Node) *Node {
	i := c.next[parent]
	for ; i < len(parent.children); i++ {
		if parent.children[i].Kind == ElementNode {
			c.next[parent] = i + 1
			return parent.children[i]
		}
	}
	c.next[parent] = i
	return nil
}

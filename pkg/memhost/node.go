package memhost

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/weft-ui/weft/pkg/weft"
)

// NodeKind discriminates the three node shapes the host supports.
type NodeKind int

const (
	ElementNode NodeKind = iota
	TextNode
	CommentNode
)

func (k NodeKind) String() string {
	switch k {
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// WriteOp names one class of host mutation in the document's write log.
type WriteOp int

const (
	OpSetAttr WriteOp = iota
	OpRemoveAttr
	OpSetProp
	OpSetText
	OpInsert
	OpRemove
	OpMove
	OpAddListener
	OpRemoveListener
)

func (op WriteOp) String() string {
	switch op {
	case OpSetAttr:
		return "set-attr"
	case OpRemoveAttr:
		return "remove-attr"
	case OpSetProp:
		return "set-prop"
	case OpSetText:
		return "set-text"
	case OpInsert:
		return "insert"
	case OpRemove:
		return "remove"
	case OpMove:
		return "move"
	case OpAddListener:
		return "add-listener"
	case OpRemoveListener:
		return "remove-listener"
	}
	return fmt.Sprintf("WriteOp(%d)", int(op))
}

// Write is one recorded mutation of the attached tree. Mutations of detached
// nodes (template instantiation, fragments not yet mounted) are not logged;
// the log measures what a real host would have to paint.
type Write struct {
	Seq   uint64
	Phase weft.CommitPhase
	Op    WriteOp
	Node  *Node
	Name  string
	Value any
}

func (w Write) String() string {
	return fmt.Sprintf("#%d %s %s %s %q=%v", w.Seq, w.Phase, w.Op, w.Node.Path(), w.Name, w.Value)
}

// Event is delivered to listeners registered on a node.
type Event struct {
	Type   string
	Target *Node
	Data   any
}

// EventHandler receives dispatched events.
type EventHandler func(Event)

// Listener is the removable handle returned by AddEventListener.
type Listener struct {
	event   string
	handler EventHandler
	node    *Node
	id      uint64
}

// Document owns a node tree and the log of mutations applied to it. All
// methods are safe for concurrent use, though the engine drives mutations
// from a single goroutine.
type Document struct {
	mu      sync.Mutex
	body    *Node
	log     []Write
	total   uint64
	phase   weft.CommitPhase
	inPhase bool
	onWrite func(Write)
	nextLis uint64
}

// NewDocument creates a document with an empty <body> root.
func NewDocument() *Document {
	d := &Document{}
	d.body = &Node{doc: d, Kind: ElementNode, Tag: "body"}
	return d
}

// Body returns the document root. It is always attached.
func (d *Document) Body() *Node { return d.body }

// CreateElement creates a detached element node.
func (d *Document) CreateElement(tag string) *Node {
	return &Node{doc: d, Kind: ElementNode, Tag: tag}
}

// CreateText creates a detached text node.
func (d *Document) CreateText(text string) *Node {
	return &Node{doc: d, Kind: TextNode, Text: text}
}

// CreateComment creates a detached comment node. Templates use comments as
// position anchors for child holes.
func (d *Document) CreateComment(text string) *Node {
	return &Node{doc: d, Kind: CommentNode, Text: text}
}

// OnWrite registers fn to observe every logged write as it happens. A nil fn
// clears the observer.
func (d *Document) OnWrite(fn func(Write)) {
	d.mu.Lock()
	d.onWrite = fn
	d.mu.Unlock()
}

// Log returns a copy of the write log.
func (d *Document) Log() []Write {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Write, len(d.log))
	copy(out, d.log)
	return out
}

// ResetLog clears the write log without touching the tree. TotalWrites keeps
// counting across resets.
func (d *Document) ResetLog() {
	d.mu.Lock()
	d.log = d.log[:0]
	d.mu.Unlock()
}

// WriteCount returns the number of writes currently in the log.
func (d *Document) WriteCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.log)
}

// TotalWrites returns the number of writes ever logged, surviving ResetLog.
func (d *Document) TotalWrites() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.total
}

func (d *Document) beginPhase(phase weft.CommitPhase) {
	d.mu.Lock()
	d.phase = phase
	d.inPhase = true
	d.mu.Unlock()
}

func (d *Document) endPhase() {
	d.mu.Lock()
	d.inPhase = false
	d.mu.Unlock()
}

// record logs a mutation against node. Only mutations of attached nodes are
// logged; detached-tree construction is free, matching the cost model of a
// real renderer.
func (d *Document) record(node *Node, op WriteOp, name string, value any) {
	if !node.Attached() {
		return
	}
	d.mu.Lock()
	d.total++
	w := Write{Seq: d.total, Op: op, Node: node, Name: name, Value: value}
	if d.inPhase {
		w.Phase = d.phase
	} else {
		w.Phase = weft.PhaseMutation
	}
	d.log = append(d.log, w)
	fn := d.onWrite
	d.mu.Unlock()
	if fn != nil {
		fn(w)
	}
}

// Node is one element, text, or comment node in a document.
type Node struct {
	doc  *Document
	Kind NodeKind
	Tag  string
	Text string

	attrs     map[string]string
	props     map[string]any
	parent    *Node
	children  []*Node
	listeners map[string][]*Listener
}

// Document returns the owning document.
func (n *Node) Document() *Document { return n.doc }

// Parent returns the node's parent, or nil for detached and root nodes.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of the node's child list.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// ChildCount returns the number of children.
func (n *Node) ChildCount() int { return len(n.children) }

// NextSibling returns the node following n under its parent, or nil.
func (n *Node) NextSibling() *Node {
	if n.parent == nil {
		return nil
	}
	idx := n.parent.indexOf(n)
	if idx < 0 || idx+1 >= len(n.parent.children) {
		return nil
	}
	return n.parent.children[idx+1]
}

// Attached reports whether the node is rooted under the document body.
func (n *Node) Attached() bool {
	for p := n; p != nil; p = p.parent {
		if p == n.doc.body {
			return true
		}
	}
	return false
}

// Attr returns the named attribute and whether it is set.
func (n *Node) Attr(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

// Prop returns the named property, or nil.
func (n *Node) Prop(name string) any { return n.props[name] }

// SetAttribute sets an attribute, logging a write if attached.
func (n *Node) SetAttribute(name, value string) {
	if n.attrs == nil {
		n.attrs = make(map[string]string)
	}
	n.attrs[name] = value
	n.doc.record(n, OpSetAttr, name, value)
}

// RemoveAttribute clears an attribute, logging a write if it was set.
func (n *Node) RemoveAttribute(name string) {
	if _, ok := n.attrs[name]; !ok {
		return
	}
	delete(n.attrs, name)
	n.doc.record(n, OpRemoveAttr, name, nil)
}

// SetProperty sets a property, logging a write if attached.
func (n *Node) SetProperty(name string, value any) {
	if n.props == nil {
		n.props = make(map[string]any)
	}
	n.props[name] = value
	n.doc.record(n, OpSetProp, name, value)
}

// SetText replaces a text or comment node's content.
func (n *Node) SetText(text string) {
	if n.Text == text {
		return
	}
	n.Text = text
	n.doc.record(n, OpSetText, "", text)
}

// AppendChild attaches child as the last child of n.
func (n *Node) AppendChild(child *Node) {
	n.InsertBefore(child, nil)
}

// InsertBefore attaches child immediately before ref, or as the last child
// when ref is nil. A child already attached elsewhere is detached first.
func (n *Node) InsertBefore(child, ref *Node) {
	if child.parent != nil {
		child.parent.detach(child)
	}
	child.parent = n
	if ref == nil {
		n.children = append(n.children, child)
	} else {
		idx := n.indexOf(ref)
		if idx < 0 {
			n.children = append(n.children, child)
		} else {
			n.children = append(n.children, nil)
			copy(n.children[idx+1:], n.children[idx:])
			n.children[idx] = child
		}
	}
	n.doc.record(child, OpInsert, "", nil)
}

// RemoveChild detaches child from n. Removing an unrelated node is a no-op.
func (n *Node) RemoveChild(child *Node) {
	if child.parent != n {
		return
	}
	n.doc.record(child, OpRemove, "", nil)
	n.detach(child)
}

// moveBefore repositions an already-attached child before ref, logging one
// move instead of a remove/insert pair. The write is logged after the move
// so observers see the final position.
func (n *Node) moveBefore(child, ref *Node) {
	if child.parent != n || child == ref {
		return
	}
	// Already in position: no host write.
	if child.NextSibling() == ref {
		return
	}
	n.detach(child)
	child.parent = n
	idx := -1
	if ref != nil {
		idx = n.indexOf(ref)
	}
	if idx < 0 {
		n.children = append(n.children, child)
	} else {
		n.children = append(n.children, nil)
		copy(n.children[idx+1:], n.children[idx:])
		n.children[idx] = child
	}
	n.doc.record(child, OpMove, "", nil)
}

func (n *Node) detach(child *Node) {
	idx := n.indexOf(child)
	if idx >= 0 {
		n.children = append(n.children[:idx], n.children[idx+1:]...)
	}
	child.parent = nil
}

func (n *Node) indexOf(child *Node) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

// AddEventListener registers a handler and returns its removal handle.
func (n *Node) AddEventListener(event string, handler EventHandler) *Listener {
	if n.listeners == nil {
		n.listeners = make(map[string][]*Listener)
	}
	n.doc.mu.Lock()
	n.doc.nextLis++
	id := n.doc.nextLis
	n.doc.mu.Unlock()
	l := &Listener{event: event, handler: handler, node: n, id: id}
	n.listeners[event] = append(n.listeners[event], l)
	n.doc.record(n, OpAddListener, event, nil)
	return l
}

// RemoveEventListener unregisters a previously added handle.
func (n *Node) RemoveEventListener(l *Listener) {
	if l == nil || l.node != n {
		return
	}
	list := n.listeners[l.event]
	for i, got := range list {
		if got == l {
			n.listeners[l.event] = append(list[:i], list[i+1:]...)
			n.doc.record(n, OpRemoveListener, l.event, nil)
			return
		}
	}
}

// dispatch invokes the node's listeners for the event, in registration order.
func (n *Node) dispatch(ev Event) {
	list := n.listeners[ev.Type]
	handlers := make([]*Listener, len(list))
	copy(handlers, list)
	for _, l := range handlers {
		l.handler(ev)
	}
}

// Query returns the first element under n (inclusive) with the given tag, or
// nil. Depth-first; handy in tests.
func (n *Node) Query(tag string) *Node {
	if n.Kind == ElementNode && n.Tag == tag {
		return n
	}
	for _, c := range n.children {
		if got := c.Query(tag); got != nil {
			return got
		}
	}
	return nil
}

// Path returns a /-separated positional path from the document body, for
// log readability.
func (n *Node) Path() string {
	if n.parent == nil {
		if n == n.doc.body {
			return "body"
		}
		return "(" + n.label() + ")"
	}
	return n.parent.Path() + "/" + n.label()
}

func (n *Node) label() string {
	switch n.Kind {
	case TextNode:
		return "#text"
	case CommentNode:
		return "#comment"
	default:
		return n.Tag
	}
}

// Render serializes the subtree as HTML-ish text, stable for assertions.
func (n *Node) Render() string {
	var b strings.Builder
	n.render(&b)
	return b.String()
}

func (n *Node) render(b *strings.Builder) {
	switch n.Kind {
	case TextNode:
		b.WriteString(n.Text)
	case CommentNode:
		b.WriteString("<!--")
		b.WriteString(n.Text)
		b.WriteString("-->")
	default:
		b.WriteByte('<')
		b.WriteString(n.Tag)
		for _, name := range sortedKeys(n.attrs) {
			fmt.Fprintf(b, " %s=%q", name, n.attrs[name])
		}
		b.WriteByte('>')
		for _, c := range n.children {
			c.render(b)
		}
		b.WriteString("</")
		b.WriteString(n.Tag)
		b.WriteByte('>')
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package serve

import (
	"sync"

	"github.com/weft-ui/weft/pkg/memhost"
)

// NodeRegistry assigns session-scoped wire identifiers to host nodes.
//
// Identifier assignment is deterministic: a subtree is numbered depth-first
// pre-order from its root. The client performs the same walk over the
// serialized HTML it receives, so both sides agree on every node's id
// without shipping ids in band.
type NodeRegistry struct {
	mu     sync.Mutex
	nextID uint64
	byNode map[*memhost.Node]uint64
	byID   map[uint64]*memhost.Node
}

// NewNodeRegistry creates an empty registry. Identifiers start at 1; zero
// means "no node" on the wire.
func NewNodeRegistry() *NodeRegistry {
	return &NodeRegistry{
		nextID: 1,
		byNode: make(map[*memhost.Node]uint64),
		byID:   make(map[uint64]*memhost.Node),
	}
}

// ID returns the node's identifier, or 0 if it was never registered.
func (r *NodeRegistry) ID(n *memhost.Node) uint64 {
	if n == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byNode[n]
}

// Node returns the node for an identifier, or nil.
func (r *NodeRegistry) Node(id uint64) *memhost.Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id]
}

// RegisterSubtree assigns identifiers to every node under root (inclusive)
// in depth-first pre-order and returns root's identifier. Nodes already
// registered keep their ids; only unseen nodes consume new ones.
func (r *NodeRegistry) RegisterSubtree(root *memhost.Node) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.register(root)
}

func (r *NodeRegistry) register(n *memhost.Node) uint64 {
	id, ok := r.byNode[n]
	if !ok {
		id = r.nextID
		r.nextID++
		r.byNode[n] = id
		r.byID[id] = n
	}
	for _, c := range n.Children() {
		r.register(c)
	}
	return id
}

// Release forgets a subtree's identifiers after removal.
func (r *NodeRegistry) Release(root *memhost.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.release(root)
}

func (r *NodeRegistry) release(n *memhost.Node) {
	if id, ok := r.byNode[n]; ok {
		delete(r.byNode, n)
		delete(r.byID, id)
	}
	for _, c := range n.Children() {
		r.release(c)
	}
}

// Len reports how many nodes are registered.
func (r *NodeRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byNode)
}

// SerializeSubtree renders a subtree as HTML in the same pre-order the
// registry numbers nodes, so the client can reconstruct ids while parsing.
func SerializeSubtree(root *memhost.Node) string {
	return root.Render()
}

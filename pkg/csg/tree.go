package csg

import "fmt"

// Tree is the top-level structure produced by script evaluation.
type Tree struct {
	Nodes     map[NodeID]*Node
	Roots     []NodeID
	NameIndex map[string]NodeID
}

// New creates an empty Tree.
func New() *Tree {
	return &Tree{
		Nodes:     make(map[NodeID]*Node),
		NameIndex: make(map[string]NodeID),
	}
}

// AddNode adds a node to the tree. It does not check for duplicates.
func (t *Tree) AddNode(n *Node) {
	t.Nodes[n.ID] = n
	if n.Name != "" {
		t.NameIndex[n.Name] = n.ID
	}
}

// AddRoot registers a node ID as a root. Registering the same ID twice is a
// no-op.
func (t *Tree) AddRoot(id NodeID) {
	for _, r := range t.Roots {
		if r == id {
			return
		}
	}
	t.Roots = append(t.Roots, id)
}

// RemoveRoot drops id from the root list.
func (t *Tree) RemoveRoot(id NodeID) {
	for i, r := range t.Roots {
		if r == id {
			t.Roots = append(t.Roots[:i], t.Roots[i+1:]...)
			return
		}
	}
}

// AdoptRoots registers parent as a root in place of its children: parent
// takes the root position of the earliest child that was a root, and the
// other children leave the root list. With no child among the roots, parent
// is appended.
func (t *Tree) AdoptRoots(parent NodeID, children ...NodeID) {
	isChild := make(map[NodeID]bool, len(children))
	for _, c := range children {
		isChild[c] = true
	}
	roots := make([]NodeID, 0, len(t.Roots)+1)
	placed := false
	for _, r := range t.Roots {
		if r == parent {
			continue
		}
		if !isChild[r] {
			roots = append(roots, r)
			continue
		}
		if !placed {
			roots = append(roots, parent)
			placed = true
		}
	}
	if !placed {
		roots = append(roots, parent)
	}
	t.Roots = roots
}

// Lookup returns the node with the given name, or nil.
func (t *Tree) Lookup(name string) *Node {
	id, ok := t.NameIndex[name]
	if !ok {
		return nil
	}
	return t.Nodes[id]
}

// MustLookup returns the node with the given name, or panics.
func (t *Tree) MustLookup(name string) *Node {
	n := t.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("csg: no node named %q", name))
	}
	return n
}

// Get returns the node with the given ID, or nil.
func (t *Tree) Get(id NodeID) *Node {
	return t.Nodes[id]
}

// Children returns the child nodes of n in declaration order.
func (t *Tree) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := t.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// NodeCount returns the total number of nodes.
func (t *Tree) NodeCount() int {
	return len(t.Nodes)
}

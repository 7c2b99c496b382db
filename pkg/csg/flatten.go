package csg

import "fmt"

// Placement is one level of transform on the path from a root to a
// primitive. Rotation is applied before translation.
type Placement struct {
	Translation Vec3
	Rotation    Vec3
}

// Placed is a primitive together with every placement on its path from the
// root, outermost first.
type Placed struct {
	Node       *Node
	Name       string
	Placements []Placement
}

// placementStack accumulates placements during traversal.
type placementStack struct {
	items []Placement
}

func (ps *placementStack) push(p Placement) {
	ps.items = append(ps.items, p)
}

func (ps *placementStack) pop() {
	if len(ps.items) > 0 {
		ps.items = ps.items[:len(ps.items)-1]
	}
}

func (ps *placementStack) snapshot() []Placement {
	out := make([]Placement, len(ps.items))
	copy(out, ps.items)
	return out
}

// Flatten walks the tree from its roots in order and returns one Placed per
// primitive reached, in traversal order. The tree is never mutated.
func Flatten(t *Tree) ([]Placed, error) {
	if t == nil {
		return nil, nil
	}

	var out []Placed
	ps := &placementStack{}
	for _, rootID := range t.Roots {
		root := t.Get(rootID)
		if root == nil {
			continue
		}
		collected, err := walkNode(t, root, ps, "")
		if err != nil {
			return nil, fmt.Errorf("csg: error walking root %s: %w", rootID.Short(), err)
		}
		out = append(out, collected...)
	}
	return out, nil
}

// walkNode recursively traverses n. name is the nearest named ancestor, used
// when the primitive itself is anonymous.
func walkNode(t *Tree, n *Node, ps *placementStack, name string) ([]Placed, error) {
	if n.Name != "" {
		name = n.Name
	}
	switch n.Kind {
	case NodePrimitive:
		if _, ok := PrimitiveOf(n.Data); !ok {
			return nil, fmt.Errorf("primitive node %s has unsupported data type %T", n.ID.Short(), n.Data)
		}
		if name == "" {
			name = n.ID.Short()
		}
		return []Placed{{Node: n, Name: name, Placements: ps.snapshot()}}, nil

	case NodeTransform:
		td, ok := n.Data.(TransformData)
		if !ok {
			return nil, fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
		}
		var p Placement
		if td.Translation != nil {
			p.Translation = *td.Translation
		}
		if td.Rotation != nil {
			p.Rotation = *td.Rotation
		}
		ps.push(p)
		defer ps.pop()
		return walkChildren(t, n, ps, name)

	case NodeGroup:
		return walkChildren(t, n, ps, name)

	default:
		return nil, fmt.Errorf("unknown node kind: %v", n.Kind)
	}
}

func walkChildren(t *Tree, n *Node, ps *placementStack, name string) ([]Placed, error) {
	var out []Placed
	for _, child := range t.Children(n) {
		collected, err := walkNode(t, child, ps, name)
		if err != nil {
			return nil, err
		}
		out = append(out, collected...)
	}
	return out, nil
}

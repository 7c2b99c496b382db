package csg

// NodeKind enumerates the types of nodes in the tree.
type NodeKind int

const (
	NodePrimitive NodeKind = iota // box, cylinder, sphere
	NodeTransform                 // placement (place)
	NodeGroup                     // logical grouping (assembly)
)

func (k NodeKind) String() string {
	switch k {
	case NodePrimitive:
		return "primitive"
	case NodeTransform:
		return "transform"
	case NodeGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Node is the fundamental element of the tree.
type Node struct {
	ID       NodeID
	Kind     NodeKind
	Name     string
	Children []NodeID
	Data     NodeData
}

// NodeData is the interface for kind-specific node payloads.
type NodeData interface {
	nodeData() // marker method restricting implementations to this package
}

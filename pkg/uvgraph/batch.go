package uvgraph

import "fmt"

// Batch is several graphs merged into one disconnected graph. Node and edge
// indices of graph i are offset by the totals of graphs before it.
type Batch struct {
	Graph      *Graph
	NodeCounts []int
	EdgeCounts []int
}

// Size returns the number of graphs in the batch.
func (b *Batch) Size() int {
	return len(b.NodeCounts)
}

// NodeOffset returns the index of graph i's first node.
func (b *Batch) NodeOffset(i int) int {
	off := 0
	for _, n := range b.NodeCounts[:i] {
		off += n
	}
	return off
}

// Merge batches graphs in order. All graphs must share one grid size.
func Merge(graphs []*Graph) (*Batch, error) {
	b := &Batch{Graph: &Graph{}}
	if len(graphs) == 0 {
		return b, nil
	}
	b.Graph.NumU, b.Graph.NumV = graphs[0].NumU, graphs[0].NumV
	offset := int32(0)
	for i, g := range graphs {
		if g.NumU != b.Graph.NumU || g.NumV != b.Graph.NumV {
			return nil, fmt.Errorf("uvgraph: graph %d has grid %dx%d, batch has %dx%d",
				i, g.NumU, g.NumV, b.Graph.NumU, b.Graph.NumV)
		}
		for e := range g.Src {
			b.Graph.Src = append(b.Graph.Src, g.Src[e]+offset)
			b.Graph.Dst = append(b.Graph.Dst, g.Dst[e]+offset)
		}
		b.Graph.X = append(b.Graph.X, g.X...)
		b.Graph.E = append(b.Graph.E, g.E...)
		b.Graph.NumNodes += g.NumNodes
		b.NodeCounts = append(b.NodeCounts, g.NumNodes)
		b.EdgeCounts = append(b.EdgeCounts, g.NumEdges())
		offset += int32(g.NumNodes)
	}
	return b, nil
}

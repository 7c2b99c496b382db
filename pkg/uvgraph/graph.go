// Package uvgraph holds face-adjacency graphs with UV-grid features: one
// node per B-rep face sampled on a NumU×NumV parameter grid, one directed
// edge per pair of touching faces sampled along their shared boundary.
//
// Graphs are stored one per .bin file as a msgpack record.
package uvgraph

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ugorji/go/codec"
)

// Feature channels per sample.
const (
	// NodeFeatures is xyz, normal, trimming mask.
	NodeFeatures = 7
	// EdgeFeatures is xyz, tangent.
	EdgeFeatures = 6
)

// Channel offsets within a node sample.
const (
	chPoint  = 0
	chNormal = 3
	chMask   = 6
)

// ErrMalformed is returned when array lengths disagree with the header.
var ErrMalformed = errors.New("uvgraph: malformed graph")

// Graph is a face-adjacency graph. X is laid out as
// [NumNodes][NumU][NumV][NodeFeatures] and E as
// [NumEdges][NumU][EdgeFeatures], both flattened row-major.
type Graph struct {
	NumNodes int       `codec:"num_nodes"`
	NumU     int       `codec:"num_u"`
	NumV     int       `codec:"num_v"`
	Src      []int32   `codec:"src"`
	Dst      []int32   `codec:"dst"`
	X        []float32 `codec:"x"`
	E        []float32 `codec:"e"`
}

// NumEdges returns the number of directed edges.
func (g *Graph) NumEdges() int {
	return len(g.Src)
}

// nodeStride is the number of floats per node.
func (g *Graph) nodeStride() int {
	return g.NumU * g.NumV * NodeFeatures
}

// edgeStride is the number of floats per edge.
func (g *Graph) edgeStride() int {
	return g.NumU * EdgeFeatures
}

// Node returns the feature slice of node n. The slice aliases X.
func (g *Graph) Node(n int) []float32 {
	s := g.nodeStride()
	return g.X[n*s : (n+1)*s]
}

// Edge returns the feature slice of edge e. The slice aliases E.
func (g *Graph) Edge(e int) []float32 {
	s := g.edgeStride()
	return g.E[e*s : (e+1)*s]
}

// Validate checks array lengths and edge endpoints.
func (g *Graph) Validate() error {
	if g.NumNodes < 0 || g.NumU < 0 || g.NumV < 0 {
		return fmt.Errorf("%w: negative dimension", ErrMalformed)
	}
	if len(g.Src) != len(g.Dst) {
		return fmt.Errorf("%w: %d sources, %d destinations", ErrMalformed, len(g.Src), len(g.Dst))
	}
	if want := g.NumNodes * g.nodeStride(); len(g.X) != want {
		return fmt.Errorf("%w: x has %d values, want %d", ErrMalformed, len(g.X), want)
	}
	if want := g.NumEdges() * g.edgeStride(); len(g.E) != want {
		return fmt.Errorf("%w: e has %d values, want %d", ErrMalformed, len(g.E), want)
	}
	n := int32(g.NumNodes)
	for i := range g.Src {
		if g.Src[i] < 0 || g.Src[i] >= n || g.Dst[i] < 0 || g.Dst[i] >= n {
			return fmt.Errorf("%w: edge %d (%d->%d) outside %d nodes", ErrMalformed, i, g.Src[i], g.Dst[i], n)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (g *Graph) Clone() *Graph {
	c := *g
	c.Src = append([]int32(nil), g.Src...)
	c.Dst = append([]int32(nil), g.Dst...)
	c.X = append([]float32(nil), g.X...)
	c.E = append([]float32(nil), g.E...)
	return &c
}

var mh codec.MsgpackHandle

// Encode writes g to w.
func Encode(w io.Writer, g *Graph) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if err := codec.NewEncoder(w, &mh).Encode(g); err != nil {
		return fmt.Errorf("uvgraph: encode: %w", err)
	}
	return nil
}

// Decode reads one graph from r.
func Decode(r io.Reader) (*Graph, error) {
	g := &Graph{}
	if err := codec.NewDecoder(r, &mh).Decode(g); err != nil {
		return nil, fmt.Errorf("uvgraph: decode: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// ReadFile reads the graph stored at path.
func ReadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("uvgraph: %w", err)
	}
	defer f.Close()
	g, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// WriteFile stores g at path.
func WriteFile(path string, g *Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("uvgraph: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := Encode(bw, g); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("uvgraph: %w", err)
	}
	return f.Close()
}

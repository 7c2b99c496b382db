package dataset

import (
	"fmt"
	"math/rand"

	"github.com/cespare/xxhash/v2"

	"github.com/chazu/uvreg/pkg/cadfile"
	"github.com/chazu/uvreg/pkg/uvgraph"
)

// Sample is one graph with its scalar label.
type Sample struct {
	Path  string
	Stem  cadfile.FileStem
	Graph *uvgraph.Graph
	Label []float32
}

// Base loads graph files and collates graphs. It knows nothing about labels.
type Base struct {
	CenterAndScale bool
	RandomRotate   bool
	// Seed is mixed into every rotation stream, see Augment.
	Seed int64
}

// Load reads the graph at path and applies the configured transforms.
func (b Base) Load(path string) (*Sample, error) {
	g, err := uvgraph.ReadFile(path)
	if err != nil {
		return nil, err
	}
	stem := cadfile.StemOf(path)
	if b.CenterAndScale {
		g.CenterAndScale()
	}
	return &Sample{Path: path, Stem: stem, Graph: g}, nil
}

// Augment returns s with a random rotation applied to a copy of its graph,
// or s itself when RandomRotate is off. The rotation depends only on Seed,
// pass and the sample's stem, so a pass is reproducible whatever order the
// samples are visited in, and each pass draws fresh rotations.
func (b Base) Augment(s *Sample, pass int64) *Sample {
	if !b.RandomRotate {
		return s
	}
	seed := (b.Seed + pass) ^ int64(xxhash.Sum64String(string(s.Stem)))
	out := *s
	out.Graph = s.Graph.Clone()
	out.Graph.Rotate(uvgraph.RandomRotation(rand.New(rand.NewSource(seed))))
	return &out
}

// Collate merges the graphs of samples, in order.
func (b Base) Collate(samples []*Sample) (*uvgraph.Batch, error) {
	graphs := make([]*uvgraph.Graph, len(samples))
	for i, s := range samples {
		if s == nil || s.Graph == nil {
			return nil, fmt.Errorf("dataset: sample %d has no graph", i)
		}
		graphs[i] = s.Graph
	}
	return uvgraph.Merge(graphs)
}

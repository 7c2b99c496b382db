package uvgraph

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/uvreg/pkg/kernel"
)

// Options controls graph construction.
type Options struct {
	NumU, NumV int
	// Tolerance is used for the triangulation that finds shared boundaries.
	Tolerance kernel.Tolerance
}

// DefaultOptions returns a 10×10 grid with the default tolerance.
func DefaultOptions() Options {
	return Options{NumU: 10, NumV: 10, Tolerance: kernel.DefaultTolerance()}
}

// weldKey identifies a vertex position after snapping to the weld grid.
type weldKey [3]int64

type edgePair struct{ a, b int }

// FromSolid builds the face-adjacency graph of s. Two faces are adjacent
// when their triangulations share a vertex position.
func FromSolid(s kernel.Solid, opts Options) (*Graph, error) {
	if opts.NumU < 2 || opts.NumV < 2 {
		return nil, fmt.Errorf("uvgraph: grid %dx%d: need at least 2 samples per direction", opts.NumU, opts.NumV)
	}
	faces, err := s.Faces()
	if err != nil {
		return nil, fmt.Errorf("uvgraph: %w", err)
	}
	mapper, err := kernel.NewEntityMapper(s)
	if err != nil {
		return nil, fmt.Errorf("uvgraph: %w", err)
	}

	g := &Graph{NumNodes: len(faces), NumU: opts.NumU, NumV: opts.NumV}
	g.X = make([]float32, 0, g.NumNodes*g.nodeStride())

	eps := weldEpsilon(s)
	owners := map[weldKey][]int{}
	points := map[weldKey][3]float64{}

	for _, f := range faces {
		idx, err := mapper.FaceIndex(f)
		if err != nil {
			return nil, fmt.Errorf("uvgraph: %w", err)
		}
		grid, err := f.SampleUV(opts.NumU, opts.NumV)
		if err != nil {
			return nil, fmt.Errorf("uvgraph: face %d: %w", idx, err)
		}
		for k := range grid.Points {
			p, n := grid.Points[k], grid.Normals[k]
			g.X = append(g.X,
				float32(p[0]), float32(p[1]), float32(p[2]),
				float32(n[0]), float32(n[1]), float32(n[2]),
				float32(grid.Mask[k]),
			)
		}

		mesh, err := f.Triangulate(opts.Tolerance)
		if err != nil {
			return nil, fmt.Errorf("uvgraph: face %d: %w", idx, err)
		}
		for _, v := range mesh.Vertices {
			key := weld(v, eps)
			if !containsInt(owners[key], idx) {
				owners[key] = append(owners[key], idx)
			}
			points[key] = v
		}
	}

	shared := map[edgePair][]weldKey{}
	for key, fs := range owners {
		for _, a := range fs {
			for _, b := range fs {
				if a != b {
					p := edgePair{a, b}
					shared[p] = append(shared[p], key)
				}
			}
		}
	}

	pairs := make([]edgePair, 0, len(shared))
	for p := range shared {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].a != pairs[j].a {
			return pairs[i].a < pairs[j].a
		}
		return pairs[i].b < pairs[j].b
	})

	for _, p := range pairs {
		g.Src = append(g.Src, int32(p.a))
		g.Dst = append(g.Dst, int32(p.b))
		g.E = append(g.E, edgeFeatures(shared[p], points, opts.NumU)...)
	}
	return g, nil
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// weldEpsilon scales the weld grid with the solid's size.
func weldEpsilon(s kernel.Solid) float64 {
	lo, hi := s.BoundingBox()
	diag := math.Sqrt((hi[0]-lo[0])*(hi[0]-lo[0]) + (hi[1]-lo[1])*(hi[1]-lo[1]) + (hi[2]-lo[2])*(hi[2]-lo[2]))
	return 1e-6 * math.Max(diag, 1)
}

func weld(v [3]float64, eps float64) weldKey {
	return weldKey{
		int64(math.Round(v[0] / eps)),
		int64(math.Round(v[1] / eps)),
		int64(math.Round(v[2] / eps)),
	}
}

// edgeFeatures resamples the shared boundary points to n samples of point
// and unit tangent. Points are ordered lexicographically, which follows
// straight boundaries; the tangent of a single point is zero.
func edgeFeatures(keys []weldKey, points map[weldKey][3]float64, n int) []float32 {
	pts := make([][3]float64, len(keys))
	for i, k := range keys {
		pts[i] = points[k]
	}
	sort.Slice(pts, func(i, j int) bool {
		for k := 0; k < 3; k++ {
			if pts[i][k] != pts[j][k] {
				return pts[i][k] < pts[j][k]
			}
		}
		return false
	})

	out := make([]float32, 0, n*EdgeFeatures)
	for i := 0; i < n; i++ {
		j := int(math.Round(float64(i) * float64(len(pts)-1) / float64(n-1)))
		p := pts[j]
		var t [3]float64
		if len(pts) > 1 {
			a, b := j, j+1
			if b >= len(pts) {
				a, b = j-1, j
			}
			t = unit([3]float64{pts[b][0] - pts[a][0], pts[b][1] - pts[a][1], pts[b][2] - pts[a][2]})
		}
		out = append(out,
			float32(p[0]), float32(p[1]), float32(p[2]),
			float32(t[0]), float32(t[1]), float32(t[2]),
		)
	}
	return out
}

func unit(v [3]float64) [3]float64 {
	l := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if l == 0 {
		return v
	}
	return [3]float64{v[0] / l, v[1] / l, v[2] / l}
}

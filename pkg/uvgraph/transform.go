package uvgraph

import (
	"math"
	"math/rand"
)

// CenterAndScale moves the bounding box of all unmasked node points to the
// origin and scales its longest side to 2. Edge points follow the same map.
// A graph with no unmasked points is left unchanged.
func (g *Graph) CenterAndScale() {
	lo := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	found := false
	for i := 0; i+NodeFeatures <= len(g.X); i += NodeFeatures {
		if g.X[i+chMask] <= 0 {
			continue
		}
		found = true
		for k := 0; k < 3; k++ {
			v := float64(g.X[i+chPoint+k])
			lo[k] = math.Min(lo[k], v)
			hi[k] = math.Max(hi[k], v)
		}
	}
	if !found {
		return
	}

	var center [3]float64
	extent := 0.0
	for k := 0; k < 3; k++ {
		center[k] = (lo[k] + hi[k]) / 2
		extent = math.Max(extent, hi[k]-lo[k])
	}
	scale := 1.0
	if extent > 0 {
		scale = 2 / extent
	}

	apply := func(buf []float32, stride int) {
		for i := 0; i+stride <= len(buf); i += stride {
			for k := 0; k < 3; k++ {
				buf[i+k] = float32((float64(buf[i+k]) - center[k]) * scale)
			}
		}
	}
	apply(g.X, NodeFeatures)
	apply(g.E, EdgeFeatures)
}

// Rotation is a row-major 3×3 matrix.
type Rotation [3][3]float64

func (r Rotation) apply(v []float32) {
	x, y, z := float64(v[0]), float64(v[1]), float64(v[2])
	for k := 0; k < 3; k++ {
		v[k] = float32(r[k][0]*x + r[k][1]*y + r[k][2]*z)
	}
}

// RandomRotation picks one of the coordinate axes and a multiple of 90
// degrees about it.
func RandomRotation(rng *rand.Rand) Rotation {
	axis := rng.Intn(3)
	angle := float64(rng.Intn(4)) * math.Pi / 2
	c, s := math.Round(math.Cos(angle)), math.Round(math.Sin(angle))
	switch axis {
	case 0:
		return Rotation{{1, 0, 0}, {0, c, -s}, {0, s, c}}
	case 1:
		return Rotation{{c, 0, s}, {0, 1, 0}, {-s, 0, c}}
	default:
		return Rotation{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}
	}
}

// Rotate applies r to node points and normals and to edge points and
// tangents.
func (g *Graph) Rotate(r Rotation) {
	for i := 0; i+NodeFeatures <= len(g.X); i += NodeFeatures {
		r.apply(g.X[i+chPoint : i+chPoint+3])
		r.apply(g.X[i+chNormal : i+chNormal+3])
	}
	for i := 0; i+EdgeFeatures <= len(g.E); i += EdgeFeatures {
		r.apply(g.E[i : i+3])
		r.apply(g.E[i+3 : i+6])
	}
}

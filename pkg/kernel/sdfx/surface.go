package sdfx

import (
	"math"

	"github.com/chazu/uvreg/pkg/csg"
	"github.com/chazu/uvreg/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const (
	minSegments = 3
	maxSegments = 1024
)

// localMesh is a face triangulation in the primitive's local frame.
type localMesh struct {
	points  []v3.Vec
	normals []v3.Vec
	tris    [][3]int
}

// surface is the parametric geometry of one face. eval takes normalized
// parameters in [0, 1].
type surface interface {
	eval(u, v float64) (p, n v3.Vec)
	triangulate(tol kernel.Tolerance) localMesh
}

// primitiveSurfaces lists a primitive's faces in their stable order.
func primitiveSurfaces(d csg.NodeData) []surface {
	switch p := d.(type) {
	case csg.BoxData:
		x, y, z := p.Size.X, p.Size.Y, p.Size.Z
		return []surface{
			// bottom, top
			planar{origin: v3.Vec{}, a: v3.Vec{Y: y}, b: v3.Vec{X: x}, n: v3.Vec{Z: -1}},
			planar{origin: v3.Vec{Z: z}, a: v3.Vec{X: x}, b: v3.Vec{Y: y}, n: v3.Vec{Z: 1}},
			// front, back
			planar{origin: v3.Vec{}, a: v3.Vec{X: x}, b: v3.Vec{Z: z}, n: v3.Vec{Y: -1}},
			planar{origin: v3.Vec{Y: y}, a: v3.Vec{Z: z}, b: v3.Vec{X: x}, n: v3.Vec{Y: 1}},
			// left, right
			planar{origin: v3.Vec{}, a: v3.Vec{Z: z}, b: v3.Vec{Y: y}, n: v3.Vec{X: -1}},
			planar{origin: v3.Vec{X: x}, a: v3.Vec{Y: y}, b: v3.Vec{Z: z}, n: v3.Vec{X: 1}},
		}
	case csg.CylinderData:
		return []surface{
			disk{z: 0, r: p.Radius, up: false},
			disk{z: p.Height, r: p.Radius, up: true},
			lateral{r: p.Radius, h: p.Height},
		}
	case csg.SphereData:
		return []surface{sphere{r: p.Radius}}
	}
	return nil
}

// segments returns the number of straight segments approximating a full
// circle of radius r so that both the chord deviation and the angle between
// neighbouring normals stay within tol. size is the face's largest extent.
func segments(r, size float64, tol kernel.Tolerance) int {
	n := 0
	if d := tol.Deflection(size); d > 0 && r > 0 {
		if d >= r {
			n = minSegments
		} else {
			theta := 2 * math.Acos(1-d/r)
			n = int(math.Ceil(2 * math.Pi / theta))
		}
	}
	if a := tol.AngularDeflection; a > 0 {
		if na := int(math.Ceil(2 * math.Pi / a)); na > n {
			n = na
		}
	}
	if n == 0 {
		return maxSegments
	}
	return min(max(n, minSegments), maxSegments)
}

// planar is the parallelogram origin + s*a + t*b with outward normal n.
type planar struct {
	origin, a, b, n v3.Vec
}

func (f planar) eval(u, v float64) (v3.Vec, v3.Vec) {
	return f.origin.Add(f.a.MulScalar(u)).Add(f.b.MulScalar(v)), f.n
}

func (f planar) triangulate(kernel.Tolerance) localMesh {
	if f.a.Cross(f.b).Length() == 0 {
		return localMesh{}
	}
	o := f.origin
	m := localMesh{
		points:  []v3.Vec{o, o.Add(f.a), o.Add(f.a).Add(f.b), o.Add(f.b)},
		normals: []v3.Vec{f.n, f.n, f.n, f.n},
		tris:    [][3]int{{0, 1, 2}, {0, 2, 3}},
	}
	if f.a.Cross(f.b).Dot(f.n) < 0 {
		m.tris = [][3]int{{0, 2, 1}, {0, 3, 2}}
	}
	return m
}

// disk is a circular cap at height z facing +Z when up is set.
type disk struct {
	z, r float64
	up   bool
}

func (f disk) normal() v3.Vec {
	if f.up {
		return v3.Vec{Z: 1}
	}
	return v3.Vec{Z: -1}
}

// eval maps u to the radius and v to the angle.
func (f disk) eval(u, v float64) (v3.Vec, v3.Vec) {
	rho, phi := u*f.r, v*2*math.Pi
	return v3.Vec{X: rho * math.Cos(phi), Y: rho * math.Sin(phi), Z: f.z}, f.normal()
}

func (f disk) triangulate(tol kernel.Tolerance) localMesh {
	if f.r <= 0 {
		return localMesh{}
	}
	n := segments(f.r, 2*f.r, tol)
	nrm := f.normal()
	m := localMesh{
		points:  make([]v3.Vec, 0, n+1),
		normals: make([]v3.Vec, 0, n+1),
		tris:    make([][3]int, 0, n),
	}
	m.points = append(m.points, v3.Vec{Z: f.z})
	m.normals = append(m.normals, nrm)
	for i := 0; i < n; i++ {
		phi := 2 * math.Pi * float64(i) / float64(n)
		m.points = append(m.points, v3.Vec{X: f.r * math.Cos(phi), Y: f.r * math.Sin(phi), Z: f.z})
		m.normals = append(m.normals, nrm)
	}
	for i := 0; i < n; i++ {
		a, b := 1+i, 1+(i+1)%n
		if f.up {
			m.tris = append(m.tris, [3]int{0, a, b})
		} else {
			m.tris = append(m.tris, [3]int{0, b, a})
		}
	}
	return m
}

// lateral is the side of a cylinder standing on the XY plane.
type lateral struct {
	r, h float64
}

// eval maps u to the angle and v to the height.
func (f lateral) eval(u, v float64) (v3.Vec, v3.Vec) {
	phi := u * 2 * math.Pi
	c, s := math.Cos(phi), math.Sin(phi)
	return v3.Vec{X: f.r * c, Y: f.r * s, Z: v * f.h}, v3.Vec{X: c, Y: s}
}

func (f lateral) triangulate(tol kernel.Tolerance) localMesh {
	if f.r <= 0 || f.h <= 0 {
		return localMesh{}
	}
	n := segments(f.r, math.Max(2*f.r, f.h), tol)
	m := localMesh{
		points:  make([]v3.Vec, 0, 2*(n+1)),
		normals: make([]v3.Vec, 0, 2*(n+1)),
		tris:    make([][3]int, 0, 2*n),
	}
	// Columns 0 and n coincide on the seam.
	for i := 0; i <= n; i++ {
		phi := 2 * math.Pi * float64(i) / float64(n)
		c, s := math.Cos(phi), math.Sin(phi)
		nrm := v3.Vec{X: c, Y: s}
		m.points = append(m.points, v3.Vec{X: f.r * c, Y: f.r * s}, v3.Vec{X: f.r * c, Y: f.r * s, Z: f.h})
		m.normals = append(m.normals, nrm, nrm)
	}
	for i := 0; i < n; i++ {
		b0, t0 := 2*i, 2*i+1
		b1, t1 := 2*(i+1), 2*(i+1)+1
		m.tris = append(m.tris, [3]int{b0, b1, t1}, [3]int{b0, t1, t0})
	}
	return m
}

// sphere is a full sphere centred on the origin.
type sphere struct {
	r float64
}

// eval maps u to longitude and v to latitude, south pole first.
func (f sphere) eval(u, v float64) (v3.Vec, v3.Vec) {
	lon := u * 2 * math.Pi
	lat := (v - 0.5) * math.Pi
	n := v3.Vec{X: math.Cos(lat) * math.Cos(lon), Y: math.Cos(lat) * math.Sin(lon), Z: math.Sin(lat)}
	return n.MulScalar(f.r), n
}

func (f sphere) triangulate(tol kernel.Tolerance) localMesh {
	if f.r <= 0 {
		return localMesh{}
	}
	nLon := segments(f.r, 2*f.r, tol)
	nLat := max(nLon/2, 2)
	var m localMesh
	for i := 0; i <= nLat; i++ {
		for j := 0; j <= nLon; j++ {
			p, n := f.eval(float64(j)/float64(nLon), float64(i)/float64(nLat))
			m.points = append(m.points, p)
			m.normals = append(m.normals, n)
		}
	}
	idx := func(i, j int) int { return i*(nLon+1) + j }
	for i := 0; i < nLat; i++ {
		for j := 0; j < nLon; j++ {
			a, b := idx(i, j), idx(i, j+1)
			c, d := idx(i+1, j+1), idx(i+1, j)
			// Rows at the poles collapse to a point; skip the zero-area half.
			if i > 0 {
				m.tris = append(m.tris, [3]int{a, b, c})
			}
			if i < nLat-1 {
				m.tris = append(m.tris, [3]int{a, c, d})
			}
		}
	}
	return m
}

package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/uvreg/pkg/csg"
	"github.com/chazu/uvreg/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// faceIDBits is the number of low FaceID bits holding the face's index in
// its solid. The high bits hold the solid's serial, so IDs never collide
// across solids of one kernel.
const faceIDBits = 16

// sdfxSolid is one placed primitive.
type sdfxSolid struct {
	name   string
	kind   csg.PrimitiveKind
	data   csg.NodeData
	place  sdf.M44
	bounds sdf.Box3
	faces  []kernel.Face
	closed bool
}

func newSolid(serial uint64, p csg.Placed) (*sdfxSolid, error) {
	kind, ok := csg.PrimitiveOf(p.Node.Data)
	if !ok {
		return nil, fmt.Errorf("unsupported primitive data %T", p.Node.Data)
	}

	m := placementMatrix(p.Placements)
	local, err := primitiveBounds(p.Node.Data)
	if err != nil {
		return nil, err
	}

	s := &sdfxSolid{
		name:   p.Name,
		kind:   kind,
		data:   p.Node.Data,
		place:  m,
		bounds: m.MulBox(local),
	}
	for i, surf := range primitiveSurfaces(p.Node.Data) {
		s.faces = append(s.faces, &sdfxFace{
			id:    kernel.FaceID(serial<<faceIDBits | uint64(i)),
			owner: s,
			surf:  surf,
		})
	}
	return s, nil
}

// placementMatrix composes placements outermost first. Within one placement
// the rotation (X, then Y, then Z) is applied before the translation.
func placementMatrix(ps []csg.Placement) sdf.M44 {
	m := sdf.Translate3d(v3.Vec{})
	for _, p := range ps {
		t := sdf.Translate3d(v3.Vec{X: p.Translation.X, Y: p.Translation.Y, Z: p.Translation.Z})
		r := sdf.RotateZ(deg2rad(p.Rotation.Z)).
			Mul(sdf.RotateY(deg2rad(p.Rotation.Y))).
			Mul(sdf.RotateX(deg2rad(p.Rotation.X)))
		m = m.Mul(t).Mul(r)
	}
	return m
}

func deg2rad(d float64) float64 {
	return d * math.Pi / 180.0
}

// primitiveBounds returns the primitive's bounding box in its local frame:
// a box with its minimum corner at the origin, a cylinder standing on the
// XY plane, a sphere centred on the origin. Zero box extents are allowed
// and give flat solids with empty faces.
func primitiveBounds(d csg.NodeData) (sdf.Box3, error) {
	switch p := d.(type) {
	case csg.BoxData:
		if p.Size.X < 0 || p.Size.Y < 0 || p.Size.Z < 0 {
			return sdf.Box3{}, fmt.Errorf("box: negative size %v", p.Size)
		}
		return sdf.Box3{Max: v3.Vec{X: p.Size.X, Y: p.Size.Y, Z: p.Size.Z}}, nil
	case csg.CylinderData:
		if p.Radius <= 0 || p.Height <= 0 {
			return sdf.Box3{}, fmt.Errorf("cylinder: radius %g and height %g must be positive", p.Radius, p.Height)
		}
		return sdf.Box3{
			Min: v3.Vec{X: -p.Radius, Y: -p.Radius},
			Max: v3.Vec{X: p.Radius, Y: p.Radius, Z: p.Height},
		}, nil
	case csg.SphereData:
		if p.Radius <= 0 {
			return sdf.Box3{}, fmt.Errorf("sphere: radius %g must be positive", p.Radius)
		}
		r := v3.Vec{X: p.Radius, Y: p.Radius, Z: p.Radius}
		return sdf.Box3{Min: r.Neg(), Max: r}, nil
	}
	return sdf.Box3{}, fmt.Errorf("unsupported primitive data %T", d)
}

// toWorld maps a local point through the placement.
func (s *sdfxSolid) toWorld(p v3.Vec) [3]float64 {
	w := s.place.MulPosition(p)
	return [3]float64{w.X, w.Y, w.Z}
}

// normalToWorld rotates a local normal. Placements are rigid, so the
// translation cancels out.
func (s *sdfxSolid) normalToWorld(n v3.Vec) [3]float64 {
	w := s.place.MulPosition(n).Sub(s.place.MulPosition(v3.Vec{}))
	return [3]float64{w.X, w.Y, w.Z}
}

func (s *sdfxSolid) Name() string { return s.name }

// Kind returns the primitive kind the solid was built from.
func (s *sdfxSolid) Kind() csg.PrimitiveKind { return s.kind }

func (s *sdfxSolid) Faces() ([]kernel.Face, error) {
	if s.closed {
		return nil, kernel.ErrClosed
	}
	out := make([]kernel.Face, len(s.faces))
	copy(out, s.faces)
	return out, nil
}

// Volume is exact for every supported primitive.
func (s *sdfxSolid) Volume() (float64, error) {
	if s.closed {
		return 0, kernel.ErrClosed
	}
	switch p := s.data.(type) {
	case csg.BoxData:
		return p.Size.X * p.Size.Y * p.Size.Z, nil
	case csg.CylinderData:
		return math.Pi * p.Radius * p.Radius * p.Height, nil
	case csg.SphereData:
		return 4.0 / 3.0 * math.Pi * p.Radius * p.Radius * p.Radius, nil
	}
	return 0, fmt.Errorf("sdfx: volume of %T", s.data)
}

func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	min = [3]float64{s.bounds.Min.X, s.bounds.Min.Y, s.bounds.Min.Z}
	max = [3]float64{s.bounds.Max.X, s.bounds.Max.Y, s.bounds.Max.Z}
	return min, max
}

func (s *sdfxSolid) Close() error {
	s.closed = true
	return nil
}

// sdfxFace is one analytic face of a solid.
type sdfxFace struct {
	id    kernel.FaceID
	owner *sdfxSolid
	surf  surface
}

func (f *sdfxFace) ID() kernel.FaceID { return f.id }

func (f *sdfxFace) Triangulate(tol kernel.Tolerance) (*kernel.FaceMesh, error) {
	if f.owner.closed {
		return nil, kernel.ErrClosed
	}
	if err := tol.Validate(); err != nil {
		return nil, err
	}
	local := f.surf.triangulate(tol)
	out := &kernel.FaceMesh{
		Vertices:  make([][3]float64, len(local.points)),
		Normals:   make([][3]float64, len(local.normals)),
		Triangles: local.tris,
	}
	for i, p := range local.points {
		out.Vertices[i] = f.owner.toWorld(p)
	}
	for i, n := range local.normals {
		out.Normals[i] = f.owner.normalToWorld(n)
	}
	return out, nil
}

func (f *sdfxFace) SampleUV(nu, nv int) (*kernel.UVGrid, error) {
	if f.owner.closed {
		return nil, kernel.ErrClosed
	}
	if nu < 2 || nv < 2 {
		return nil, fmt.Errorf("sdfx: uv grid %dx%d: need at least 2 samples per direction", nu, nv)
	}
	g := &kernel.UVGrid{
		NU:      nu,
		NV:      nv,
		Points:  make([][3]float64, nu*nv),
		Normals: make([][3]float64, nu*nv),
		Mask:    make([]float64, nu*nv),
	}
	for i := 0; i < nu; i++ {
		u := float64(i) / float64(nu-1)
		for j := 0; j < nv; j++ {
			v := float64(j) / float64(nv-1)
			p, n := f.surf.eval(u, v)
			k := g.At(i, j)
			g.Points[k] = f.owner.toWorld(p)
			g.Normals[k] = f.owner.normalToWorld(n)
			g.Mask[k] = 1
		}
	}
	return g, nil
}

// Package kerneltest provides in-memory kernel implementations for tests.
package kerneltest

import (
	"fmt"

	"github.com/chazu/uvreg/pkg/kernel"
)

// Compile-time interface checks.
var (
	_ kernel.Kernel = (*Kernel)(nil)
	_ kernel.Solid  = (*Solid)(nil)
	_ kernel.Face   = (*Face)(nil)
)

// Face returns a fixed mesh regardless of tolerance.
type Face struct {
	FaceID kernel.FaceID
	Mesh   kernel.FaceMesh
	// Err, when set, is returned by Triangulate and SampleUV.
	Err error
}

func (f *Face) ID() kernel.FaceID { return f.FaceID }

func (f *Face) Triangulate(kernel.Tolerance) (*kernel.FaceMesh, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	m := f.Mesh
	return &m, nil
}

// SampleUV places every sample at the face's first vertex.
func (f *Face) SampleUV(nu, nv int) (*kernel.UVGrid, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	g := &kernel.UVGrid{
		NU: nu, NV: nv,
		Points:  make([][3]float64, nu*nv),
		Normals: make([][3]float64, nu*nv),
		Mask:    make([]float64, nu*nv),
	}
	if len(f.Mesh.Vertices) > 0 {
		for i := range g.Points {
			g.Points[i] = f.Mesh.Vertices[0]
			g.Mask[i] = 1
		}
	}
	return g, nil
}

// Solid is a fixed list of faces with a fixed volume.
type Solid struct {
	SolidName string
	FaceList  []kernel.Face
	Vol       float64
	Min, Max  [3]float64
	Closed    bool
}

func (s *Solid) Name() string { return s.SolidName }

func (s *Solid) Faces() ([]kernel.Face, error) {
	if s.Closed {
		return nil, kernel.ErrClosed
	}
	return s.FaceList, nil
}

func (s *Solid) Volume() (float64, error) {
	if s.Closed {
		return 0, kernel.ErrClosed
	}
	return s.Vol, nil
}

func (s *Solid) BoundingBox() (min, max [3]float64) { return s.Min, s.Max }

func (s *Solid) Close() error {
	s.Closed = true
	return nil
}

// Kernel serves solids by path. Missing paths fail to load.
type Kernel struct {
	Files map[string][]*Solid
	// Loads counts Load calls per path.
	Loads map[string]int
}

// NewKernel returns an empty Kernel.
func NewKernel() *Kernel {
	return &Kernel{Files: map[string][]*Solid{}, Loads: map[string]int{}}
}

func (k *Kernel) Load(path string) ([]kernel.Solid, error) {
	k.Loads[path]++
	solids, ok := k.Files[path]
	if !ok {
		return nil, fmt.Errorf("kerneltest: no such file %s", path)
	}
	if len(solids) == 0 {
		return nil, kernel.ErrNoSolid
	}
	out := make([]kernel.Solid, len(solids))
	for i, s := range solids {
		out[i] = s
	}
	return out, nil
}

// Quad returns a face holding one unit square in the plane z, split into two
// triangles.
func Quad(id kernel.FaceID, z float64) *Face {
	return &Face{
		FaceID: id,
		Mesh: kernel.FaceMesh{
			Vertices:  [][3]float64{{0, 0, z}, {1, 0, z}, {1, 1, z}, {0, 1, z}},
			Normals:   [][3]float64{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
			Triangles: [][3]int{{0, 1, 2}, {0, 2, 3}},
		},
	}
}

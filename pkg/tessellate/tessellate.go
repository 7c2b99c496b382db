// Package tessellate turns a B-rep solid into one render mesh whose
// triangles remember the face they came from.
package tessellate

import (
	"fmt"

	"github.com/chazu/uvreg/pkg/kernel"
)

// Mesh is a whole-solid triangle mesh. TriangleMapping[i] is the dense face
// index of Triangles[i].
type Mesh struct {
	Vertices        [][3]float32
	Triangles       [][3]int32
	TriangleMapping []int32
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}

// Validate checks that every triangle has a face index and that every
// vertex index is in range.
func (m *Mesh) Validate() error {
	if len(m.TriangleMapping) != len(m.Triangles) {
		return fmt.Errorf("tessellate: %d triangles but %d mapping entries", len(m.Triangles), len(m.TriangleMapping))
	}
	n := int32(len(m.Vertices))
	for i, tri := range m.Triangles {
		for _, idx := range tri {
			if idx < 0 || idx >= n {
				return fmt.Errorf("tessellate: triangle %d references vertex %d of %d", i, idx, n)
			}
		}
	}
	return nil
}

// TriangulateWithFaceMapping triangulates every face of s in enumeration
// order under tol. Face-local indices are offset by the number of vertices
// already emitted, so faces are concatenated without welding. A face that
// yields no triangles contributes nothing. The solid is not mutated.
func TriangulateWithFaceMapping(s kernel.Solid, tol kernel.Tolerance) (*Mesh, error) {
	if err := tol.Validate(); err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}
	mapper, err := kernel.NewEntityMapper(s)
	if err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}
	faces, err := s.Faces()
	if err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}

	mesh := &Mesh{}
	for _, f := range faces {
		fm, err := f.Triangulate(tol)
		if err != nil {
			return nil, fmt.Errorf("tessellate: face %d: %w", f.ID(), err)
		}
		if fm.IsEmpty() {
			continue
		}
		faceIdx, err := mapper.FaceIndex(f)
		if err != nil {
			return nil, fmt.Errorf("tessellate: %w", err)
		}

		offset := int32(len(mesh.Vertices))
		for _, v := range fm.Vertices {
			mesh.Vertices = append(mesh.Vertices, [3]float32{float32(v[0]), float32(v[1]), float32(v[2])})
		}
		for _, tri := range fm.Triangles {
			mesh.Triangles = append(mesh.Triangles, [3]int32{
				offset + int32(tri[0]),
				offset + int32(tri[1]),
				offset + int32(tri[2]),
			})
			mesh.TriangleMapping = append(mesh.TriangleMapping, int32(faceIdx))
		}
	}
	return mesh, nil
}

package kernel

// FaceMesh is the triangulation of a single face. Triangle indices are local
// to Vertices.
type FaceMesh struct {
	Vertices  [][3]float64
	Normals   [][3]float64
	Triangles [][3]int
}

// VertexCount returns the number of vertices.
func (m *FaceMesh) VertexCount() int {
	return len(m.Vertices)
}

// TriangleCount returns the number of triangles.
func (m *FaceMesh) TriangleCount() int {
	return len(m.Triangles)
}

// IsEmpty returns true if the mesh has no triangles.
func (m *FaceMesh) IsEmpty() bool {
	return len(m.Triangles) == 0
}

// UVGrid holds samples of a face on a regular parameter grid, row-major in
// u then v.
type UVGrid struct {
	NU, NV  int
	Points  [][3]float64
	Normals [][3]float64
	// Mask is 1 where the sample lies inside the trimmed face, 0 outside.
	Mask []float64
}

// At returns the flat index of sample (i, j).
func (g *UVGrid) At(i, j int) int {
	return i*g.NV + j
}

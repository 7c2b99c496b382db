package tessellate_test

import (
	"errors"
	"testing"

	"github.com/chazu/uvreg/pkg/kernel"
	"github.com/chazu/uvreg/pkg/kernel/kerneltest"
	"github.com/chazu/uvreg/pkg/kernel/sdfx"
	"github.com/chazu/uvreg/pkg/tessellate"
)

// loadOne returns the first solid of a script.
func loadOne(t *testing.T, source string) kernel.Solid {
	t.Helper()
	solids, err := sdfx.New().LoadSource(source)
	if err != nil {
		t.Fatalf("LoadSource failed: %v", err)
	}
	return solids[0]
}

func TestCubeMapping(t *testing.T) {
	s := loadOne(t, `(solid "cube" (box 10 10 10))`)
	mesh, err := tessellate.TriangulateWithFaceMapping(s, kernel.DefaultTolerance())
	if err != nil {
		t.Fatalf("TriangulateWithFaceMapping failed: %v", err)
	}
	if err := mesh.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if mesh.TriangleCount() != 12 {
		t.Errorf("triangle count = %d, want 12", mesh.TriangleCount())
	}
	if mesh.VertexCount() != 24 {
		t.Errorf("vertex count = %d, want 24 (faces are not welded)", mesh.VertexCount())
	}

	distinct := map[int32]int{}
	for _, fi := range mesh.TriangleMapping {
		distinct[fi]++
	}
	if len(distinct) != 6 {
		t.Fatalf("got %d distinct face indices, want 6", len(distinct))
	}
	for fi := int32(0); fi < 6; fi++ {
		if distinct[fi] != 2 {
			t.Errorf("face %d has %d triangles, want 2", fi, distinct[fi])
		}
	}
	// Mapping follows enumeration order.
	for i, fi := range mesh.TriangleMapping {
		if fi != int32(i/2) {
			t.Errorf("mapping[%d] = %d, want %d", i, fi, i/2)
		}
	}
}

func TestCylinderMapping(t *testing.T) {
	s := loadOne(t, `(solid "c" (cylinder :radius 5 :height 20))`)
	mesh, err := tessellate.TriangulateWithFaceMapping(s, kernel.DefaultTolerance())
	if err != nil {
		t.Fatalf("TriangulateWithFaceMapping failed: %v", err)
	}
	if err := mesh.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	seen := map[int32]bool{}
	for _, fi := range mesh.TriangleMapping {
		if fi < 0 || fi > 2 {
			t.Fatalf("face index %d out of range", fi)
		}
		seen[fi] = true
	}
	if len(seen) != 3 {
		t.Errorf("got %d faces in mapping, want 3", len(seen))
	}
}

func TestEmptyFaceKeepsOffsets(t *testing.T) {
	empty := &kerneltest.Face{FaceID: 2}
	s := &kerneltest.Solid{FaceList: []kernel.Face{
		kerneltest.Quad(1, 0),
		empty,
		kerneltest.Quad(3, 1),
	}}
	mesh, err := tessellate.TriangulateWithFaceMapping(s, kernel.DefaultTolerance())
	if err != nil {
		t.Fatalf("TriangulateWithFaceMapping failed: %v", err)
	}
	if err := mesh.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if mesh.VertexCount() != 8 || mesh.TriangleCount() != 4 {
		t.Fatalf("got %d vertices / %d triangles, want 8 / 4", mesh.VertexCount(), mesh.TriangleCount())
	}
	want := []int32{0, 0, 2, 2}
	for i, fi := range mesh.TriangleMapping {
		if fi != want[i] {
			t.Errorf("mapping[%d] = %d, want %d", i, fi, want[i])
		}
	}
	// Second quad's triangles are offset past the first quad's vertices.
	if mesh.Triangles[2] != [3]int32{4, 5, 6} {
		t.Errorf("triangles[2] = %v, want [4 5 6]", mesh.Triangles[2])
	}
}

func TestDegenerateSolidYieldsEmptyMesh(t *testing.T) {
	s := &kerneltest.Solid{FaceList: []kernel.Face{&kerneltest.Face{FaceID: 1}}}
	mesh, err := tessellate.TriangulateWithFaceMapping(s, kernel.DefaultTolerance())
	if err != nil {
		t.Fatalf("TriangulateWithFaceMapping failed: %v", err)
	}
	if mesh.TriangleCount() != 0 || mesh.VertexCount() != 0 {
		t.Errorf("expected empty mesh, got %d triangles", mesh.TriangleCount())
	}
}

func TestFaceErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	s := &kerneltest.Solid{FaceList: []kernel.Face{&kerneltest.Face{FaceID: 1, Err: boom}}}
	if _, err := tessellate.TriangulateWithFaceMapping(s, kernel.DefaultTolerance()); !errors.Is(err, boom) {
		t.Errorf("error = %v, want boom", err)
	}
}

func TestInvalidTolerance(t *testing.T) {
	s := &kerneltest.Solid{}
	_, err := tessellate.TriangulateWithFaceMapping(s, kernel.Tolerance{AngularDeflection: -1})
	if !errors.Is(err, kernel.ErrInvalidTolerance) {
		t.Errorf("error = %v, want ErrInvalidTolerance", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mesh    tessellate.Mesh
		wantErr bool
	}{
		{"empty", tessellate.Mesh{}, false},
		{"ok", tessellate.Mesh{
			Vertices:        [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			Triangles:       [][3]int32{{0, 1, 2}},
			TriangleMapping: []int32{0},
		}, false},
		{"mapping short", tessellate.Mesh{
			Vertices:  [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			Triangles: [][3]int32{{0, 1, 2}},
		}, true},
		{"index out of range", tessellate.Mesh{
			Vertices:        [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			Triangles:       [][3]int32{{0, 1, 3}},
			TriangleMapping: []int32{0},
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.mesh.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

package sdfx

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/uvreg/pkg/kernel"
)

func load(t *testing.T, source string) []kernel.Solid {
	t.Helper()
	solids, err := New().LoadSource(source)
	if err != nil {
		t.Fatalf("LoadSource failed: %v", err)
	}
	return solids
}

func triangulateAll(t *testing.T, s kernel.Solid, tol kernel.Tolerance) []*kernel.FaceMesh {
	t.Helper()
	faces, err := s.Faces()
	if err != nil {
		t.Fatalf("Faces failed: %v", err)
	}
	out := make([]*kernel.FaceMesh, len(faces))
	for i, f := range faces {
		m, err := f.Triangulate(tol)
		if err != nil {
			t.Fatalf("Triangulate face %d failed: %v", i, err)
		}
		out[i] = m
	}
	return out
}

func sub(a, b [3]float64) [3]float64 { return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}

func dot(a, b [3]float64) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

// checkOutward verifies every triangle winds counter-clockwise seen from
// outside a convex solid containing center.
func checkOutward(t *testing.T, meshes []*kernel.FaceMesh, center [3]float64) {
	t.Helper()
	for fi, m := range meshes {
		for ti, tri := range m.Triangles {
			a, b, c := m.Vertices[tri[0]], m.Vertices[tri[1]], m.Vertices[tri[2]]
			n := cross(sub(b, a), sub(c, a))
			if dot(n, n) == 0 {
				t.Errorf("face %d triangle %d is degenerate", fi, ti)
				continue
			}
			if dot(n, sub(a, center)) <= 0 {
				t.Errorf("face %d triangle %d points inward", fi, ti)
			}
		}
	}
}

func TestBoxFaces(t *testing.T) {
	solids := load(t, `(solid "cube" (box :size (vec3 10 10 10)))`)
	if len(solids) != 1 {
		t.Fatalf("got %d solids, want 1", len(solids))
	}
	s := solids[0]
	if s.Name() != "cube" {
		t.Errorf("Name() = %q, want cube", s.Name())
	}

	meshes := triangulateAll(t, s, kernel.DefaultTolerance())
	if len(meshes) != 6 {
		t.Fatalf("got %d faces, want 6", len(meshes))
	}
	total := 0
	for i, m := range meshes {
		if m.TriangleCount() != 2 {
			t.Errorf("face %d has %d triangles, want 2", i, m.TriangleCount())
		}
		if len(m.Normals) != len(m.Vertices) {
			t.Errorf("face %d: %d normals for %d vertices", i, len(m.Normals), len(m.Vertices))
		}
		total += m.TriangleCount()
	}
	if total != 12 {
		t.Errorf("box triangle count = %d, want 12", total)
	}
	checkOutward(t, meshes, [3]float64{5, 5, 5})
}

func TestBoxVolumeAndBounds(t *testing.T) {
	s := load(t, `(solid "b" (box 100 50 25))`)[0]
	vol, err := s.Volume()
	if err != nil {
		t.Fatalf("Volume failed: %v", err)
	}
	if vol != 125000 {
		t.Errorf("Volume() = %g, want 125000", vol)
	}

	min, max := s.BoundingBox()
	const tol = 0.01
	expectMax := [3]float64{100, 50, 25}
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]) > tol {
			t.Errorf("min[%d] = %f, expected 0", i, min[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected %f", i, max[i], expectMax[i])
		}
	}
}

func TestTranslate(t *testing.T) {
	s := load(t, `(place (solid "b" (box 10 10 10)) :at (vec3 100 200 300))`)[0]
	min, max := s.BoundingBox()

	const tol = 0.5
	expectMin := [3]float64{100, 200, 300}
	expectMax := [3]float64{110, 210, 310}
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected ~%f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected ~%f", i, max[i], expectMax[i])
		}
	}

	meshes := triangulateAll(t, s, kernel.DefaultTolerance())
	for _, m := range meshes {
		for _, v := range m.Vertices {
			for i := 0; i < 3; i++ {
				if v[i] < expectMin[i]-1e-9 || v[i] > expectMax[i]+1e-9 {
					t.Fatalf("vertex %v outside placed box", v)
				}
			}
		}
	}
}

func TestRotate(t *testing.T) {
	// A long box along X rotated 90 degrees around Z should extend along Y instead.
	s := load(t, `(place (solid "b" (box 100 10 10)) :rotate (vec3 0 0 90))`)[0]
	min, max := s.BoundingBox()

	xExtent := max[0] - min[0]
	yExtent := max[1] - min[1]

	const tol = 1.0
	if math.Abs(xExtent-10) > tol {
		t.Errorf("rotated X extent = %f, expected ~10", xExtent)
	}
	if math.Abs(yExtent-100) > tol {
		t.Errorf("rotated Y extent = %f, expected ~100", yExtent)
	}

	vol, _ := s.Volume()
	if vol != 10000 {
		t.Errorf("rotation changed volume: %g", vol)
	}
	checkOutward(t, triangulateAll(t, s, kernel.DefaultTolerance()), [3]float64{-5, 50, 5})
}

func TestCylinder(t *testing.T) {
	s := load(t, `(solid "c" (cylinder :radius 10 :height 50))`)[0]
	meshes := triangulateAll(t, s, kernel.DefaultTolerance())
	if len(meshes) != 3 {
		t.Fatalf("got %d faces, want 3", len(meshes))
	}
	for i, m := range meshes {
		if m.IsEmpty() {
			t.Errorf("face %d is empty", i)
		}
	}
	checkOutward(t, meshes, [3]float64{0, 0, 25})

	vol, _ := s.Volume()
	if want := math.Pi * 100 * 50; math.Abs(vol-want) > 1e-9 {
		t.Errorf("Volume() = %g, want %g", vol, want)
	}
}

func TestSphere(t *testing.T) {
	s := load(t, `(solid "s" (sphere :radius 5))`)[0]
	meshes := triangulateAll(t, s, kernel.DefaultTolerance())
	if len(meshes) != 1 {
		t.Fatalf("got %d faces, want 1", len(meshes))
	}
	checkOutward(t, meshes, [3]float64{})
	for _, v := range meshes[0].Vertices {
		if r := math.Sqrt(dot(v, v)); math.Abs(r-5) > 1e-9 {
			t.Fatalf("vertex %v at radius %g, want 5", v, r)
		}
	}
}

func TestFinerToleranceMoreTriangles(t *testing.T) {
	s := load(t, `(solid "c" (cylinder :radius 10 :height 10))`)[0]
	coarse := triangulateAll(t, s, kernel.Tolerance{LinearDeflection: 0.1, AngularDeflection: 1, Relative: true})
	fine := triangulateAll(t, s, kernel.Tolerance{LinearDeflection: 0.001, AngularDeflection: 0.05, Relative: true})
	if fine[2].TriangleCount() <= coarse[2].TriangleCount() {
		t.Errorf("fine lateral %d triangles, coarse %d", fine[2].TriangleCount(), coarse[2].TriangleCount())
	}
}

func TestSegments(t *testing.T) {
	tests := []struct {
		name string
		r    float64
		tol  kernel.Tolerance
		want int
	}{
		{"deflection larger than radius", 1, kernel.Tolerance{LinearDeflection: 5}, minSegments},
		{"angle only", 1, kernel.Tolerance{AngularDeflection: math.Pi / 4}, 8},
		{"no constraint", 1, kernel.Tolerance{}, maxSegments},
		{"clamped", 1000, kernel.Tolerance{LinearDeflection: 1e-9}, maxSegments},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := segments(tt.r, 2*tt.r, tt.tol); got != tt.want {
				t.Errorf("segments() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDegenerateBox(t *testing.T) {
	s := load(t, `(solid "flat" (box 10 10 0))`)[0]
	meshes := triangulateAll(t, s, kernel.DefaultTolerance())
	empty := 0
	for _, m := range meshes {
		if m.IsEmpty() {
			empty++
		}
	}
	// Only the top and bottom faces keep any area.
	if empty != 4 {
		t.Errorf("got %d empty faces, want 4", empty)
	}

	min, max := s.BoundingBox()
	if min != [3]float64{0, 0, 0} || max != [3]float64{10, 10, 0} {
		t.Errorf("BoundingBox() = %v, %v, want [0 0 0], [10 10 0]", min, max)
	}
	if vol, _ := s.Volume(); vol != 0 {
		t.Errorf("Volume() = %g, want 0", vol)
	}
}

func TestPlacedBoundsAreAnalytic(t *testing.T) {
	s := load(t, `(place (solid "c" (cylinder :radius 2 :height 6)) :at (vec3 1 1 1) :rotate (vec3 90 0 0))`)[0]
	min, max := s.BoundingBox()
	// Rotating +Z onto -Y lays the cylinder along Y below its base.
	wantMin := [3]float64{-1, -5, -1}
	wantMax := [3]float64{3, 1, 3}
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-wantMin[i]) > 1e-9 || math.Abs(max[i]-wantMax[i]) > 1e-9 {
			t.Fatalf("BoundingBox() = %v, %v, want %v, %v", min, max, wantMin, wantMax)
		}
	}
}

func TestInvalidTolerance(t *testing.T) {
	s := load(t, `(solid "b" (box 1 1 1))`)[0]
	faces, _ := s.Faces()
	_, err := faces[0].Triangulate(kernel.Tolerance{LinearDeflection: -1})
	if !errors.Is(err, kernel.ErrInvalidTolerance) {
		t.Errorf("error = %v, want ErrInvalidTolerance", err)
	}
}

func TestSampleUV(t *testing.T) {
	s := load(t, `(solid "b" (box 2 2 2))`)[0]
	faces, _ := s.Faces()
	g, err := faces[1].SampleUV(3, 4)
	if err != nil {
		t.Fatalf("SampleUV failed: %v", err)
	}
	if len(g.Points) != 12 || len(g.Normals) != 12 || len(g.Mask) != 12 {
		t.Fatalf("grid sizes %d/%d/%d, want 12", len(g.Points), len(g.Normals), len(g.Mask))
	}
	// Face 1 is the top face.
	for i, p := range g.Points {
		if math.Abs(p[2]-2) > 1e-9 {
			t.Errorf("point %d = %v, want z=2", i, p)
		}
		if math.Abs(g.Normals[i][2]-1) > 1e-9 {
			t.Errorf("normal %d = %v, want +Z", i, g.Normals[i])
		}
	}
	if _, err := faces[0].SampleUV(1, 5); err == nil {
		t.Error("expected error for 1-sample grid")
	}
}

func TestMultipleSolidsUniqueFaceIDs(t *testing.T) {
	solids := load(t, `
(solid "a" (box 1 1 1))
(solid "b" (cylinder :radius 1 :height 1))
`)
	if len(solids) != 2 {
		t.Fatalf("got %d solids, want 2", len(solids))
	}
	if solids[0].Name() != "a" || solids[1].Name() != "b" {
		t.Errorf("solid order = %s, %s", solids[0].Name(), solids[1].Name())
	}
	seen := map[kernel.FaceID]bool{}
	for _, s := range solids {
		faces, _ := s.Faces()
		for _, f := range faces {
			if seen[f.ID()] {
				t.Fatalf("duplicate face id %d", f.ID())
			}
			seen[f.ID()] = true
		}
	}

	m, err := kernel.NewEntityMapper(solids[0])
	if err != nil {
		t.Fatalf("NewEntityMapper: %v", err)
	}
	other, _ := solids[1].Faces()
	if _, err := m.FaceIndex(other[0]); !errors.Is(err, kernel.ErrUnknownFace) {
		t.Errorf("foreign face error = %v, want ErrUnknownFace", err)
	}
}

func TestClose(t *testing.T) {
	s := load(t, `(solid "b" (box 1 1 1))`)[0]
	faces, _ := s.Faces()
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if _, err := s.Faces(); !errors.Is(err, kernel.ErrClosed) {
		t.Errorf("Faces after Close = %v, want ErrClosed", err)
	}
	if _, err := s.Volume(); !errors.Is(err, kernel.ErrClosed) {
		t.Errorf("Volume after Close = %v, want ErrClosed", err)
	}
	if _, err := faces[0].Triangulate(kernel.DefaultTolerance()); !errors.Is(err, kernel.ErrClosed) {
		t.Errorf("Triangulate after Close = %v, want ErrClosed", err)
	}
}

func TestLoadErrors(t *testing.T) {
	k := New()
	if _, err := k.LoadSource(""); !errors.Is(err, kernel.ErrNoSolid) {
		t.Errorf("empty source error = %v, want ErrNoSolid", err)
	}
	if _, err := k.LoadSource(`(def x 1)`); !errors.Is(err, kernel.ErrNoSolid) {
		t.Errorf("no-solid source error = %v, want ErrNoSolid", err)
	}
	if _, err := k.LoadSource(`(solid "b" (sphere :radius -1))`); err == nil {
		t.Error("expected error for negative radius")
	}
	if _, err := k.Load(filepath.Join(t.TempDir(), "missing.csg")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "part001.csg")
	if err := os.WriteFile(path, []byte(`(solid "p" (box 2 3 4))`), 0o644); err != nil {
		t.Fatal(err)
	}
	solids, err := New().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	vol, _ := solids[0].Volume()
	if vol != 24 {
		t.Errorf("Volume() = %g, want 24", vol)
	}
}

func TestExampleSolids(t *testing.T) {
	tests := []struct {
		file   string
		solids int
		volume float64
	}{
		{"table.csg", 9, 4*50*50*750 + 2*500*20*100 + 2*20*500*100 + 600*600*25},
		{"bracket.csg", 3, 80*40*8 + 8*40*60 + math.Pi*6*6*12},
		{"can.csg", 1, math.Pi * 33 * 33 * 115},
		{"tilted_block.csg", 1, 40 * 20 * 10},
		{"ball.csg", 1, 4.0 / 3.0 * math.Pi * 21.35 * 21.35 * 21.35},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			solids, err := New().Load(filepath.Join("..", "..", "..", "examples", "solids", tt.file))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if len(solids) != tt.solids {
				t.Fatalf("got %d solids, want %d", len(solids), tt.solids)
			}
			var total float64
			for _, s := range solids {
				v, err := s.Volume()
				if err != nil {
					t.Fatal(err)
				}
				total += v
			}
			if math.Abs(total-tt.volume) > 1e-6*tt.volume {
				t.Errorf("total volume = %g, want %g", total, tt.volume)
			}
		})
	}
}

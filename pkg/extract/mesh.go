package extract

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/chazu/uvreg/pkg/cadfile"
	"github.com/chazu/uvreg/pkg/kernel"
	"github.com/chazu/uvreg/pkg/metrics"
	"github.com/chazu/uvreg/pkg/npz"
	"github.com/chazu/uvreg/pkg/tessellate"
)

// Array names inside a mesh archive.
const (
	ArrayVertices        = "vertices"
	ArrayTriangles       = "triangles"
	ArrayTriangleMapping = "triangle_mapping"
)

// MeshExtractor writes one mesh archive per solid file.
type MeshExtractor struct {
	kernel  kernel.Kernel
	tol     kernel.Tolerance
	log     *zap.Logger
	metrics *metrics.Pipeline
}

// NewMeshExtractor returns an extractor. log and m may be nil.
func NewMeshExtractor(k kernel.Kernel, tol kernel.Tolerance, log *zap.Logger, m *metrics.Pipeline) *MeshExtractor {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &MeshExtractor{kernel: k, tol: tol, log: log, metrics: m}
}

// Run converts every solid file directly under inputDir into
// <outputDir>/<stem>.npz. It returns the archive paths written.
func (e *MeshExtractor) Run(inputDir, outputDir string) ([]string, error) {
	if err := e.tol.Validate(); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	files, err := cadfile.List(inputDir, cadfile.SolidExt)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	e.log.Info("mesh extraction started",
		zap.String("input", inputDir),
		zap.String("output", outputDir),
		zap.Int("files", len(files)),
	)
	written := make([]string, 0, len(files))
	for _, path := range files {
		out := filepath.Join(outputDir, string(cadfile.StemOf(path))+cadfile.MeshExt)
		timer := metrics.NewTimer()
		mesh, err := e.ExtractFile(path, out)
		e.metrics.RecordFile("mesh", err, timer.Duration())
		if err != nil {
			return written, fmt.Errorf("extract: %s: %w", cadfile.NameOf(path), err)
		}
		e.metrics.Triangles.Add(float64(mesh.TriangleCount()))
		e.log.Debug("mesh written",
			zap.String("file", string(cadfile.NameOf(path))),
			zap.Int("vertices", mesh.VertexCount()),
			zap.Int("triangles", mesh.TriangleCount()),
		)
		written = append(written, out)
	}
	e.log.Info("mesh extraction finished", zap.Int("written", len(written)))
	return written, nil
}

// ExtractFile triangulates the first solid in path and writes it to out.
// Any further solids in the file are released unused.
func (e *MeshExtractor) ExtractFile(path, out string) (*tessellate.Mesh, error) {
	solids, err := e.kernel.Load(path)
	if err != nil {
		return nil, err
	}
	e.metrics.SolidsLoaded.Add(float64(len(solids)))
	defer func() {
		for _, s := range solids {
			s.Close()
		}
	}()
	if len(solids) == 0 {
		return nil, kernel.ErrNoSolid
	}

	mesh, err := tessellate.TriangulateWithFaceMapping(solids[0], e.tol)
	if err != nil {
		return nil, err
	}
	if err := WriteMesh(out, mesh); err != nil {
		return nil, err
	}
	return mesh, nil
}

// WriteMesh writes m as an archive with float32 vertices (N×3), int32
// triangles (M×3) and int32 triangle_mapping (M).
func WriteMesh(path string, m *tessellate.Mesh) error {
	if err := m.Validate(); err != nil {
		return err
	}
	verts := make([]float32, 0, 3*len(m.Vertices))
	for _, v := range m.Vertices {
		verts = append(verts, v[0], v[1], v[2])
	}
	tris := make([]int32, 0, 3*len(m.Triangles))
	for _, t := range m.Triangles {
		tris = append(tris, t[0], t[1], t[2])
	}
	return npz.WriteFile(path, func(w *npz.Writer) error {
		if err := w.WriteFloat32(ArrayVertices, []int{len(m.Vertices), 3}, verts); err != nil {
			return err
		}
		if err := w.WriteInt32(ArrayTriangles, []int{len(m.Triangles), 3}, tris); err != nil {
			return err
		}
		return w.WriteInt32(ArrayTriangleMapping, []int{len(m.TriangleMapping)}, m.TriangleMapping)
	})
}

// ReadMesh reads an archive written by WriteMesh.
func ReadMesh(path string) (*tessellate.Mesh, error) {
	arrays, err := npz.ReadFile(path)
	if err != nil {
		return nil, err
	}
	get := func(name string, dt npz.Dtype, cols int) (*npz.Array, error) {
		a, ok := arrays[name]
		if !ok {
			return nil, fmt.Errorf("extract: %s: missing array %s", path, name)
		}
		if a.Dtype != dt {
			return nil, fmt.Errorf("extract: %s: array %s has dtype %s, want %s", path, name, a.Dtype, dt)
		}
		if cols > 0 && (len(a.Shape) != 2 || a.Shape[1] != cols) {
			return nil, fmt.Errorf("extract: %s: array %s has shape %v", path, name, a.Shape)
		}
		return a, nil
	}

	va, err := get(ArrayVertices, npz.Float32, 3)
	if err != nil {
		return nil, err
	}
	ta, err := get(ArrayTriangles, npz.Int32, 3)
	if err != nil {
		return nil, err
	}
	ma, err := get(ArrayTriangleMapping, npz.Int32, 0)
	if err != nil {
		return nil, err
	}

	m := &tessellate.Mesh{
		Vertices:        make([][3]float32, va.Shape[0]),
		Triangles:       make([][3]int32, ta.Shape[0]),
		TriangleMapping: ma.Int32s,
	}
	for i := range m.Vertices {
		copy(m.Vertices[i][:], va.Float32s[3*i:3*i+3])
	}
	for i := range m.Triangles {
		copy(m.Triangles[i][:], ta.Int32s[3*i:3*i+3])
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("extract: %s: %w", path, err)
	}
	return m, nil
}

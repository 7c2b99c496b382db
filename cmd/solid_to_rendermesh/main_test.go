package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/uvreg/internal/cli"
	"github.com/chazu/uvreg/pkg/extract"
)

func TestRunWritesMeshes(t *testing.T) {
	in, out := t.TempDir(), filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.WriteFile(filepath.Join(in, "cube.csg"), []byte(`(solid "cube" (box 1 2 3))`), 0o644))
	prom := filepath.Join(t.TempDir(), "m.prom")

	var stderr bytes.Buffer
	code := run([]string{in, "--log_level", "error", out, "--metrics_textfile", prom}, &stderr)
	require.Equal(t, cli.ExitOK, code, stderr.String())

	mesh, err := extract.ReadMesh(filepath.Join(out, "cube.npz"))
	require.NoError(t, err)
	assert.Len(t, mesh.Triangles, 12)

	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), "uvreg_files_processed_total")
}

func TestRunUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing output", []string{"in"}},
		{"negative tolerance", []string{"--triangle_face_tol", "-1", "in", "out"}},
		{"unknown flag", []string{"--bogus", "in", "out"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, cli.ExitUsage, run(tt.args, &bytes.Buffer{}))
		})
	}
}

func TestRunBadInput(t *testing.T) {
	in := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "bad.csg"), []byte(`(solid "x" (sphere :radius -1))`), 0o644))
	assert.Equal(t, cli.ExitError, run([]string{"--log_level", "error", in, t.TempDir()}, &bytes.Buffer{}))
}

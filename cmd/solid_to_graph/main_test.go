package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/uvreg/internal/cli"
	"github.com/chazu/uvreg/pkg/uvgraph"
)

func TestRunWritesGraphs(t *testing.T) {
	in, out := t.TempDir(), filepath.Join(t.TempDir(), "graphs")
	require.NoError(t, os.WriteFile(filepath.Join(in, "cube.csg"), []byte(`(solid "cube" (box 1 1 1))`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "can.csg"), []byte(`(solid "can" (cylinder :radius 1 :height 2))`), 0o644))

	var stderr bytes.Buffer
	code := run([]string{in, out, "--log_level", "error", "--num_u", "4", "--num_v", "3"}, &stderr)
	require.Equal(t, cli.ExitOK, code, stderr.String())

	cube, err := uvgraph.ReadFile(filepath.Join(out, "cube.bin"))
	require.NoError(t, err)
	assert.Equal(t, 6, cube.NumNodes)
	assert.Equal(t, 4, cube.NumU)
	assert.Equal(t, 3, cube.NumV)
	assert.Equal(t, 24, cube.NumEdges())

	can, err := uvgraph.ReadFile(filepath.Join(out, "can.bin"))
	require.NoError(t, err)
	assert.Equal(t, 3, can.NumNodes)
}

func TestRunRejectsTinyGrid(t *testing.T) {
	assert.Equal(t, cli.ExitUsage, run([]string{"--num_u", "1", "in", "out"}, &bytes.Buffer{}))
}

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/uvreg/internal/cli"
	"github.com/chazu/uvreg/pkg/cadfile"
	"github.com/chazu/uvreg/pkg/dataset"
	"github.com/chazu/uvreg/pkg/kernel/sdfx"
	"github.com/chazu/uvreg/pkg/labels"
	"github.com/chazu/uvreg/pkg/uvgraph"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no mode", []string{"--dataset", "v_mock", "--dataset_path", "d"}},
		{"bad mode", []string{"--dataset", "v_mock", "--dataset_path", "d", "predict"}},
		{"unknown dataset", []string{"--dataset", "nope", "--dataset_path", "d", "train"}},
		{"missing dataset", []string{"--dataset_path", "d", "train"}},
		{"missing path", []string{"--dataset", "v_mock", "train"}},
		{"test without checkpoint", []string{"--dataset", "mv_p2", "--dataset_path", "d", "test"}},
		{"test first without checkpoint", []string{"test", "--dataset", "mv_p2", "--dataset_path", "d"}},
		{"two modes", []string{"train", "--dataset", "v_mock", "--dataset_path", "d", "test"}},
		{"zero batch", []string{"--dataset", "v_mock", "--dataset_path", "d", "--batch_size", "0", "train"}},
		{"zero epochs", []string{"--dataset", "v_mock", "--dataset_path", "d", "--max_epochs", "0", "train"}},
		{"zero learning rate", []string{"train", "--dataset", "v_mock", "--dataset_path", "d", "--learning_rate", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			assert.Equal(t, cli.ExitUsage, run(tt.args, &stderr), stderr.String())
		})
	}
}

func TestValidateBeforeWork(t *testing.T) {
	results := t.TempDir()
	code := run([]string{"--dataset", "v_mock", "--dataset_path", t.TempDir(), "--results_dir", results, "test"}, &bytes.Buffer{})
	assert.Equal(t, cli.ExitUsage, code)

	entries, err := os.ReadDir(results)
	require.NoError(t, err)
	assert.Empty(t, entries, "no run directory before validation passes")
}

// writeDataset builds boxes of growing size under root, labelled by volume.
func writeDataset(t *testing.T, root string, train, test int) {
	t.Helper()
	k := sdfx.New()
	trainLabels, testLabels := labels.Dictionary{}, labels.Dictionary{}
	for i := 0; i < train+test; i++ {
		side := 1 + float64(i)/4
		solids, err := k.LoadSource(fmt.Sprintf(`(solid "b" (box %g %g %g))`, side, side, side))
		require.NoError(t, err)
		g, err := uvgraph.FromSolid(solids[0], uvgraph.Options{NumU: 3, NumV: 3, Tolerance: uvgraph.DefaultOptions().Tolerance})
		require.NoError(t, err)
		require.NoError(t, solids[0].Close())

		stem := cadfile.FileStem(fmt.Sprintf("part%03d", i))
		dir := filepath.Join(root, "graphs")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, uvgraph.WriteFile(filepath.Join(dir, string(stem)+cadfile.GraphExt), g))
		if i < train {
			trainLabels[stem] = side * side * side
		} else {
			testLabels[stem] = side * side * side
		}
	}
	require.NoError(t, trainLabels.Save(labels.Path(root, dataset.SplitTrain, labels.SuffixVolume)))
	require.NoError(t, testLabels.Save(labels.Path(root, dataset.SplitTest, labels.SuffixVolume)))
}

func runDir(t *testing.T, results, experiment string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(results, experiment, "*", "*"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	return matches[0]
}

func TestTrainThenTest(t *testing.T) {
	root, results := t.TempDir(), t.TempDir()
	writeDataset(t, root, 10, 3)

	var stderr bytes.Buffer
	code := run([]string{
		"train",
		"--log_level", "error",
		"--dataset", "v_mock",
		"--dataset_path", root,
		"--results_dir", results,
		"--experiment_name", "exp",
		"--batch_size", "4",
		"--max_epochs", "3",
		"--num_workers", "2",
		"--manifest",
	}, &stderr)
	require.Equal(t, cli.ExitOK, code, stderr.String())

	dir := runDir(t, results, "exp")
	for _, name := range []string{"best.ckpt", "last.ckpt", "metrics.jsonl", "metrics.prom", "manifest_train.arrow", "manifest_val.arrow"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	rows, _, err := dataset.ReadManifest(filepath.Join(dir, "manifest_val.arrow"))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	testResults := t.TempDir()
	code = run([]string{
		"test",
		"--log_level", "error",
		"--dataset", "v_mock",
		"--dataset_path", root,
		"--results_dir", testResults,
		"--checkpoint", filepath.Join(dir, "best.ckpt"),
		"--max_epochs", "0",
	}, &stderr)
	require.Equal(t, cli.ExitOK, code, stderr.String())

	log, err := os.ReadFile(filepath.Join(runDir(t, testResults, "regression"), "metrics.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(log), `"phase":"test"`)
	assert.Contains(t, string(log), `"test_mae"`)
}

func TestTestMissingCheckpointFile(t *testing.T) {
	root := t.TempDir()
	writeDataset(t, root, 2, 2)
	code := run([]string{
		"--log_level", "error",
		"--dataset", "v_mock",
		"--dataset_path", root,
		"--results_dir", t.TempDir(),
		"--checkpoint", filepath.Join(root, "missing.ckpt"),
		"test",
	}, &bytes.Buffer{})
	assert.Equal(t, cli.ExitError, code)
}

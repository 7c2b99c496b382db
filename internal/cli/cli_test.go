package cli

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitOK, ExitCode(flag.ErrHelp))
	assert.Equal(t, ExitUsage, ExitCode(Usagef("bad %s", "flag")))
	assert.Equal(t, ExitError, ExitCode(errors.New("boom")))
}

func TestParse(t *testing.T) {
	var stderr bytes.Buffer
	c := New("tool", "[flags] <a> <b>", &stderr)
	n := c.Flags.Int("n", 1, "count")

	args, err := c.Parse([]string{"-n", "3", "--log_level", "debug", "x", "y"}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, args)
	assert.Equal(t, 3, *n)
	assert.Equal(t, "debug", c.Common.LogLevel)
}

func TestParseInterleaved(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
		n    int
	}{
		{"positional first", []string{"x", "-n", "3", "y"}, []string{"x", "y"}, 3},
		{"positional between", []string{"-n", "4", "x", "--log_level", "warn", "y"}, []string{"x", "y"}, 4},
		{"after terminator", []string{"-n", "5", "--", "x", "-n"}, []string{"x", "-n"}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New("tool", "[flags] <a> <b>", &bytes.Buffer{})
			n := c.Flags.Int("n", 1, "count")
			args, err := c.Parse(tt.args, 2)
			require.NoError(t, err)
			assert.Equal(t, tt.want, args)
			assert.Equal(t, tt.n, *n)
		})
	}
}

func TestParseWrongArgCount(t *testing.T) {
	var stderr bytes.Buffer
	c := New("tool", "[flags] <a> <b>", &stderr)
	_, err := c.Parse([]string{"x"}, 2)
	assert.Equal(t, ExitUsage, ExitCode(err))
	assert.Contains(t, stderr.String(), "Usage: tool")
}

func TestParseUnknownFlag(t *testing.T) {
	c := New("tool", "", &bytes.Buffer{})
	_, err := c.Parse([]string{"--nope"}, 0)
	assert.Equal(t, ExitUsage, ExitCode(err))
}

func TestFinishWritesMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.prom")
	c := New("tool", "", &bytes.Buffer{})
	_, err := c.Parse([]string{"--metrics_textfile", path, "--log_format", "json"}, 0)
	require.NoError(t, err)
	require.NoError(t, c.Start())
	c.Metrics.SolidsLoaded.Inc()

	assert.Equal(t, ExitError, c.Finish(errors.New("boom"), &bytes.Buffer{}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "uvreg_solids_loaded_total 1")
}

func TestLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cmd.log")
	c := New("tool", "", &bytes.Buffer{})
	_, err := c.Parse([]string{"--log_file", path, "--log_format", "json"}, 0)
	require.NoError(t, err)
	require.NoError(t, c.Start())
	c.Log.Info("hello")
	require.NoError(t, c.Log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"command":"tool"`)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

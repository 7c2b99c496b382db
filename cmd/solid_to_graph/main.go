// Command solid_to_graph builds a UV-grid face-adjacency graph for the
// first solid of every solid file in a directory.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/chazu/uvreg/internal/cli"
	"github.com/chazu/uvreg/pkg/cadfile"
	"github.com/chazu/uvreg/pkg/kernel"
	"github.com/chazu/uvreg/pkg/kernel/sdfx"
	"github.com/chazu/uvreg/pkg/metrics"
	"github.com/chazu/uvreg/pkg/uvgraph"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	cmd := cli.New("solid_to_graph", "[flags] <input_dir> <output_dir>", stderr)
	opts := uvgraph.DefaultOptions()
	cmd.Flags.IntVar(&opts.NumU, "num_u", opts.NumU, "samples along u per face")
	cmd.Flags.IntVar(&opts.NumV, "num_v", opts.NumV, "samples along v per face")
	cmd.Flags.Float64Var(&opts.Tolerance.LinearDeflection, "triangle_face_tol", opts.Tolerance.LinearDeflection, "linear deflection as a fraction of each face's size")
	cmd.Flags.Float64Var(&opts.Tolerance.AngularDeflection, "angle_tol_rads", opts.Tolerance.AngularDeflection, "angular deflection in radians")

	pos, err := cmd.Parse(args, 2)
	if err != nil {
		return cmd.Finish(err, stderr)
	}
	if opts.NumU < 2 || opts.NumV < 2 {
		return cmd.Finish(cli.Usagef("solid_to_graph: grid must be at least 2x2"), stderr)
	}
	if err := opts.Tolerance.Validate(); err != nil {
		return cmd.Finish(cli.Usagef("solid_to_graph: %v", err), stderr)
	}
	if err := cmd.Start(); err != nil {
		return cmd.Finish(err, stderr)
	}
	return cmd.Finish(build(cmd, sdfx.New(), opts, pos[0], pos[1]), stderr)
}

func build(cmd *cli.Command, k kernel.Kernel, opts uvgraph.Options, input, output string) error {
	start := time.Now()
	files, err := cadfile.List(input, cadfile.SolidExt)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(output, 0o755); err != nil {
		return err
	}
	for _, path := range files {
		timer := metrics.NewTimer()
		err := buildOne(k, opts, path, filepath.Join(output, string(cadfile.StemOf(path))+cadfile.GraphExt))
		cmd.Metrics.RecordFile("graph", err, timer.Duration())
		if err != nil {
			return fmt.Errorf("solid_to_graph: %s: %w", cadfile.NameOf(path), err)
		}
		cmd.Log.Debug("graph written", zap.String("file", string(cadfile.NameOf(path))))
	}
	cmd.Log.Stage("graph", len(files), time.Since(start), zap.String("output", output))
	return nil
}

func buildOne(k kernel.Kernel, opts uvgraph.Options, path, out string) error {
	solids, err := k.Load(path)
	if err != nil {
		return err
	}
	defer func() {
		for _, s := range solids {
			s.Close()
		}
	}()
	g, err := uvgraph.FromSolid(solids[0], opts)
	if err != nil {
		return err
	}
	return uvgraph.WriteFile(out, g)
}

// Command solid_to_rendermesh triangulates the first solid of every solid
// file in a directory and writes one mesh archive per file, with each
// triangle tagged by the index of the face it came from.
package main

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/chazu/uvreg/internal/cli"
	"github.com/chazu/uvreg/pkg/extract"
	"github.com/chazu/uvreg/pkg/kernel"
	"github.com/chazu/uvreg/pkg/kernel/sdfx"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	cmd := cli.New("solid_to_rendermesh", "[flags] <input_dir> <output_dir>", stderr)
	faceTol := cmd.Flags.Float64("triangle_face_tol", 0.01, "linear deflection as a fraction of each face's size")
	angleTol := cmd.Flags.Float64("angle_tol_rads", 0.1, "angular deflection in radians")

	pos, err := cmd.Parse(args, 2)
	if err != nil {
		return cmd.Finish(err, stderr)
	}
	tol := kernel.Tolerance{LinearDeflection: *faceTol, AngularDeflection: *angleTol, Relative: true}
	if err := tol.Validate(); err != nil {
		return cmd.Finish(cli.Usagef("solid_to_rendermesh: %v", err), stderr)
	}
	if err := cmd.Start(); err != nil {
		return cmd.Finish(err, stderr)
	}

	start := time.Now()
	ex := extract.NewMeshExtractor(sdfx.New(), tol, cmd.Log.Logger, cmd.Metrics)
	written, err := ex.Run(pos[0], pos[1])
	if err == nil {
		cmd.Log.Stage("mesh", len(written), time.Since(start), zap.String("output", pos[1]))
	}
	return cmd.Finish(err, stderr)
}

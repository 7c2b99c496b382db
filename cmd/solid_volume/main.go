// Command solid_volume measures the volume of every file in a directory and
// writes the results as one JSON object keyed by filename.
package main

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/chazu/uvreg/internal/cli"
	"github.com/chazu/uvreg/pkg/extract"
	"github.com/chazu/uvreg/pkg/kernel/sdfx"
	"github.com/chazu/uvreg/pkg/labels"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	cmd := cli.New("solid_volume", "[flags] <input_dir> <output.json>", stderr)
	stemKeys := cmd.Flags.Bool("stem_keys", false, "key the output by file stem, as a label dictionary")

	pos, err := cmd.Parse(args, 2)
	if err != nil {
		return cmd.Finish(err, stderr)
	}
	if err := cmd.Start(); err != nil {
		return cmd.Finish(err, stderr)
	}
	return cmd.Finish(measure(cmd, pos[0], pos[1], *stemKeys), stderr)
}

func measure(cmd *cli.Command, input, output string, stemKeys bool) error {
	start := time.Now()
	table, err := extract.NewVolumeExtractor(sdfx.New(), cmd.Log.Logger, cmd.Metrics).Run(input)
	if err != nil {
		return err
	}
	if stemKeys {
		d, err := labels.FromVolumeTable(table)
		if err != nil {
			return err
		}
		if err := d.Save(output); err != nil {
			return err
		}
	} else if err := table.WriteJSON(output); err != nil {
		return err
	}
	cmd.Log.Stage("volume", len(table), time.Since(start), zap.String("output", output))
	return nil
}

// Command regression trains a regression model on a graph dataset or
// evaluates a saved checkpoint on its test split.
//
//	regression train --dataset v_mock --dataset_path data/
//	regression test --dataset v_mock --dataset_path data/ --checkpoint results/regression/0412/101500/best.ckpt
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chazu/uvreg/internal/cli"
	"github.com/chazu/uvreg/pkg/dataset"
	"github.com/chazu/uvreg/pkg/model"
	"github.com/chazu/uvreg/pkg/trainer"
)

const (
	modeTrain = "train"
	modeTest  = "test"
)

type options struct {
	mode           string
	kind           dataset.Kind
	datasetPath    string
	batchSize      int
	numWorkers     int
	checkpoint     string
	experiment     string
	resultsDir     string
	maxEpochs      int
	learningRate   float64
	seed           int64
	centerAndScale bool
	randomRotate   bool
	manifest       bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	cmd := cli.New("regression", "[flags] train|test", stderr)
	var opts options
	datasetName := cmd.Flags.String("dataset", "", "dataset kind (v_mock or mv_p2)")
	cmd.Flags.StringVar(&opts.datasetPath, "dataset_path", "", "root directory of label files and graph samples")
	cmd.Flags.IntVar(&opts.batchSize, "batch_size", 64, "graphs per batch")
	cmd.Flags.IntVar(&opts.numWorkers, "num_workers", 0, "concurrent sample loaders (0 loads serially)")
	cmd.Flags.StringVar(&opts.checkpoint, "checkpoint", "", "checkpoint to evaluate (required for test)")
	cmd.Flags.StringVar(&opts.experiment, "experiment_name", "regression", "experiment name under the results directory")
	cmd.Flags.StringVar(&opts.resultsDir, "results_dir", "results", "results directory")
	cmd.Flags.IntVar(&opts.maxEpochs, "max_epochs", 50, "training epochs")
	cmd.Flags.Float64Var(&opts.learningRate, "learning_rate", 1e-3, "SGD learning rate")
	cmd.Flags.Int64Var(&opts.seed, "seed", 0, "seed for shuffling and augmentation")
	cmd.Flags.BoolVar(&opts.centerAndScale, "center_and_scale", true, "normalise every graph into [-1, 1]")
	cmd.Flags.BoolVar(&opts.randomRotate, "random_rotate", false, "randomly rotate training graphs")
	cmd.Flags.BoolVar(&opts.manifest, "manifest", false, "write an Arrow manifest of every loaded split to the run directory")

	pos, err := cmd.Parse(args, 1)
	if err != nil {
		return cmd.Finish(err, stderr)
	}
	opts.mode = pos[0]
	if err := opts.validate(*datasetName); err != nil {
		return cmd.Finish(err, stderr)
	}
	if err := cmd.Start(); err != nil {
		return cmd.Finish(err, stderr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return cmd.Finish(execute(ctx, cmd, opts, time.Now()), stderr)
}

func (o *options) validate(datasetName string) error {
	if o.mode != modeTrain && o.mode != modeTest {
		return cli.Usagef("regression: mode must be train or test, got %q", o.mode)
	}
	kind, err := dataset.LookupKind(datasetName)
	if err != nil {
		return cli.Usagef("regression: %v", err)
	}
	o.kind = kind
	if o.datasetPath == "" {
		return cli.Usagef("regression: --dataset_path is required")
	}
	if o.mode == modeTest && o.checkpoint == "" {
		return cli.Usagef("regression: --checkpoint is required for test")
	}
	if o.batchSize <= 0 {
		return cli.Usagef("regression: --batch_size must be positive")
	}
	if o.mode == modeTrain {
		if err := o.trainerConfig("").Validate(); err != nil {
			return cli.Usagef("regression: %v", err)
		}
	}
	return nil
}

func (o options) trainerConfig(runID string) trainer.Config {
	return trainer.Config{
		MaxEpochs:    o.maxEpochs,
		LearningRate: o.learningRate,
		BatchSize:    o.batchSize,
		Seed:         o.seed,
		RunID:        runID,
	}
}

func execute(ctx context.Context, cmd *cli.Command, opts options, now time.Time) error {
	runID := uuid.NewString()
	log := cmd.Log.With(zap.String("run_id", runID), zap.String("dataset", opts.kind.Name))

	runDir := trainer.RunDir(opts.resultsDir, opts.experiment, now)
	runLog, err := trainer.NewRunLogger(runDir, runID, cmd.Metrics)
	if err != nil {
		return err
	}
	defer runLog.Close()
	log.Info("run started", zap.String("mode", opts.mode), zap.String("dir", runDir))

	load := func(split string, rotate bool) (*dataset.Dataset, error) {
		ds, err := dataset.New(ctx, opts.datasetPath, split, opts.kind, dataset.Options{
			CenterAndScale: opts.centerAndScale,
			RandomRotate:   rotate,
			Seed:           opts.seed,
			Workers:        opts.numWorkers,
			Logger:         log,
			Metrics:        cmd.Metrics,
		})
		if err != nil {
			return nil, err
		}
		if opts.manifest {
			if err := ds.WriteManifest(filepath.Join(runDir, "manifest_"+split+".arrow")); err != nil {
				return nil, err
			}
		}
		return ds, nil
	}

	if opts.mode == modeTest {
		m, meta, err := model.Load(opts.checkpoint)
		if err != nil {
			return err
		}
		test, err := load(dataset.SplitTest, false)
		if err != nil {
			return err
		}
		tr, err := trainer.NewEvaluator(opts.batchSize, log, cmd.Metrics)
		if err != nil {
			return err
		}
		res, err := tr.Test(ctx, m, test)
		if err != nil {
			return err
		}
		cmd.Log.Stage("test", test.Len(), time.Since(now),
			zap.String("run_id", runID),
			zap.String("checkpoint_run_id", meta.RunID),
			zap.Int("checkpoint_epoch", meta.Epoch),
			zap.Float64(trainer.MetricTestLoss, res[trainer.MetricTestLoss]),
			zap.Float64(trainer.MetricTestMAE, res[trainer.MetricTestMAE]))
		return runLog.Log("test", res)
	}

	train, err := load(dataset.SplitTrain, opts.randomRotate)
	if err != nil {
		return err
	}
	val, err := load(dataset.SplitVal, false)
	if err != nil {
		return err
	}
	ckpt := trainer.NewModelCheckpoint(runDir, runID)
	ckpt.Metrics = cmd.Metrics
	tr, err := trainer.New(opts.trainerConfig(runID), log, cmd.Metrics, ckpt, runLog)
	if err != nil {
		return err
	}
	if err := tr.Fit(ctx, model.NewRegression(), train, val); err != nil {
		return err
	}
	best, epoch := ckpt.Best()
	cmd.Log.Stage("train", train.Len(), time.Since(now),
		zap.String("run_id", runID),
		zap.Int("epochs", opts.maxEpochs),
		zap.String("best_checkpoint", ckpt.BestPath()),
		zap.Float64("best_val_loss", best),
		zap.Int("best_epoch", epoch))
	return nil
}

package dataset

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/uvreg/pkg/cadfile"
	"github.com/chazu/uvreg/pkg/labels"
	"github.com/chazu/uvreg/pkg/metrics"
	"github.com/chazu/uvreg/pkg/uvgraph"
)

// ErrLabelNotFound is returned when a selected file has no dictionary entry.
var ErrLabelNotFound = errors.New("dataset: label not found")

// Options configures dataset construction.
type Options struct {
	CenterAndScale bool
	RandomRotate   bool
	Seed           int64
	// Workers bounds concurrent file loads. Zero or less loads serially.
	Workers int
	Logger  *zap.Logger
	Metrics *metrics.Pipeline
}

// Dataset is an immutable list of labelled samples for one split.
type Dataset struct {
	Kind  Kind
	Split string
	Root  string

	base    Base
	labels  labels.Dictionary
	files   []string
	samples []*Sample
}

// New loads split ("train", "val" or "test") of the dataset under root.
//
// Graph files are found recursively under root and kept only when their
// stem is in the split's label dictionary. Dictionary entries with no file
// are skipped. Train and val are complementary halves of one fixed
// partition of the train pool.
func New(ctx context.Context, root, split string, kind Kind, opts Options) (*Dataset, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	labelFrom, err := labelSplit(split)
	if err != nil {
		return nil, err
	}
	dict, err := labels.Load(root, labelFrom, kind.LabelSuffix)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}

	all, err := cadfile.Walk(root, cadfile.GraphExt)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	var files []string
	onDisk := map[cadfile.FileStem]bool{}
	for _, f := range all {
		stem := cadfile.StemOf(f)
		if _, ok := dict.Lookup(stem); ok {
			files = append(files, f)
			onDisk[stem] = true
		}
	}
	if missing := len(dict) - len(onDisk); missing > 0 {
		log.Debug("label entries without a graph file", zap.String("split", split), zap.Int("missing", missing))
	}

	if split != SplitTest {
		train, val, err := TrainValSplit(files, ValFraction, SplitSeed)
		if err != nil {
			return nil, err
		}
		if split == SplitTrain {
			files = train
		} else {
			files = val
		}
	}

	ds := &Dataset{
		Kind:   kind,
		Split:  split,
		Root:   root,
		base:   Base{CenterAndScale: opts.CenterAndScale, RandomRotate: opts.RandomRotate, Seed: opts.Seed},
		labels: dict,
		files:  files,
	}
	if err := ds.load(ctx, opts.Workers); err != nil {
		return nil, err
	}
	if opts.Metrics != nil {
		opts.Metrics.SamplesLoaded.WithLabelValues(split).Add(float64(len(ds.samples)))
	}
	log.Info("dataset loaded",
		zap.String("kind", kind.Name),
		zap.String("split", split),
		zap.Int("samples", len(ds.samples)),
	)
	return ds, nil
}

// load reads every selected file, keeping file order.
func (d *Dataset) load(ctx context.Context, workers int) error {
	d.samples = make([]*Sample, len(d.files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, path := range d.files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := d.base.Load(path)
			if err != nil {
				return fmt.Errorf("dataset: %w", err)
			}
			if err := d.attachLabel(s); err != nil {
				return err
			}
			d.samples[i] = s
			return nil
		})
	}
	return g.Wait()
}

func (d *Dataset) attachLabel(s *Sample) error {
	v, ok := d.labels.Lookup(s.Stem)
	if !ok {
		return fmt.Errorf("%w: %s", ErrLabelNotFound, s.Stem)
	}
	s.Label = []float32{float32(v)}
	return nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.samples)
}

// Sample returns sample i as loaded, before any augmentation.
func (d *Dataset) Sample(i int) *Sample {
	return d.samples[i]
}

// Files returns the selected graph files in sample order.
func (d *Dataset) Files() []string {
	return append([]string(nil), d.files...)
}

// Batch is a collated group of samples. Labels[i] belongs to graph i.
type Batch struct {
	Graph  *uvgraph.Batch
	Labels []float32
	Stems  []cadfile.FileStem
}

// Size returns the number of samples in the batch.
func (b *Batch) Size() int {
	return len(b.Labels)
}

// Collate merges samples into one batch, keeping their order.
func (d *Dataset) Collate(samples []*Sample) (*Batch, error) {
	gb, err := d.base.Collate(samples)
	if err != nil {
		return nil, err
	}
	b := &Batch{
		Graph:  gb,
		Labels: make([]float32, 0, len(samples)),
		Stems:  make([]cadfile.FileStem, 0, len(samples)),
	}
	for _, s := range samples {
		if len(s.Label) != 1 {
			return nil, fmt.Errorf("%w: %s", ErrLabelNotFound, s.Stem)
		}
		b.Labels = append(b.Labels, s.Label[0])
		b.Stems = append(b.Stems, s.Stem)
	}
	return b, nil
}

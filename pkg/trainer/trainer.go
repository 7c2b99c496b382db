// Package trainer runs the fit/validate/test loop of a regression model
// over graph datasets and records its progress on disk.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/chazu/uvreg/pkg/dataset"
	"github.com/chazu/uvreg/pkg/metrics"
)

// Metric names.
const (
	MetricEpoch     = "epoch"
	MetricTrainLoss = "train_loss"
	MetricValLoss   = "val_loss"
	MetricValMAE    = "val_mae"
	MetricTestLoss  = "test_loss"
	MetricTestMAE   = "test_mae"
)

// Meta is stored alongside model parameters in a checkpoint.
type Meta struct {
	RunID   string             `json:"run_id"`
	Epoch   int                `json:"epoch"`
	Metrics Metrics `json:"metrics,omitempty"`
}

// Model is a trainable scalar regressor over graph batches.
type Model interface {
	// TrainStep takes one optimisation step and returns the batch MSE
	// before the step.
	TrainStep(b *dataset.Batch, lr float64) (float64, error)
	// Predict returns one value per graph in the batch.
	Predict(b *dataset.Batch) ([]float32, error)
	// Save writes a checkpoint.
	Save(path string, meta Meta) error
}

// Metrics maps a metric name to its value for one epoch or evaluation.
type Metrics map[string]float64

// Names returns the metric names, sorted.
func (m Metrics) Names() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Callback observes the end of every epoch.
type Callback interface {
	OnEpochEnd(epoch int, m Metrics, model Model) error
}

// Config holds loop parameters.
type Config struct {
	MaxEpochs    int
	LearningRate float64
	BatchSize    int
	Seed         int64
	RunID        string
}

// Validate rejects values the loop cannot run with.
func (c Config) Validate() error {
	switch {
	case c.MaxEpochs <= 0:
		return fmt.Errorf("trainer: max epochs %d must be positive", c.MaxEpochs)
	case c.BatchSize <= 0:
		return fmt.Errorf("trainer: batch size %d must be positive", c.BatchSize)
	case !(c.LearningRate > 0) || math.IsInf(c.LearningRate, 0):
		return fmt.Errorf("trainer: learning rate %g must be positive", c.LearningRate)
	}
	return nil
}

// Trainer drives a Model.
type Trainer struct {
	cfg       Config
	log       *zap.Logger
	metrics   *metrics.Pipeline
	callbacks []Callback
}

// New returns a Trainer. log and m may be nil.
func New(cfg Config, log *zap.Logger, m *metrics.Pipeline, callbacks ...Callback) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Trainer{cfg: cfg, log: log, metrics: m, callbacks: callbacks}, nil
}

// NewEvaluator returns a Trainer that only runs Test, so only the batch
// size is checked. Fit on it fails validation.
func NewEvaluator(batchSize int, log *zap.Logger, m *metrics.Pipeline) (*Trainer, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("trainer: batch size %d must be positive", batchSize)
	}
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Trainer{cfg: Config{BatchSize: batchSize}, log: log, metrics: m}, nil
}

// Fit trains for MaxEpochs passes over train, evaluating on val after each
// pass. val may be nil or empty, in which case no val metrics are reported.
// Cancelling ctx stops the loop between batches.
func (t *Trainer) Fit(ctx context.Context, model Model, train, val *dataset.Dataset) error {
	if err := t.cfg.Validate(); err != nil {
		return err
	}
	if train == nil || train.Len() == 0 {
		return errors.New("trainer: empty training set")
	}
	for epoch := 0; epoch < t.cfg.MaxEpochs; epoch++ {
		loader, err := train.Loader(t.cfg.BatchSize, true, t.cfg.Seed+int64(epoch))
		if err != nil {
			return fmt.Errorf("trainer: %w", err)
		}

		var sum float64
		var count int
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := loader.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("trainer: epoch %d: %w", epoch, err)
			}
			loss, err := model.TrainStep(b, t.cfg.LearningRate)
			if err != nil {
				return fmt.Errorf("trainer: epoch %d: %w", epoch, err)
			}
			sum += loss * float64(b.Size())
			count += b.Size()
			t.metrics.StepsTotal.Inc()
		}

		m := Metrics{MetricEpoch: float64(epoch), MetricTrainLoss: sum / float64(count)}
		if val != nil && val.Len() > 0 {
			mse, mae, err := t.evaluate(ctx, model, val)
			if err != nil {
				return fmt.Errorf("trainer: epoch %d: validation: %w", epoch, err)
			}
			m[MetricValLoss] = mse
			m[MetricValMAE] = mae
			t.metrics.Loss.WithLabelValues("val").Set(mse)
		}
		t.metrics.Epoch.Set(float64(epoch))
		t.metrics.Loss.WithLabelValues("train").Set(m[MetricTrainLoss])

		fields := []zap.Field{zap.Int("epoch", epoch)}
		for _, k := range m.Names() {
			if k != MetricEpoch {
				fields = append(fields, zap.Float64(k, m[k]))
			}
		}
		t.log.Info("epoch finished", fields...)

		for _, cb := range t.callbacks {
			if err := cb.OnEpochEnd(epoch, m, model); err != nil {
				return fmt.Errorf("trainer: epoch %d: %w", epoch, err)
			}
		}
	}
	return nil
}

// Test evaluates model on ds and returns test_loss (MSE) and test_mae.
func (t *Trainer) Test(ctx context.Context, model Model, ds *dataset.Dataset) (Metrics, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, errors.New("trainer: empty test set")
	}
	mse, mae, err := t.evaluate(ctx, model, ds)
	if err != nil {
		return nil, fmt.Errorf("trainer: test: %w", err)
	}
	t.metrics.Loss.WithLabelValues("test").Set(mse)
	t.log.Info("test finished", zap.Float64(MetricTestLoss, mse), zap.Float64(MetricTestMAE, mae))
	return Metrics{MetricTestLoss: mse, MetricTestMAE: mae}, nil
}

func (t *Trainer) evaluate(ctx context.Context, model Model, ds *dataset.Dataset) (mse, mae float64, err error) {
	loader, err := ds.Loader(t.cfg.BatchSize, false, 0)
	if err != nil {
		return 0, 0, err
	}
	var n int
	for {
		if err := ctx.Err(); err != nil {
			return 0, 0, err
		}
		b, err := loader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, 0, err
		}
		preds, err := model.Predict(b)
		if err != nil {
			return 0, 0, err
		}
		if len(preds) != b.Size() {
			return 0, 0, fmt.Errorf("model returned %d predictions for %d samples", len(preds), b.Size())
		}
		for i, p := range preds {
			d := float64(p) - float64(b.Labels[i])
			mse += d * d
			mae += math.Abs(d)
		}
		n += b.Size()
	}
	return mse / float64(n), mae / float64(n), nil
}

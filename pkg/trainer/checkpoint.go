package trainer

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/chazu/uvreg/pkg/metrics"
)

// Checkpoint file names.
const (
	BestCheckpoint = "best.ckpt"
	LastCheckpoint = "last.ckpt"
)

// ModelCheckpoint saves the model after every epoch as last.ckpt and, when
// the monitored metric improves on the lowest value seen, as best.ckpt.
type ModelCheckpoint struct {
	Dir     string
	Monitor string
	RunID   string
	// Metrics, when set, tracks the best value.
	Metrics *metrics.Pipeline

	best      float64
	bestEpoch int
}

// NewModelCheckpoint monitors val_loss in dir.
func NewModelCheckpoint(dir, runID string) *ModelCheckpoint {
	return &ModelCheckpoint{Dir: dir, Monitor: MetricValLoss, RunID: runID, best: math.Inf(1), bestEpoch: -1}
}

// BestPath returns the best checkpoint path.
func (c *ModelCheckpoint) BestPath() string {
	return filepath.Join(c.Dir, BestCheckpoint)
}

// LastPath returns the last checkpoint path.
func (c *ModelCheckpoint) LastPath() string {
	return filepath.Join(c.Dir, LastCheckpoint)
}

// Best returns the best monitored value and its epoch, or -1 when no epoch
// reported the metric.
func (c *ModelCheckpoint) Best() (float64, int) {
	return c.best, c.bestEpoch
}

// OnEpochEnd saves last.ckpt and, on improvement, best.ckpt.
func (c *ModelCheckpoint) OnEpochEnd(epoch int, m Metrics, model Model) error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	meta := Meta{RunID: c.RunID, Epoch: epoch, Metrics: m}
	if v, ok := m[c.Monitor]; ok && !math.IsNaN(v) && v < c.best {
		c.best, c.bestEpoch = v, epoch
		if c.Metrics != nil {
			c.Metrics.BestScore.Set(v)
		}
		if err := model.Save(c.BestPath(), meta); err != nil {
			return fmt.Errorf("checkpoint: %w", err)
		}
	}
	if err := model.Save(c.LastPath(), meta); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

package trainer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chazu/uvreg/pkg/metrics"
)

// Run artifact names.
const (
	MetricsLogFile  = "metrics.jsonl"
	MetricsPromFile = "metrics.prom"
)

// RunDir returns results/<experiment>/<MMDD>/<HHMMSS> for now.
func RunDir(resultsDir, experiment string, now time.Time) string {
	return filepath.Join(resultsDir, experiment, now.Format("0102"), now.Format("150405"))
}

// RunLogger appends one JSON line per epoch to metrics.jsonl and refreshes
// metrics.prom in the run directory.
type RunLogger struct {
	dir     string
	file    *os.File
	log     *zap.Logger
	metrics *metrics.Pipeline
}

// NewRunLogger creates dir and opens its metrics log.
func NewRunLogger(dir, runID string, m *metrics.Pipeline) (*RunLogger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("runlog: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, MetricsLogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("runlog: %w", err)
	}
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "time"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(f), zapcore.InfoLevel)
	if m == nil {
		m = metrics.New()
	}
	return &RunLogger{
		dir:     dir,
		file:    f,
		log:     zap.New(core).With(zap.String("run_id", runID)),
		metrics: m,
	}, nil
}

// Dir returns the run directory.
func (r *RunLogger) Dir() string {
	return r.dir
}

// Log records m under phase ("epoch" or "test").
func (r *RunLogger) Log(phase string, m Metrics) error {
	fields := make([]zap.Field, 0, len(m)+1)
	fields = append(fields, zap.String("phase", phase))
	for _, k := range m.Names() {
		fields = append(fields, zap.Float64(k, m[k]))
	}
	r.log.Info("metrics", fields...)
	return r.metrics.WriteTextfile(filepath.Join(r.dir, MetricsPromFile))
}

// OnEpochEnd logs m under the "epoch" phase.
func (r *RunLogger) OnEpochEnd(epoch int, m Metrics, model Model) error {
	return r.Log("epoch", m)
}

// Close flushes and closes the metrics log.
func (r *RunLogger) Close() error {
	r.log.Sync()
	return r.file.Close()
}

package extract

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/chazu/uvreg/pkg/cadfile"
	"github.com/chazu/uvreg/pkg/kernel"
	"github.com/chazu/uvreg/pkg/metrics"
)

// VolumeTable maps an input filename, extension included, to the volume of
// everything the file contains.
type VolumeTable map[cadfile.Filename]float64

// WriteJSON writes the table as one JSON object.
func (t VolumeTable) WriteJSON(path string) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("extract: encode volume table: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	return nil
}

// ReadVolumeTable reads a table written by WriteJSON.
func ReadVolumeTable(path string) (VolumeTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	t := VolumeTable{}
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("extract: decode %s: %w", path, err)
	}
	return t, nil
}

// VolumeExtractor measures solid volumes.
type VolumeExtractor struct {
	kernel  kernel.Kernel
	log     *zap.Logger
	metrics *metrics.Pipeline
}

// NewVolumeExtractor returns an extractor. log and m may be nil.
func NewVolumeExtractor(k kernel.Kernel, log *zap.Logger, m *metrics.Pipeline) *VolumeExtractor {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &VolumeExtractor{kernel: k, log: log, metrics: m}
}

// Run measures every regular file directly under inputDir, in listing
// order. The first failure aborts the run and no table is returned.
func (e *VolumeExtractor) Run(inputDir string) (VolumeTable, error) {
	files, err := cadfile.List(inputDir)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	e.log.Info("volume extraction started", zap.String("input", inputDir), zap.Int("files", len(files)))
	table := make(VolumeTable, len(files))
	for _, path := range files {
		name := cadfile.NameOf(path)
		timer := metrics.NewTimer()
		vol, err := e.FileVolume(path)
		e.metrics.RecordFile("volume", err, timer.Duration())
		if err != nil {
			return nil, fmt.Errorf("extract: %s: %w", name, err)
		}
		e.log.Debug("volume measured", zap.String("file", string(name)), zap.Float64("volume", vol))
		table[name] = vol
	}
	e.log.Info("volume extraction finished", zap.Int("files", len(table)))
	return table, nil
}

// FileVolume loads path and returns the summed volume of all its solids.
func (e *VolumeExtractor) FileVolume(path string) (float64, error) {
	solids, err := e.kernel.Load(path)
	if err != nil {
		return 0, err
	}
	e.metrics.SolidsLoaded.Add(float64(len(solids)))
	defer func() {
		for _, s := range solids {
			s.Close()
		}
	}()

	var total float64
	for _, s := range solids {
		v, err := s.Volume()
		if err != nil {
			return 0, fmt.Errorf("solid %q: %w", s.Name(), err)
		}
		total += v
	}
	return total, nil
}

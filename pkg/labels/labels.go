// Package labels reads and writes label dictionaries: flat JSON objects
// mapping a file stem to a scalar target, one file per split.
package labels

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-json"

	"github.com/chazu/uvreg/pkg/cadfile"
)

// Label file suffixes in use.
const (
	SuffixVolume  = "volume"
	SuffixCADTime = "cad_time"
)

// Dictionary maps a file stem to its label.
type Dictionary map[cadfile.FileStem]float64

// Path returns the location of the dictionary for split under root.
func Path(root, split, suffix string) string {
	return filepath.Join(root, fmt.Sprintf("%s_%s.json", split, suffix))
}

// Load reads the dictionary for split ("train" or "test") under root.
func Load(root, split, suffix string) (Dictionary, error) {
	if split != "train" && split != "test" {
		return nil, fmt.Errorf("labels: no label file for split %q", split)
	}
	return LoadFile(Path(root, split, suffix))
}

// LoadFile reads a dictionary from path.
func LoadFile(path string) (Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("labels: %w", err)
	}
	d := Dictionary{}
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("labels: decode %s: %w", path, err)
	}
	return d, nil
}

// Save writes d to path as one JSON object.
func (d Dictionary) Save(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("labels: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("labels: %w", err)
	}
	return nil
}

// Lookup returns the label for stem.
func (d Dictionary) Lookup(stem cadfile.FileStem) (float64, bool) {
	v, ok := d[stem]
	return v, ok
}

// Stems returns the keys in sorted order.
func (d Dictionary) Stems() []cadfile.FileStem {
	out := make([]cadfile.FileStem, 0, len(d))
	for s := range d {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FromVolumeTable rekeys a filename-keyed volume table by stem. Two
// filenames sharing a stem are an error.
func FromVolumeTable(table map[cadfile.Filename]float64) (Dictionary, error) {
	d := make(Dictionary, len(table))
	from := make(map[cadfile.FileStem]cadfile.Filename, len(table))
	for name, v := range table {
		stem := name.Stem()
		if prev, dup := from[stem]; dup {
			return nil, fmt.Errorf("labels: %s and %s share stem %q", prev, name, stem)
		}
		from[stem] = name
		d[stem] = v
	}
	return d, nil
}

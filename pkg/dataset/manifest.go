package dataset

import (
	"fmt"
	"os"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"
)

// ManifestSchema returns the Arrow schema of a dataset manifest. The label
// field name is kept in the schema metadata.
func ManifestSchema(kind Kind) *arrow.Schema {
	md := arrow.NewMetadata(
		[]string{"dataset", "label_field"},
		[]string{kind.Name, kind.LabelField},
	)
	return arrow.NewSchema([]arrow.Field{
		{Name: "stem", Type: arrow.BinaryTypes.String},
		{Name: "path", Type: arrow.BinaryTypes.String},
		{Name: "split", Type: arrow.BinaryTypes.String},
		{Name: "label", Type: arrow.PrimitiveTypes.Float32},
	}, &md)
}

// WriteManifest writes one row per sample to an Arrow IPC file at path.
func (d *Dataset) WriteManifest(path string) error {
	schema := ManifestSchema(d.Kind)
	pool := memory.NewGoAllocator()

	b := array.NewRecordBuilder(pool, schema)
	defer b.Release()
	stems := b.Field(0).(*array.StringBuilder)
	paths := b.Field(1).(*array.StringBuilder)
	splits := b.Field(2).(*array.StringBuilder)
	values := b.Field(3).(*array.Float32Builder)
	for _, s := range d.samples {
		stems.Append(string(s.Stem))
		paths.Append(s.Path)
		splits.Append(d.Split)
		values.Append(s.Label[0])
	}
	rec := b.NewRecord()
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dataset: manifest: %w", err)
	}
	w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err != nil {
		f.Close()
		return fmt.Errorf("dataset: manifest: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		f.Close()
		return fmt.Errorf("dataset: manifest: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("dataset: manifest: %w", err)
	}
	return f.Close()
}

// ManifestRow is one decoded manifest entry.
type ManifestRow struct {
	Stem, Path, Split string
	Label             float32
}

// ReadManifest reads a manifest written by WriteManifest.
func ReadManifest(path string) ([]ManifestRow, *arrow.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("dataset: manifest: %w", err)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, nil, fmt.Errorf("dataset: manifest: %w", err)
	}
	defer r.Close()

	var rows []ManifestRow
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, nil, fmt.Errorf("dataset: manifest: record %d: %w", i, err)
		}
		stems := rec.Column(0).(*array.String)
		paths := rec.Column(1).(*array.String)
		splits := rec.Column(2).(*array.String)
		values := rec.Column(3).(*array.Float32)
		for j := 0; j < int(rec.NumRows()); j++ {
			rows = append(rows, ManifestRow{
				Stem:  stems.Value(j),
				Path:  paths.Value(j),
				Split: splits.Value(j),
				Label: values.Value(j),
			})
		}
	}
	return rows, r.Schema(), nil
}

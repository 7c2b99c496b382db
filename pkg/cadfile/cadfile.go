// Package cadfile names and lists the files the pipeline works on.
//
// Two identifier types are kept apart on purpose: a Filename carries its
// extension ("part001.csg") and keys the volume table, while a FileStem does
// not ("part001") and keys label dictionaries and graph samples.
package cadfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SolidExt is the extension of solid script files read by the kernel.
const SolidExt = ".csg"

// GraphExt is the extension of precomputed graph sample files.
const GraphExt = ".bin"

// MeshExt is the extension of mesh archives.
const MeshExt = ".npz"

// Filename is a base file name including its extension.
type Filename string

// FileStem is a base file name with its extension removed.
type FileStem string

// NameOf returns the base name of path.
func NameOf(path string) Filename {
	return Filename(filepath.Base(path))
}

// StemOf returns the base name of path without its final extension.
func StemOf(path string) FileStem {
	base := filepath.Base(path)
	return FileStem(strings.TrimSuffix(base, filepath.Ext(base)))
}

// Stem returns the stem of a filename.
func (f Filename) Stem() FileStem {
	return StemOf(string(f))
}

// List returns the regular files directly under dir whose extension is one of
// exts (case-insensitive), sorted by name. With no exts every regular file is
// returned.
func List(dir string, exts ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cadfile: list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if len(exts) > 0 && !hasExt(e.Name(), exts) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Walk returns every file with extension ext anywhere below root, in lexical
// walk order.
func Walk(root, ext string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if hasExt(d.Name(), []string{ext}) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cadfile: walk %s: %w", root, err)
	}
	return out, nil
}

func hasExt(name string, exts []string) bool {
	ext := filepath.Ext(name)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

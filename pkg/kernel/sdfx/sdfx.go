// Package sdfx implements the kernel.Kernel interface for solid scripts,
// using the github.com/deadsy/sdfx SDF library for placement transforms and
// bounds.
//
// Each placed primitive in a script becomes one solid with an analytic
// boundary representation: a box has six planar faces, a cylinder a bottom
// cap, a top cap and a lateral face, a sphere a single face.
package sdfx

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/chazu/uvreg/pkg/csg"
	"github.com/chazu/uvreg/pkg/engine"
	"github.com/chazu/uvreg/pkg/kernel"
)

// Compile-time interface checks.
var (
	_ kernel.Kernel = (*SdfxKernel)(nil)
	_ kernel.Solid  = (*sdfxSolid)(nil)
	_ kernel.Face   = (*sdfxFace)(nil)
)

// SdfxKernel implements kernel.Kernel for solid scripts.
type SdfxKernel struct {
	serial atomic.Uint64
}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{}
}

// Load evaluates the solid script at path. Each call evaluates in a fresh
// engine, so no interpreter state carries over between files.
func (k *SdfxKernel) Load(path string) ([]kernel.Solid, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sdfx: load %s: %w", path, err)
	}
	solids, err := k.LoadSource(string(src))
	if err != nil {
		return nil, fmt.Errorf("sdfx: load %s: %w", path, err)
	}
	return solids, nil
}

// LoadSource evaluates script source directly.
func (k *SdfxKernel) LoadSource(source string) ([]kernel.Solid, error) {
	tree, evalErrs, err := engine.NewEngine().Evaluate(source)
	if err != nil {
		return nil, err
	}
	if len(evalErrs) > 0 {
		errs := make([]error, len(evalErrs))
		for i, e := range evalErrs {
			errs[i] = e
		}
		return nil, errors.Join(errs...)
	}

	placed, err := csg.Flatten(tree)
	if err != nil {
		return nil, err
	}
	if len(placed) == 0 {
		return nil, kernel.ErrNoSolid
	}

	solids := make([]kernel.Solid, 0, len(placed))
	for _, p := range placed {
		s, err := newSolid(k.serial.Add(1), p)
		if err != nil {
			for _, done := range solids {
				done.Close()
			}
			return nil, fmt.Errorf("solid %q: %w", p.Name, err)
		}
		solids = append(solids, s)
	}
	return solids, nil
}

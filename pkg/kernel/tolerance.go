package kernel

import (
	"fmt"
	"math"
)

// Tolerance controls triangulation fidelity.
type Tolerance struct {
	// LinearDeflection bounds the distance between a triangle and the true
	// surface. When Relative is set it is a fraction of the face size.
	LinearDeflection float64
	// AngularDeflection bounds the angle in radians between normals at
	// neighbouring triangle vertices.
	AngularDeflection float64
	// Relative scales LinearDeflection by the face's largest extent.
	Relative bool
}

// DefaultTolerance matches the mesh extraction CLI defaults.
func DefaultTolerance() Tolerance {
	return Tolerance{LinearDeflection: 0.01, AngularDeflection: 0.1, Relative: true}
}

// Validate rejects negative and non-finite values.
func (t Tolerance) Validate() error {
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"linear deflection", t.LinearDeflection},
		{"angular deflection", t.AngularDeflection},
	} {
		if v.val < 0 || math.IsNaN(v.val) || math.IsInf(v.val, 0) {
			return fmt.Errorf("%w: %s %g", ErrInvalidTolerance, v.name, v.val)
		}
	}
	return nil
}

// Deflection returns the absolute linear deflection for a face whose largest
// extent is size.
func (t Tolerance) Deflection(size float64) float64 {
	if t.Relative {
		return t.LinearDeflection * size
	}
	return t.LinearDeflection
}

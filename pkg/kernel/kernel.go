// Package kernel defines the abstract CAD kernel interface used by the
// extraction pipeline. A kernel loads solid-model files and exposes each
// solid as a boundary representation: enumerable faces that can be
// triangulated and sampled, and whole-solid mass properties.
//
// Backends (sdfx) implement these interfaces; the rest of the system never
// sees their internal representation.
package kernel

import "errors"

var (
	// ErrClosed is returned by operations on a solid after Close.
	ErrClosed = errors.New("kernel: solid is closed")
	// ErrNoSolid is returned by Load when a file defines no solid.
	ErrNoSolid = errors.New("kernel: file contains no solid")
	// ErrUnknownFace is returned when a face does not belong to the solid an
	// EntityMapper was built from.
	ErrUnknownFace = errors.New("kernel: face does not belong to solid")
	// ErrInvalidTolerance is returned for negative or non-finite tolerances.
	ErrInvalidTolerance = errors.New("kernel: invalid tolerance")
)

// Kernel loads solid-model files.
type Kernel interface {
	// Load reads one file and returns one handle per solid it contains, in
	// file order. The caller owns the handles and must Close them.
	Load(path string) ([]Solid, error)
}

// Solid is an owned handle to one loaded B-rep solid.
type Solid interface {
	// Name is the solid's name within its file.
	Name() string
	// Faces enumerates the faces in a stable order.
	Faces() ([]Face, error)
	// Volume is the enclosed volume (mass at unit density).
	Volume() (float64, error)
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
	// Close releases the handle. Close is idempotent.
	Close() error
}

// FaceID identifies a face within the kernel that produced it. It is stable
// for the lifetime of the solid but carries no ordering meaning; use an
// EntityMapper for dense face indices.
type FaceID uint64

// Face is one bounded surface of a solid.
type Face interface {
	ID() FaceID
	// Triangulate tessellates the face under tol. A degenerate face returns
	// an empty FaceMesh and no error.
	Triangulate(tol Tolerance) (*FaceMesh, error)
	// SampleUV evaluates the face on a regular nu×nv grid over its
	// parameter domain.
	SampleUV(nu, nv int) (*UVGrid, error)
}

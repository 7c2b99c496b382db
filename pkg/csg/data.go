package csg

import (
	"fmt"
	"strconv"
)

// Vec3 is a 3D vector in millimetres (positions) or degrees (rotations).
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// IsZero reports whether all components are zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

func (v Vec3) String() string {
	f := func(x float64) string { return strconv.FormatFloat(x, 'g', -1, 64) }
	return fmt.Sprintf("(%s, %s, %s)", f(v.X), f(v.Y), f(v.Z))
}

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

// PrimitiveKind distinguishes between primitive shapes.
type PrimitiveKind int

const (
	PrimBox      PrimitiveKind = iota // rectangular solid, min corner at origin
	PrimCylinder                      // axis +Z, base centred on origin
	PrimSphere                        // centred on origin
)

func (k PrimitiveKind) String() string {
	switch k {
	case PrimBox:
		return "box"
	case PrimCylinder:
		return "cylinder"
	case PrimSphere:
		return "sphere"
	default:
		return "unknown"
	}
}

// BoxData is an axis-aligned box.
type BoxData struct {
	Size Vec3
}

func (BoxData) nodeData() {}

// CylinderData is a right circular cylinder.
type CylinderData struct {
	Radius float64
	Height float64
}

func (CylinderData) nodeData() {}

// SphereData is a sphere.
type SphereData struct {
	Radius float64
}

func (SphereData) nodeData() {}

// PrimitiveOf returns the primitive kind of a data payload, or false when the
// payload is not a primitive.
func PrimitiveOf(d NodeData) (PrimitiveKind, bool) {
	switch d.(type) {
	case BoxData:
		return PrimBox, true
	case CylinderData:
		return PrimCylinder, true
	case SphereData:
		return PrimSphere, true
	}
	return 0, false
}

// ---------------------------------------------------------------------------
// Transform
// ---------------------------------------------------------------------------

// TransformData is a placement applied to the child nodes.
// Created by the (place ...) form.
type TransformData struct {
	Translation *Vec3
	Rotation    *Vec3 // Euler angles in degrees, applied X then Y then Z
}

func (TransformData) nodeData() {}

// ---------------------------------------------------------------------------
// Group
// ---------------------------------------------------------------------------

// GroupData is a logical grouping created by the (assembly ...) form.
type GroupData struct {
	Description string
}

func (GroupData) nodeData() {}

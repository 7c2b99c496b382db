// Package csg defines the constructive solid tree produced by evaluating a
// solid script. The tree is an immutable DAG of primitives, transforms and
// groups; each evaluation produces a new tree.
package csg

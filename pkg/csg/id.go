package csg

import (
	"crypto/sha256"
	"encoding/hex"
)

// NodeID is a content-addressed identifier derived from a node's path.
type NodeID [32]byte

// ZeroID is the zero-value NodeID.
var ZeroID NodeID

// NewNodeID hashes a node path such as "solid/bracket" into a NodeID.
// Equal paths always produce equal IDs.
func NewNodeID(path string) NodeID {
	return NodeID(sha256.Sum256([]byte(path)))
}

// IsZero reports whether id is the zero value.
func (id NodeID) IsZero() bool {
	return id == ZeroID
}

// Short returns the first 6 bytes of the ID in hex, for logs and errors.
func (id NodeID) Short() string {
	return hex.EncodeToString(id[:6])
}

func (id NodeID) String() string {
	return hex.EncodeToString(id[:])
}

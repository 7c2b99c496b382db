// Package extract runs the batch preprocessing tools over a directory of
// solid files: mesh extraction writes one face-mapped mesh archive per file,
// volume extraction builds one volume table for the whole directory.
//
// Both run strictly one file at a time and stop at the first error.
package extract

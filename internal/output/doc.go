// Package output renders CLI results as deterministic JSON, YAML or plain text.
//
// JSON and YAML output goes through the same normalisation so that identical
// results produce byte-identical files:
//
//  1. Object keys are sorted.
//  2. Floats are rounded to at most 6 decimal places.
//  3. Null object members are dropped.
//
// Plain text is produced by a caller-supplied writer; see Write.
package output

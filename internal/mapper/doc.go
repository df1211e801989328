// Package mapper turns records into fixed-shape numeric rows.
//
// A mapper tree is built once from configuration out of three node kinds:
// leaves (scalar extraction), wrappers (normalization of one child) and
// concatenations (several children laid out side by side through an offset
// table). NewTree compiles the tree and assigns every node a region of a
// scratch arena. Each worker owns a State holding that arena; the tree itself
// is never written after compilation and may be shared across goroutines.
//
// Per record the protocol is Prepare, then any number of Feature, IsMasked,
// MapFeatures and MaskFeatures calls against the same Frame.
package mapper

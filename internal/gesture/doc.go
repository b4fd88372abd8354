// Package gesture defines the pointer gesture model handed to the host
// injection primitive, and the normalizer that keeps every stroke acceptable
// to it.
//
// A Request is one or more Strokes. A Stroke is an ordered point path with a
// start delay and a duration. Hosts silently drop zero-length paths, so every
// Request built by this package satisfies two invariants:
//
//   - no two consecutive points of a stroke are identical
//   - the final two points of the terminal stroke differ
//
// Normalization is total: degenerate input is nudged by one unit on the X
// axis rather than rejected. The only input that cannot be normalized is an
// empty point sequence, which is reported as ErrEmptyPath.
package gesture

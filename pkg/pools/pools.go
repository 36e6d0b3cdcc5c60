// Package pools recycles the output buffers of rendered frames.
//
// Buffers are grouped by size class so a small SVG never holds on to the
// backing array of a large PNG:
//
//   - SmallSize: JSON frames and layouts of small graphs
//   - MediumSize: typical SVG documents
//   - LargeSize: PNG images
package pools

// Package postprocess cleans generated images before they are stored:
// transparency is flattened onto a solid background, mean brightness is
// pulled toward a target with a bounded gain, optional contrast is applied,
// and the result is re-encoded as JPEG or PNG.
package postprocess

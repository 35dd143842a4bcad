// Package scenes holds the ordered scene list that drives generation and the
// YAML/JSON scene file format.
package scenes

// Package workspace owns the on-disk directory of one run: the scene file,
// exported assets and timings, the manifest and the assembled video. A
// workspace is held under an exclusive file lock for as long as it is open.
package workspace

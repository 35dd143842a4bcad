// Package assets tracks the generated image and audio for each scene.
//
// Store is the single owner of asset records and word timings. It enforces
// the lifecycle (pending, generating, complete, failed) and refuses to start
// a second generation for an asset that is already generating. Progress is
// always derived from a snapshot with ComputeProgress.
package assets

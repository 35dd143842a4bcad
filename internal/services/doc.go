// Package services defines shared utilities consumed by the generation
// pipeline and the provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run, scene and asset identifiers plus stage
//     names and correlation ids for logging.
//   - Structured error markers and the Wrap helper so provider, refusal and
//     post-processing failures can be told apart when an asset is marked failed.
//
// Use these helpers when wiring new provider or pipeline code so failure
// messages and log fields stay uniform.
package services

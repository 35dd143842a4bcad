// Package orchestrator fans per-scene image and narration jobs out over two
// independently bounded limiters, drives each asset through its lifecycle in
// the asset store, and answers progress and readiness queries.
//
// Batch methods wait for every job they submitted. A job failure or panic is
// recorded on that job's asset and never reaches its siblings. Manual retries
// bypass the limiters and are refused while the asset is already generating,
// so a retry and a queued batch job never run for the same asset at once.
package orchestrator

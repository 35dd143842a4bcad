// Package api serves a small HTTP view of a running generation.
//
// Routes:
//
//	GET  /api/progress             per-type counts plus limiter occupancy
//	GET  /api/assets               assets without bytes; ?type= and ?status= filter
//	GET  /api/assets/{id}/timing   word timings for an audio asset
//	GET  /api/readiness            gate verdict; ?proceed=true selects proceed-with-available
//	POST /api/assets/{id}/retry    starts a retry and returns 202 immediately
//
// Consumers poll; nothing is pushed. DTOs use camelCase JSON tags and
// RFC3339 timestamps with milliseconds. When a token is configured every
// route requires "Authorization: Bearer <token>".
package api

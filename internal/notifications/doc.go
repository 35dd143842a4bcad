// Package notifications delivers run events via ntfy.
//
// The topic comes from config.toml; with no topic configured NewService
// returns a no-op implementation. Per-event toggles (generation, assembly,
// errors) silence whole categories without touching callers, which depend
// only on the Service interface.
package notifications

// Package logging assembles structured slog loggers and formatting helpers used
// across slopreel.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// context-aware helpers that tag log lines with run, scene and asset ids. A
// no-op logger is provided for tests and wiring code that cannot fail.
package logging

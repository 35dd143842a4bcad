// Package main hosts the slopreel CLI entrypoint and command graph.
//
// The Cobra command tree drafts scene files with the LLM, runs asset
// generation for a scene file into a locked run directory, assembles the
// result into a video, and renders the attempt ledger. Configuration and
// logging are resolved once in commandContext so subcommands only wire the
// internal packages together.
//
// Keep this package lean: new behaviour belongs in internal packages first
// and is surfaced here through commands or flags.
package main

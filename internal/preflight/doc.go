// Package preflight provides readiness checks for the services and paths a
// slopreel run depends on.
//
// The generate command runs RunAll before creating a workspace so a missing
// API key or unwritable output directory fails in a second rather than after
// the first provider call. The doctor command prints every result, including
// the optional LLM and assembly service pings.
package preflight

// Package testsupport holds shared test fixtures: temp-dir configs, ledger
// helpers, sample scenes and media bytes, and fake providers that record
// requests and track concurrency.
package testsupport

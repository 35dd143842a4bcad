// Package gate decides whether a run's assets are settled enough to assemble.
package gate

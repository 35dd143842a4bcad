// Package fileutil provides atomic file writes used for run artifacts.
package fileutil

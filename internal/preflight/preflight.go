package preflight

import (
	"context"
	"path/filepath"

	"slopreel/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options selects the network checks. Filesystem and credential checks
// always run.
type Options struct {
	LLM      bool
	Assembly bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckWritableParent("Output directory", filepath.Join(cfg.Paths.OutputDir, "run")),
		CheckWritableParent("Ledger", cfg.Paths.LedgerPath),
		CheckCredentials("Image provider", cfg.Image.Provider, cfg.RequireImageCredentials),
		CheckCredentials("TTS provider", cfg.TTS.Provider, cfg.RequireTTSCredentials),
	}
	if opts.LLM {
		results = append(results, CheckLLM(ctx, cfg.LLM))
	}
	if opts.Assembly {
		results = append(results, CheckAssembly(ctx, cfg.Assembly))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

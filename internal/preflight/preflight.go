package preflight

import (
	"context"
	"strings"

	"voiceloom/internal/config"
	"voiceloom/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks for unconfigured integrations are skipped.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, fromDepStatus(status))
	}
	for _, status := range deps.CheckToolkit(cfg.Toolkit.Dir) {
		results = append(results, fromDepStatus(status))
	}
	results = append(results, CheckPretrainedAssets(cfg)...)

	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Projects directory", cfg.Paths.ProjectsDir))
	results = append(results, CheckDirectoryAccess("Weights directory", cfg.Paths.WeightsDir))

	// Synthesis service (when configured)
	if strings.TrimSpace(cfg.Synthesis.BaseURL) != "" {
		results = append(results, CheckSynthesis(ctx, cfg.Synthesis.BaseURL))
	}

	return results
}

// fromDepStatus converts a dependency status into a check result. Available
// dependencies show their resolved command so the operator can spot a wrong
// binary being picked up.
func fromDepStatus(status deps.Status) Result {
	result := Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
	if status.Available {
		result.Detail = status.Command
	}
	return result
}

package preflight

import (
	"context"
	"fmt"
	"strings"

	"ytsum/internal/config"
	"ytsum/internal/deps"
	"ytsum/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Options selects the checks RunAll performs.
type Options struct {
	// CheckLLM pings the configured LLM endpoint.
	CheckLLM bool
}

// RunAll executes the preflight checks for cfg in display order.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckFreeSpace("Work directory space", cfg.Paths.WorkDir, MinFreeBytes),
	}
	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, fromStatus(status))
	}

	if opts.CheckLLM {
		results = append(results, CheckLLM(ctx, "Language model", cfg.LLM))
	} else {
		results = append(results, checkAPIKey(cfg))
	}
	return results
}

// Failures returns the required checks that did not pass.
func Failures(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}

// RequireRunnable fails fast when a binary a run needs is missing, before any
// download starts.
func RequireRunnable(cfg *config.Config) error {
	missing := deps.MissingRequired(CheckSystemDeps(cfg))
	if len(missing) == 0 {
		return nil
	}
	return services.Wrap(
		services.ErrDependencyMissing,
		"setup",
		"preflight",
		fmt.Sprintf("required tools not found: %s", strings.Join(missing, ", ")),
		nil,
	)
}

func fromStatus(status deps.Status) Result {
	detail := status.Command
	if !status.Available {
		detail = status.Detail
	}
	if status.Description != "" {
		detail = fmt.Sprintf("%s (%s)", detail, status.Description)
	}
	return Result{
		Name:     status.Name,
		Passed:   status.Available,
		Optional: status.Optional,
		Detail:   detail,
	}
}

func checkAPIKey(cfg *config.Config) Result {
	const name = "Language model"
	if err := cfg.RequireAPIKey(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("API key configured (%s)", cfg.LLM.Model)}
}

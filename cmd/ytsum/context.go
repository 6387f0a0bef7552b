package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"ytsum/internal/acquire"
	"ytsum/internal/config"
	"ytsum/internal/logging"
	"ytsum/internal/pipeline"
)

// runner is the part of the orchestrator the summarize command drives.
type runner interface {
	Run(ctx context.Context, rawURL string) (pipeline.Result, error)
}

type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	// Overridable in tests.
	newRunner    func(cfg *config.Config, logger *slog.Logger, observer pipeline.Observer, progress acquire.ProgressFunc) (runner, error)
	newInspector func(cfg *config.Config, logger *slog.Logger) (acquire.Inspector, error)
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		verboseFlag:  verboseFlag,
		newRunner:    buildRunner,
		newInspector: buildInspector,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) verbose() bool {
	return c.verboseFlag != nil && *c.verboseFlag
}

// logger writes to the log file, and to stderr only when --verbose is set so
// progress output and log lines do not interleave.
func (c *commandContext) logger(cfg *config.Config) (*slog.Logger, error) {
	if c.verbose() {
		return logging.NewFromConfig(cfg)
	}
	if cfg == nil || strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return logging.NewNop(), nil
	}
	logPath := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
	return logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           "json",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"voiceloom/internal/config"
	"voiceloom/internal/jobs"
	"voiceloom/internal/logging"
	"voiceloom/internal/pipeline"
	"voiceloom/internal/project"
	"voiceloom/internal/runlog"
)

type commandContext struct {
	configFlag *string

	configOnce     sync.Once
	config         *config.Config
	configPath     string
	configFromFile bool
	configErr      error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, fromFile, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configFromFile = fromFile
	})
	return c.config, c.configErr
}

// configSource reports where the active configuration came from. Only valid
// after ensureConfig has run.
func (c *commandContext) configSource() (string, bool) {
	return c.configPath, c.configFromFile
}

// environment bundles the pipeline wiring a mutating command needs.
type environment struct {
	cfg          *config.Config
	store        *project.Store
	orchestrator *pipeline.Orchestrator
	ledger       *runlog.Store
	runner       *jobs.Runner
}

func (e *environment) close() {
	if e.orchestrator != nil {
		e.orchestrator.Close()
	}
	if e.runner != nil {
		e.runner.Close()
	}
	if e.ledger != nil {
		e.ledger.Close()
	}
}

// withEnvironment builds the orchestrator and its dependencies, runs fn,
// and tears everything down in dependency order. Read-only commands should
// use withStore instead to avoid spinning up the worker pool.
func (c *commandContext) withEnvironment(fn func(*environment) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger := fileLogger(cfg)
	store := project.NewStore(cfg, logger)
	runner := jobs.NewRunner(cfg.Workers.JobWorkers)

	opts := []pipeline.Option{}
	// A ledger that fails to open downgrades to unrecorded runs rather
	// than blocking the pipeline.
	ledger, ledgerErr := runlog.Open(cfg)
	if ledgerErr != nil {
		logger.Warn("run ledger unavailable", logging.Error(ledgerErr))
		ledger = nil
	} else {
		opts = append(opts, pipeline.WithLedger(ledger))
	}

	env := &environment{
		cfg:          cfg,
		store:        store,
		orchestrator: pipeline.New(cfg, store, runner, logger, opts...),
		ledger:       ledger,
		runner:       runner,
	}
	defer env.close()
	return fn(env)
}

// withStore resolves the config and project store without the rest of the
// pipeline.
func (c *commandContext) withStore(fn func(*config.Config, *project.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	return fn(cfg, project.NewStore(cfg, fileLogger(cfg)))
}

// fileLogger writes structured logs to the log file only. Terminal output
// stays reserved for command results.
func fileLogger(cfg *config.Config) *slog.Logger {
	dir := strings.TrimSpace(cfg.Paths.LogDir)
	if dir == "" {
		return logging.NewNop()
	}
	path := filepath.Join(dir, "voiceloom.log")
	logger, err := logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{path},
		ErrorOutputPaths: []string{path},
	})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

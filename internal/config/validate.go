package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateToolkit(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateSynthesis(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateToolkit() error {
	if strings.TrimSpace(c.Toolkit.Dir) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/voiceloom/config.toml"
		}
		return fmt.Errorf("toolkit.dir is required. Set VOICELOOM_TOOLKIT_DIR env var or edit %s (create with 'voiceloom config init')", defaultPath)
	}
	switch c.Toolkit.ASRPrecision {
	case "float16", "float32", "int8":
	default:
		return fmt.Errorf("toolkit.asr_precision must be one of float16, float32, int8 (got %q)", c.Toolkit.ASRPrecision)
	}
	return nil
}

func (c *Config) validateWorkers() error {
	return ensurePositiveMap(map[string]int{
		"workers.job_workers": c.Workers.JobWorkers,
	})
}

func (c *Config) validateSynthesis() error {
	parsed, err := url.Parse(c.Synthesis.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("synthesis.base_url must be a valid http(s) URL (got %q)", c.Synthesis.BaseURL)
	}
	return ensurePositiveMap(map[string]int{
		"synthesis.ready_timeout":       c.Synthesis.ReadyTimeout,
		"synthesis.request_timeout":     c.Synthesis.RequestTimeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

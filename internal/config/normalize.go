package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeToolkit(); err != nil {
		return err
	}
	if err := c.normalizePretrained(); err != nil {
		return err
	}
	c.normalizeWorkers()
	c.normalizeSynthesis()
	if err := c.normalizeRegistry(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ProjectsDir) == "" {
		c.Paths.ProjectsDir = filepath.Join(c.Paths.DataDir, "projects")
	}
	if c.Paths.ProjectsDir, err = expandPath(c.Paths.ProjectsDir); err != nil {
		return fmt.Errorf("paths.projects_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SamplesDir) == "" {
		c.Paths.SamplesDir = filepath.Join(c.Paths.DataDir, "slice_samples")
	}
	if c.Paths.SamplesDir, err = expandPath(c.Paths.SamplesDir); err != nil {
		return fmt.Errorf("paths.samples_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.PreviewsDir) == "" {
		c.Paths.PreviewsDir = filepath.Join(c.Paths.DataDir, "previews")
	}
	if c.Paths.PreviewsDir, err = expandPath(c.Paths.PreviewsDir); err != nil {
		return fmt.Errorf("paths.previews_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WeightsDir) == "" {
		c.Paths.WeightsDir = filepath.Join(c.Paths.DataDir, "models")
	}
	if c.Paths.WeightsDir, err = expandPath(c.Paths.WeightsDir); err != nil {
		return fmt.Errorf("paths.weights_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeToolkit() error {
	var err error
	if c.Toolkit.Dir == "" {
		if value, ok := os.LookupEnv("VOICELOOM_TOOLKIT_DIR"); ok {
			c.Toolkit.Dir = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Toolkit.Dir) == "" {
		c.Toolkit.Dir = defaultToolkitDir
	}
	if c.Toolkit.Dir, err = expandPath(c.Toolkit.Dir); err != nil {
		return fmt.Errorf("toolkit.dir: %w", err)
	}
	c.Toolkit.Python = strings.TrimSpace(c.Toolkit.Python)
	if c.Toolkit.Python == "" {
		c.Toolkit.Python = defaultPython
	}
	c.Toolkit.FFmpeg = strings.TrimSpace(c.Toolkit.FFmpeg)
	if c.Toolkit.FFmpeg == "" {
		c.Toolkit.FFmpeg = defaultFFmpeg
	}
	c.Toolkit.ASRModel = strings.TrimSpace(c.Toolkit.ASRModel)
	if c.Toolkit.ASRModel == "" {
		c.Toolkit.ASRModel = defaultASRModel
	}
	c.Toolkit.ASRPrecision = strings.ToLower(strings.TrimSpace(c.Toolkit.ASRPrecision))
	if c.Toolkit.ASRPrecision == "" {
		c.Toolkit.ASRPrecision = defaultASRPrecision
	}
	return nil
}

func (c *Config) normalizePretrained() error {
	var err error
	if strings.TrimSpace(c.Pretrained.BertDir) == "" {
		c.Pretrained.BertDir = filepath.Join(c.Toolkit.Dir, "GPT_SoVITS", "pretrained_models", "chinese-roberta-wwm-ext-large")
	}
	if c.Pretrained.BertDir, err = expandPath(c.Pretrained.BertDir); err != nil {
		return fmt.Errorf("pretrained.bert_dir: %w", err)
	}
	if strings.TrimSpace(c.Pretrained.SSLDir) == "" {
		c.Pretrained.SSLDir = filepath.Join(c.Toolkit.Dir, "GPT_SoVITS", "pretrained_models", "chinese-hubert-base")
	}
	if c.Pretrained.SSLDir, err = expandPath(c.Pretrained.SSLDir); err != nil {
		return fmt.Errorf("pretrained.ssl_dir: %w", err)
	}
	if strings.TrimSpace(c.Pretrained.S1Path) == "" {
		c.Pretrained.S1Path = filepath.Join(c.Toolkit.Dir, "GPT_SoVITS", "pretrained_models", "s1v3.ckpt")
	}
	if c.Pretrained.S1Path, err = expandPath(c.Pretrained.S1Path); err != nil {
		return fmt.Errorf("pretrained.s1_path: %w", err)
	}
	if strings.TrimSpace(c.Pretrained.S2GPath) == "" {
		c.Pretrained.S2GPath = filepath.Join(c.Toolkit.Dir, "GPT_SoVITS", "pretrained_models", "v2Pro", "s2Gv2Pro.pth")
	}
	if c.Pretrained.S2GPath, err = expandPath(c.Pretrained.S2GPath); err != nil {
		return fmt.Errorf("pretrained.s2g_path: %w", err)
	}
	if strings.TrimSpace(c.Pretrained.S2DPath) == "" {
		c.Pretrained.S2DPath = filepath.Join(c.Toolkit.Dir, "GPT_SoVITS", "pretrained_models", "v2Pro", "s2Dv2Pro.pth")
	}
	if c.Pretrained.S2DPath, err = expandPath(c.Pretrained.S2DPath); err != nil {
		return fmt.Errorf("pretrained.s2d_path: %w", err)
	}
	if strings.TrimSpace(c.Pretrained.S2ConfigPath) == "" {
		c.Pretrained.S2ConfigPath = filepath.Join(c.Toolkit.Dir, "GPT_SoVITS", "configs", "s2v2Pro.json")
	}
	if c.Pretrained.S2ConfigPath, err = expandPath(c.Pretrained.S2ConfigPath); err != nil {
		return fmt.Errorf("pretrained.s2_config_path: %w", err)
	}
	if strings.TrimSpace(c.Pretrained.SVPath) == "" {
		c.Pretrained.SVPath = filepath.Join(c.Toolkit.Dir, "GPT_SoVITS", "pretrained_models", "sv", "pretrained_eres2netv2w24s4ep4.ckpt")
	}
	if c.Pretrained.SVPath, err = expandPath(c.Pretrained.SVPath); err != nil {
		return fmt.Errorf("pretrained.sv_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorkers() {
	if c.Workers.JobWorkers <= 0 {
		c.Workers.JobWorkers = defaultJobWorkers
	}
}

func (c *Config) normalizeSynthesis() {
	c.Synthesis.BaseURL = strings.TrimRight(strings.TrimSpace(c.Synthesis.BaseURL), "/")
	if c.Synthesis.BaseURL == "" {
		c.Synthesis.BaseURL = defaultSynthesisBaseURL
	}
	if c.Synthesis.ReadyTimeout <= 0 {
		c.Synthesis.ReadyTimeout = defaultSynthesisReadyTimeout
	}
	if c.Synthesis.RequestTimeout <= 0 {
		c.Synthesis.RequestTimeout = defaultSynthesisRequestTimeout
	}
}

func (c *Config) normalizeRegistry() error {
	var err error
	if strings.TrimSpace(c.Registry.Path) == "" {
		c.Registry.Path = filepath.Join(c.Paths.DataDir, "profiles.json")
	}
	if c.Registry.Path, err = expandPath(c.Registry.Path); err != nil {
		return fmt.Errorf("registry.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("VOICELOOM_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

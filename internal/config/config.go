package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directory layout for voiceloom data.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	ProjectsDir string `toml:"projects_dir"`
	SamplesDir  string `toml:"samples_dir"`
	PreviewsDir string `toml:"previews_dir"`
	LogDir      string `toml:"log_dir"`
	WeightsDir  string `toml:"weights_dir"`
}

// Toolkit contains the external training toolkit location and tool binaries.
type Toolkit struct {
	Dir          string `toml:"dir"`
	Python       string `toml:"python"`
	FFmpeg       string `toml:"ffmpeg"`
	ASRModel     string `toml:"asr_model"`
	ASRPrecision string `toml:"asr_precision"`
}

// Pretrained contains paths to the pretrained model assets the feature
// extraction and training jobs expect.
type Pretrained struct {
	BertDir      string `toml:"bert_dir"`
	SSLDir       string `toml:"ssl_dir"`
	S1Path       string `toml:"s1_path"`
	S2GPath      string `toml:"s2g_path"`
	S2DPath      string `toml:"s2d_path"`
	S2ConfigPath string `toml:"s2_config_path"`
	SVPath       string `toml:"sv_path"`
}

// Workers contains worker pool sizing.
type Workers struct {
	JobWorkers int `toml:"job_workers"`
}

// Synthesis contains configuration for the voice synthesis service endpoint.
type Synthesis struct {
	BaseURL        string `toml:"base_url"`
	ReadyTimeout   int    `toml:"ready_timeout"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Registry contains configuration for the profile registry.
type Registry struct {
	Path string `toml:"path"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	LabelingReady  bool   `toml:"labeling_ready"`
	Training       bool   `toml:"training"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for voiceloom.
//
// Configuration sections by subsystem:
//   - Paths: data tree (projects, retained samples, previews, logs, weights)
//   - Toolkit: training toolkit checkout and tool binaries
//   - Pretrained: pretrained assets consumed by feature extraction/training
//   - Workers: job runner pool sizing
//   - Synthesis: voice synthesis service endpoint and timeouts
//   - Registry: voice profile registry storage
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Toolkit       Toolkit       `toml:"toolkit"`
	Pretrained    Pretrained    `toml:"pretrained"`
	Workers       Workers       `toml:"workers"`
	Synthesis     Synthesis     `toml:"synthesis"`
	Registry      Registry      `toml:"registry"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/voiceloom/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("voiceloom.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data tree required for operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.DataDir,
		c.Paths.ProjectsDir,
		c.Paths.SamplesDir,
		c.Paths.PreviewsDir,
		c.Paths.LogDir,
		c.Paths.WeightsDir,
	} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RunLedgerPath returns the SQLite path used for the external job run ledger.
func (c *Config) RunLedgerPath() string {
	return filepath.Join(c.Paths.DataDir, "runs.db")
}

// GPTWeightsDir returns the directory where training job 1 deposits checkpoints.
func (c *Config) GPTWeightsDir() string {
	return filepath.Join(c.Paths.WeightsDir, "GPT_weights")
}

// SoVITSWeightsDir returns the directory where training job 2 deposits checkpoints.
func (c *Config) SoVITSWeightsDir() string {
	return filepath.Join(c.Paths.WeightsDir, "SoVITS_weights")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

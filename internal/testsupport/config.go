package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"voiceloom/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	dataDir := filepath.Join(base, "data")
	toolkitDir := filepath.Join(base, "toolkit")

	cfgVal := config.Default()
	cfgVal.Paths.DataDir = dataDir
	cfgVal.Paths.ProjectsDir = filepath.Join(dataDir, "projects")
	cfgVal.Paths.SamplesDir = filepath.Join(dataDir, "slice_samples")
	cfgVal.Paths.PreviewsDir = filepath.Join(dataDir, "previews")
	cfgVal.Paths.LogDir = filepath.Join(dataDir, "logs")
	cfgVal.Paths.WeightsDir = filepath.Join(dataDir, "models")
	cfgVal.Toolkit.Dir = toolkitDir
	cfgVal.Pretrained.BertDir = filepath.Join(toolkitDir, "pretrained", "bert")
	cfgVal.Pretrained.SSLDir = filepath.Join(toolkitDir, "pretrained", "ssl")
	cfgVal.Pretrained.S1Path = filepath.Join(toolkitDir, "pretrained", "s1.ckpt")
	cfgVal.Pretrained.S2GPath = filepath.Join(toolkitDir, "pretrained", "s2G.pth")
	cfgVal.Pretrained.S2DPath = filepath.Join(toolkitDir, "pretrained", "s2D.pth")
	cfgVal.Pretrained.S2ConfigPath = filepath.Join(toolkitDir, "configs", "s2.json")
	cfgVal.Pretrained.SVPath = filepath.Join(toolkitDir, "pretrained", "sv.ckpt")
	cfgVal.Registry.Path = filepath.Join(dataDir, "profiles.json")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure test directories: %v", err)
	}
	if err := os.MkdirAll(builder.cfg.Toolkit.Dir, 0o755); err != nil {
		t.Fatalf("mkdir toolkit dir: %v", err)
	}

	return builder.cfg
}

// WithJobWorkers overrides the worker pool size on the test config.
func WithJobWorkers(workers int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workers.JobWorkers = workers
	}
}

// WithNtfyTopic enables notifications against the provided topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithSynthesisBaseURL points the synthesis client at a test server.
func WithSynthesisBaseURL(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Synthesis.BaseURL = baseURL
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default voiceloom external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"python3", "ffmpeg"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

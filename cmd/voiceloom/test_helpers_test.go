package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	toml "github.com/pelletier/go-toml/v2"

	"voiceloom/internal/config"
	"voiceloom/internal/logging"
	"voiceloom/internal/project"
	"voiceloom/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *project.Store
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t)

	configPath := filepath.Join(homeDir, ".config", "voiceloom", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      project.NewStore(cfg, logging.NewNop()),
		configPath: configPath,
		baseDir:    base,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func seedProject(t *testing.T, env *cliTestEnv) *project.TrainingProject {
	t.Helper()
	record, err := env.store.Create(context.Background(), "narrator", "en", project.Overrides{})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return record
}

func seedLabelingProject(t *testing.T, env *cliTestEnv) *project.TrainingProject {
	t.Helper()
	record := seedProject(t, env)
	for i := 1; i <= 3; i++ {
		name := fmt.Sprintf("narrator_%04d.wav", i)
		record.Segments = append(record.Segments, project.AudioSegment{
			ID:       fmt.Sprintf("seg-%02d", i),
			Filename: name,
			Filepath: filepath.Join(record.SlicedDir, name),
			Text:     fmt.Sprintf("line %d", i),
			Language: "en",
		})
	}
	record.SetProgress(project.StatusLabeling, "Ready for label review", project.ProgressLabeling)
	if err := env.store.Save(context.Background(), record); err != nil {
		t.Fatalf("save project: %v", err)
	}
	return record
}

func mustGetProject(t *testing.T, env *cliTestEnv, id string) *project.TrainingProject {
	t.Helper()
	record, err := env.store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get project %s: %v", id, err)
	}
	return record
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

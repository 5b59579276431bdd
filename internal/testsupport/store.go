package testsupport

import (
	"context"
	"testing"

	"voiceloom/internal/config"
	"voiceloom/internal/logging"
	"voiceloom/internal/project"
	"voiceloom/internal/runlog"
)

// NewProjectStore builds a project store over the test config's projects
// directory.
func NewProjectStore(t testing.TB, cfg *config.Config) *project.Store {
	t.Helper()
	return project.NewStore(cfg, logging.NewNop())
}

// NewProject creates a project record for tests using the provided store.
func NewProject(t testing.TB, store *project.Store, name, language string) *project.TrainingProject {
	t.Helper()

	record, err := store.Create(context.Background(), name, language, project.Overrides{})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return record
}

// MustOpenLedger opens a run ledger for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *runlog.Store {
	t.Helper()

	ledger, err := runlog.Open(cfg)
	if err != nil {
		t.Fatalf("runlog.Open: %v", err)
	}
	t.Cleanup(func() {
		ledger.Close()
	})
	return ledger
}

package segments_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"voiceloom/internal/logging"
	"voiceloom/internal/project"
	"voiceloom/internal/segments"
	"voiceloom/internal/testsupport"
)

func newRecord(t *testing.T) *project.TrainingProject {
	t.Helper()
	dir := t.TempDir()
	record := &project.TrainingProject{
		ID:         "seg00001",
		Name:       "narrator",
		Language:   "en",
		ProjectDir: dir,
		RawDir:     filepath.Join(dir, "raw"),
		VocalsDir:  filepath.Join(dir, "vocals"),
		SlicedDir:  filepath.Join(dir, "sliced"),
		OutputDir:  filepath.Join(dir, "output"),
	}
	for _, sub := range []string{record.RawDir, record.VocalsDir, record.SlicedDir, record.OutputDir} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", sub, err)
		}
	}
	return record
}

func writeList(t *testing.T, path string, lines string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for list: %v", err)
	}
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatalf("write list: %v", err)
	}
}

func TestResolvePrefersOutputListsAndAccumulates(t *testing.T) {
	record := newRecord(t)

	writeList(t, filepath.Join(record.OutputDir, "first.list"),
		"/audio/a.wav|narrator|EN|hello there\n")
	writeList(t, filepath.Join(record.OutputDir, "nested", "second.list"),
		"/audio/b.wav|narrator|EN|general greeting\n/audio/c.wav|narrator|EN|third line\n")

	// Lower-priority sources that must lose.
	writeList(t, filepath.Join(record.ASROutputDir(), "sliced.list"),
		"/audio/z.wav|narrator|EN|should not appear\n")
	testsupport.WriteWavs(t, record.SlicedDir, 2)

	resolved := segments.NewCatalog(logging.NewNop()).Resolve(context.Background(), record)
	if len(resolved) != 3 {
		t.Fatalf("expected 3 segments accumulated across lists, got %d", len(resolved))
	}
	for _, segment := range resolved {
		if segment.Text == "should not appear" {
			t.Fatal("asr list leaked into output-list resolution")
		}
		if len(segment.ID) != 8 {
			t.Fatalf("expected generated 8-char id, got %q", segment.ID)
		}
	}
}

func TestResolveFallsBackToASRLists(t *testing.T) {
	record := newRecord(t)

	writeList(t, filepath.Join(record.ASROutputDir(), "sliced.list"),
		"/audio/a.wav|narrator|ZH|transcribed text\n")
	testsupport.WriteWavs(t, record.SlicedDir, 3)

	resolved := segments.NewCatalog(logging.NewNop()).Resolve(context.Background(), record)
	if len(resolved) != 1 {
		t.Fatalf("expected 1 segment from asr list, got %d", len(resolved))
	}
	if resolved[0].Text != "transcribed text" {
		t.Fatalf("unexpected text: %q", resolved[0].Text)
	}
	if resolved[0].Language != "zh" {
		t.Fatalf("expected lower-cased language, got %q", resolved[0].Language)
	}
}

func TestResolveFallsBackToSlicedThenVocals(t *testing.T) {
	record := newRecord(t)
	testsupport.WriteWavs(t, record.SlicedDir, 3)
	testsupport.WriteWavs(t, record.VocalsDir, 5)

	catalog := segments.NewCatalog(logging.NewNop())
	resolved := catalog.Resolve(context.Background(), record)
	if len(resolved) != 3 {
		t.Fatalf("expected sliced audio to win, got %d segments", len(resolved))
	}
	for i, segment := range resolved {
		if segment.Text != "" {
			t.Fatalf("expected empty text pending labeling, got %q", segment.Text)
		}
		if segment.Language != "en" {
			t.Fatalf("expected project language, got %q", segment.Language)
		}
		if i > 0 && resolved[i-1].Filename > segment.Filename {
			t.Fatalf("expected name-sorted segments, got %q before %q", resolved[i-1].Filename, segment.Filename)
		}
	}

	if err := os.RemoveAll(record.SlicedDir); err != nil {
		t.Fatalf("remove sliced dir: %v", err)
	}
	resolved = catalog.Resolve(context.Background(), record)
	if len(resolved) != 5 {
		t.Fatalf("expected vocals fallback, got %d segments", len(resolved))
	}
}

func TestResolveEmptyEverywhere(t *testing.T) {
	record := newRecord(t)
	resolved := segments.NewCatalog(logging.NewNop()).Resolve(context.Background(), record)
	if resolved == nil {
		t.Fatal("expected non-nil empty slice")
	}
	if len(resolved) != 0 {
		t.Fatalf("expected zero segments, got %d", len(resolved))
	}
}

func TestResolveUnreadableListDegradesToNextSource(t *testing.T) {
	record := newRecord(t)

	// A directory with a .list name cannot be opened as a list file; the
	// asr source must contribute nothing and the chain falls through.
	if err := os.MkdirAll(filepath.Join(record.ASROutputDir(), "broken.list"), 0o755); err != nil {
		t.Fatalf("mkdir fake list: %v", err)
	}
	testsupport.WriteWavs(t, record.SlicedDir, 2)

	resolved := segments.NewCatalog(logging.NewNop()).Resolve(context.Background(), record)
	if len(resolved) != 2 {
		t.Fatalf("expected sliced fallback, got %d segments", len(resolved))
	}
}

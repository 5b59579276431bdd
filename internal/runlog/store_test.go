package runlog_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"voiceloom/internal/runlog"
	"voiceloom/internal/testsupport"
)

func TestRecordAndListByProject(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ledger := testsupport.MustOpenLedger(t, cfg)

	started := time.Now().UTC().Add(-2 * time.Second)
	id, err := ledger.Record(context.Background(), runlog.Run{
		ProjectID:  "abcd1234",
		Stage:      "slicing",
		Command:    "python3",
		Args:       "tools/slice_audio.py in.wav out",
		ExitCode:   0,
		DurationMS: 1500,
		StderrTail: "done",
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
	})
	if err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero run id")
	}

	if _, err := ledger.Record(context.Background(), runlog.Run{
		ProjectID: "abcd1234",
		Stage:     "transcribing",
		Command:   "python3",
		ExitCode:  1,
	}); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if _, err := ledger.Record(context.Background(), runlog.Run{
		ProjectID: "ffff0000",
		Stage:     "slicing",
		Command:   "python3",
	}); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	runs, err := ledger.ListByProject(context.Background(), "abcd1234", 10)
	if err != nil {
		t.Fatalf("ListByProject returned error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Stage != "transcribing" || runs[1].Stage != "slicing" {
		t.Fatalf("expected newest-first ordering, got %s then %s", runs[0].Stage, runs[1].Stage)
	}
	if runs[1].DurationMS != 1500 {
		t.Fatalf("unexpected duration: %d", runs[1].DurationMS)
	}
	if runs[1].StartedAt.IsZero() || runs[1].FinishedAt.Before(runs[1].StartedAt) {
		t.Fatalf("unexpected timestamps: %v %v", runs[1].StartedAt, runs[1].FinishedAt)
	}
}

func TestListRecentSpansProjects(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ledger := testsupport.MustOpenLedger(t, cfg)

	for _, projectID := range []string{"p1000000", "p2000000", "p3000000"} {
		if _, err := ledger.Record(context.Background(), runlog.Run{ProjectID: projectID, Stage: "slicing", Command: "python3"}); err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
	}

	runs, err := ledger.ListRecent(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListRecent returned error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected limit to apply, got %d runs", len(runs))
	}
	if runs[0].ProjectID != "p3000000" {
		t.Fatalf("expected newest run first, got %s", runs[0].ProjectID)
	}
}

func TestRecordTruncatesStderrTail(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ledger := testsupport.MustOpenLedger(t, cfg)

	huge := strings.Repeat("x", 10*1024) + "TAIL-MARKER"
	if _, err := ledger.Record(context.Background(), runlog.Run{
		ProjectID:  "abcd1234",
		Stage:      "training_gpt",
		Command:    "python3",
		StderrTail: huge,
	}); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	runs, err := ledger.ListByProject(context.Background(), "abcd1234", 1)
	if err != nil {
		t.Fatalf("ListByProject returned error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	tail := runs[0].StderrTail
	if len(tail) > 4*1024 {
		t.Fatalf("expected tail capped at 4KiB, got %d bytes", len(tail))
	}
	if !strings.HasSuffix(tail, "TAIL-MARKER") {
		t.Fatal("expected the end of stderr to survive truncation")
	}
}

func TestRecordRejectsMissingProject(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ledger := testsupport.MustOpenLedger(t, cfg)

	if _, err := ledger.Record(context.Background(), runlog.Run{Stage: "slicing", Command: "python3"}); err == nil {
		t.Fatal("expected error for missing project id")
	}
}

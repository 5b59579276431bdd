package project_test

import (
	"testing"

	"voiceloom/internal/project"
)

func TestParseStatus(t *testing.T) {
	status, ok := project.ParseStatus("Training_GPT")
	if !ok {
		t.Fatal("expected known status to parse")
	}
	if status != project.StatusTrainingGPT {
		t.Fatalf("unexpected status: %q", status)
	}

	if _, ok := project.ParseStatus("  completed  "); !ok {
		t.Fatal("expected trimmed status to parse")
	}
	if _, ok := project.ParseStatus("archived"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if _, ok := project.ParseStatus(""); ok {
		t.Fatal("expected empty status to be rejected")
	}
}

func TestCanTransition(t *testing.T) {
	legal := []struct{ from, to project.Status }{
		{project.StatusPending, project.StatusUploading},
		{project.StatusPending, project.StatusTranscribing},
		{project.StatusUploading, project.StatusSeparatingVocals},
		{project.StatusUploading, project.StatusSlicing},
		{project.StatusSeparatingVocals, project.StatusLabeling},
		{project.StatusSlicing, project.StatusTranscribing},
		{project.StatusTranscribing, project.StatusLabeling},
		{project.StatusLabeling, project.StatusPreparing},
		{project.StatusPreparing, project.StatusTrainingGPT},
		{project.StatusTrainingGPT, project.StatusTrainingSoVITS},
		{project.StatusTrainingSoVITS, project.StatusCompleted},
		{project.StatusTrainingGPT, project.StatusFailed},
		{project.StatusFailed, project.StatusSeparatingVocals},
	}
	for _, edge := range legal {
		if !project.CanTransition(edge.from, edge.to) {
			t.Fatalf("expected %s -> %s to be legal", edge.from, edge.to)
		}
	}

	illegal := []struct{ from, to project.Status }{
		{project.StatusCompleted, project.StatusPending},
		{project.StatusCompleted, project.StatusFailed},
		{project.StatusLabeling, project.StatusTrainingGPT},
		{project.StatusSlicing, project.StatusSeparatingVocals},
		{project.StatusPending, project.StatusLabeling},
		{project.StatusFailed, project.StatusCompleted},
		{project.StatusFailed, project.StatusPreparing},
	}
	for _, edge := range illegal {
		if project.CanTransition(edge.from, edge.to) {
			t.Fatalf("expected %s -> %s to be illegal", edge.from, edge.to)
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	processing := []project.Status{
		project.StatusSeparatingVocals,
		project.StatusSlicing,
		project.StatusTranscribing,
		project.StatusPreparing,
		project.StatusTrainingGPT,
		project.StatusTrainingSoVITS,
	}
	for _, status := range processing {
		if !project.IsProcessingStatus(status) {
			t.Fatalf("expected %s to be processing", status)
		}
	}
	for _, status := range []project.Status{project.StatusPending, project.StatusUploading, project.StatusLabeling, project.StatusCompleted, project.StatusFailed} {
		if project.IsProcessingStatus(status) {
			t.Fatalf("expected %s not to be processing", status)
		}
	}

	if !project.IsTerminalStatus(project.StatusCompleted) || !project.IsTerminalStatus(project.StatusFailed) {
		t.Fatal("expected completed and failed to be terminal")
	}
	if project.IsTerminalStatus(project.StatusLabeling) {
		t.Fatal("expected labeling not to be terminal")
	}

	record := &project.TrainingProject{Status: project.StatusLabeling}
	if !record.CanStartTraining() {
		t.Fatal("expected training to be startable from labeling")
	}
	record.Status = project.StatusPending
	if record.CanStartTraining() {
		t.Fatal("expected training not to be startable from pending")
	}
}

func TestConfigDefaults(t *testing.T) {
	gpt := project.DefaultGPTTrainConfig()
	if gpt.Epochs != 10 || gpt.BatchSize != 2 || gpt.SaveEveryEpoch != 5 || gpt.IfDPO {
		t.Fatalf("unexpected gpt defaults: %#v", gpt)
	}
	sovits := project.DefaultSoVITSTrainConfig()
	if sovits.Epochs != 8 || sovits.BatchSize != 2 || sovits.SaveEveryEpoch != 4 || sovits.TextLowLRRate != 0.4 {
		t.Fatalf("unexpected sovits defaults: %#v", sovits)
	}
	slice := project.DefaultSliceConfig()
	if slice.Threshold != -40 || slice.MinLength != 4000 || slice.MinInterval != 300 {
		t.Fatalf("unexpected slice defaults: %#v", slice)
	}
	if slice.HopSize != 10 || slice.MaxSilKept != 500 || slice.NormalizeMax != 0.9 || slice.AlphaMix != 0.25 {
		t.Fatalf("unexpected slice defaults: %#v", slice)
	}
}

func TestSetFailedKeepsProgress(t *testing.T) {
	record := &project.TrainingProject{}
	record.SetProgress(project.StatusTrainingGPT, "Training GPT model", project.ProgressTrainingGPT)
	record.SetFailed("trainer exited with code 2")

	if record.Status != project.StatusFailed {
		t.Fatalf("expected failed status, got %s", record.Status)
	}
	if record.Error == "" {
		t.Fatal("expected error message")
	}
	if record.Progress != project.ProgressTrainingGPT {
		t.Fatalf("expected progress to stay at %d, got %v", project.ProgressTrainingGPT, record.Progress)
	}

	record.ResetForRetry()
	if record.Error != "" || record.Progress != 0 || record.CurrentStep != "" {
		t.Fatalf("expected retry reset, got %#v", record)
	}
}

func TestSegmentHelpers(t *testing.T) {
	record := &project.TrainingProject{
		Segments: []project.AudioSegment{
			{ID: "aaaa1111", Filename: "a.wav", Text: "hello"},
			{ID: "bbbb2222", Filename: "b.wav", Text: "   "},
			{ID: "cccc3333", Filename: "c.wav", Text: "world"},
		},
	}

	segment, ok := record.Segment("bbbb2222")
	if !ok || segment.Filename != "b.wav" {
		t.Fatalf("unexpected lookup result: %v %v", segment, ok)
	}
	segment.Text = "now labeled"
	if record.Segments[1].Text != "now labeled" {
		t.Fatal("expected Segment to return a mutable pointer")
	}

	if _, ok := record.Segment("missing"); ok {
		t.Fatal("expected missing segment lookup to fail")
	}

	record.Segments[1].Text = " "
	labeled := record.LabeledSegments()
	if len(labeled) != 2 {
		t.Fatalf("expected 2 labeled segments, got %d", len(labeled))
	}
	if labeled[0].ID != "aaaa1111" || labeled[1].ID != "cccc3333" {
		t.Fatalf("unexpected labeled segments: %#v", labeled)
	}
}

func TestNewIDShape(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 64; i++ {
		id := project.NewID()
		if len(id) != 8 {
			t.Fatalf("expected 8-char id, got %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("generated duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

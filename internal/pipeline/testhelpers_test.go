package pipeline_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"voiceloom/internal/config"
	"voiceloom/internal/jobs"
	"voiceloom/internal/logging"
	"voiceloom/internal/notifications"
	"voiceloom/internal/pipeline"
	"voiceloom/internal/project"
	"voiceloom/internal/testsupport"
)

// scriptedExecutor stands in for os/exec. Each request is recorded and then
// dispatched to a handler keyed by script name (base name of the first .py
// argument, or the command itself for plain binaries). Unhandled requests
// succeed with exit 0 and empty output.
type scriptedExecutor struct {
	mu       sync.Mutex
	calls    []jobs.Request
	handlers map[string]func(jobs.Request) (jobs.Result, error)
}

func newScriptedExecutor() *scriptedExecutor {
	return &scriptedExecutor{handlers: make(map[string]func(jobs.Request) (jobs.Result, error))}
}

func (e *scriptedExecutor) handle(script string, fn func(jobs.Request) (jobs.Result, error)) {
	e.handlers[script] = fn
}

func (e *scriptedExecutor) Execute(ctx context.Context, req jobs.Request) (jobs.Result, error) {
	e.mu.Lock()
	e.calls = append(e.calls, req)
	fn := e.handlers[requestScript(req)]
	e.mu.Unlock()

	if fn != nil {
		return fn(req)
	}
	return jobs.Result{}, nil
}

func (e *scriptedExecutor) callsFor(script string) []jobs.Request {
	e.mu.Lock()
	defer e.mu.Unlock()

	var matched []jobs.Request
	for _, call := range e.calls {
		if requestScript(call) == script {
			matched = append(matched, call)
		}
	}
	return matched
}

func requestScript(req jobs.Request) string {
	if len(req.Args) > 0 && strings.HasSuffix(req.Args[0], ".py") {
		return filepath.Base(req.Args[0])
	}
	return filepath.Base(req.Command)
}

// captureNotifier records published events in order and keeps the last
// payload seen per event.
type captureNotifier struct {
	mu       sync.Mutex
	events   []notifications.Event
	payloads map[notifications.Event]notifications.Payload
}

func (n *captureNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = append(n.events, event)
	if n.payloads == nil {
		n.payloads = make(map[notifications.Event]notifications.Payload)
	}
	n.payloads[event] = payload
	return nil
}

func (n *captureNotifier) payload(event notifications.Event) notifications.Payload {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.payloads[event]
}

func (n *captureNotifier) saw(event notifications.Event) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, seen := range n.events {
		if seen == event {
			return true
		}
	}
	return false
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, executor jobs.Executor, opts ...pipeline.Option) (*pipeline.Orchestrator, *project.Store) {
	t.Helper()

	store := testsupport.NewProjectStore(t, cfg)
	runner := jobs.NewRunner(cfg.Workers.JobWorkers, jobs.WithExecutor(executor))
	t.Cleanup(runner.Close)
	orch := pipeline.New(cfg, store, runner, logging.NewNop(), opts...)
	t.Cleanup(func() {
		orch.Close()
	})
	return orch, store
}

// seedUploadedProject creates a project with n raw wav files, ready for
// preprocessing.
func seedUploadedProject(t *testing.T, store *project.Store, n int) *project.TrainingProject {
	t.Helper()

	record := testsupport.NewProject(t, store, "narrator", "en")
	testsupport.WriteWavs(t, record.RawDir, n)
	return record
}

// seedLabelingProject creates a project parked at the labeling checkpoint
// with n sliced segments, each carrying transcript text.
func seedLabelingProject(t *testing.T, store *project.Store, n int) *project.TrainingProject {
	t.Helper()

	record := testsupport.NewProject(t, store, "narrator", "en")
	wavs := testsupport.WriteWavs(t, record.SlicedDir, n)
	segs := make([]project.AudioSegment, 0, n)
	for i, wav := range wavs {
		segs = append(segs, project.AudioSegment{
			ID:       fmt.Sprintf("seg-%02d", i+1),
			Filename: filepath.Base(wav),
			Filepath: wav,
			Text:     fmt.Sprintf("line %d", i+1),
			Language: "en",
		})
	}
	record.Segments = segs
	record.SetProgress(project.StatusLabeling, "Ready for label review", project.ProgressLabeling)
	if err := store.Save(context.Background(), record); err != nil {
		t.Fatalf("store.Save: %v", err)
	}
	return record
}

func mustGet(t *testing.T, store *project.Store, id string) *project.TrainingProject {
	t.Helper()

	record, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("store.Get(%s): %v", id, err)
	}
	return record
}

// waitForStatus polls the store until the project reaches the wanted status.
// Background phases persist their result before releasing the project, so a
// short deadline is enough.
func waitForStatus(t *testing.T, store *project.Store, id string, want project.Status) *project.TrainingProject {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for {
		record, err := store.Get(context.Background(), id)
		if err == nil && record.Status == want {
			return record
		}
		if time.Now().After(deadline) {
			last := "unreadable"
			if err == nil {
				last = string(record.Status)
			}
			t.Fatalf("project %s never reached %s (last status %s)", id, want, last)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// sliceHandler fakes the slicer script: it drops n wav files named after the
// source stem into the output directory argument.
func sliceHandler(n int) func(jobs.Request) (jobs.Result, error) {
	return func(req jobs.Request) (jobs.Result, error) {
		if len(req.Args) < 3 {
			return jobs.Result{ExitCode: 2, Stderr: "slice stub: missing args"}, nil
		}
		source := req.Args[1]
		dir := req.Args[2]
		stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
		for i := 0; i < n; i++ {
			path := filepath.Join(dir, fmt.Sprintf("%s_%04d.wav", stem, i))
			if err := os.WriteFile(path, []byte("RIFFstub"), 0o644); err != nil {
				return jobs.Result{ExitCode: 2, Stderr: err.Error()}, nil
			}
		}
		return jobs.Result{}, nil
	}
}

// argValue returns the value following a flag in an argument list, or "".
func argValue(args []string, flag string) string {
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// envValue returns the value of a KEY=VALUE entry in an env list, or "".
func envValue(env []string, key string) string {
	prefix := key + "="
	for _, entry := range env {
		if strings.HasPrefix(entry, prefix) {
			return strings.TrimPrefix(entry, prefix)
		}
	}
	return ""
}

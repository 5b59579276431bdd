package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"voiceloom/internal/config"
	"voiceloom/internal/jobs"
	"voiceloom/internal/logging"
	"voiceloom/internal/notifications"
	"voiceloom/internal/project"
	"voiceloom/internal/registry"
	"voiceloom/internal/runlog"
	"voiceloom/internal/segments"
	"voiceloom/internal/services"
	"voiceloom/internal/services/synth"
)

// ErrClosed is returned when a phase is triggered after shutdown began.
var ErrClosed = errors.New("pipeline orchestrator closed")

// lockFilename is the per-project file lock claimed for the duration of a
// phase. It guards against a second voiceloom process working the same
// project directory.
const lockFilename = ".voiceloom.lock"

// Orchestrator coordinates the project lifecycle across the store, the job
// runner, and the downstream services that act on a finished model.
type Orchestrator struct {
	cfg      *config.Config
	store    *project.Store
	runner   *jobs.Runner
	catalog  *segments.Catalog
	synth    *synth.Client
	registry registry.Registry
	ledger   *runlog.Store
	notifier notifications.Service
	logger   *slog.Logger

	mu     sync.Mutex
	locks  map[string]*projectLock
	closed bool
	wg     sync.WaitGroup
}

// Option configures optional Orchestrator collaborators.
type Option func(*Orchestrator)

// WithNotifier overrides the notification service (used in tests).
func WithNotifier(notifier notifications.Service) Option {
	return func(o *Orchestrator) {
		o.notifier = notifier
	}
}

// WithRegistry overrides the voice profile registry.
func WithRegistry(reg registry.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = reg
	}
}

// WithLedger enables best-effort run recording for external jobs.
func WithLedger(ledger *runlog.Store) Option {
	return func(o *Orchestrator) {
		o.ledger = ledger
	}
}

// WithSynthClient overrides the synthesis client used for previews.
func WithSynthClient(client *synth.Client) Option {
	return func(o *Orchestrator) {
		o.synth = client
	}
}

// New constructs an orchestrator with default collaborators derived from the
// configuration. The caller retains ownership of the runner.
func New(cfg *config.Config, store *project.Store, runner *jobs.Runner, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	component := logging.NewComponentLogger(logger, "pipeline")
	o := &Orchestrator{
		cfg:      cfg,
		store:    store,
		runner:   runner,
		catalog:  segments.NewCatalog(logger),
		synth:    synth.NewClient(cfg, logger),
		registry: registry.NewFileRegistry(cfg, logger),
		notifier: notifications.NewService(cfg),
		logger:   component,
		locks:    make(map[string]*projectLock),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Close rejects new phases and waits for in-flight ones to finish.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()
	o.wg.Wait()
}

// projectLock serializes mutating operations on one project. busy marks a
// claimed phase and outlives the mutex hold.
type projectLock struct {
	mu   sync.Mutex
	busy bool
}

func (o *Orchestrator) lockFor(id string) *projectLock {
	o.mu.Lock()
	defer o.mu.Unlock()
	lk, ok := o.locks[id]
	if !ok {
		lk = &projectLock{}
		o.locks[id] = lk
	}
	return lk
}

// phaseGuard holds the claims a running phase owns until release.
type phaseGuard struct {
	lk       *projectLock
	fileLock *flock.Flock
}

func (g *phaseGuard) release(logger *slog.Logger) {
	if err := g.fileLock.Unlock(); err != nil && logger != nil {
		logger.Warn("failed to release project lock", logging.Error(err))
	}
	g.lk.mu.Lock()
	g.lk.busy = false
	g.lk.mu.Unlock()
}

// beginPhase loads the record and claims exclusive phase ownership for it.
// The validate callback runs with the operation lock held, so a successful
// claim reflects the record state the phase will start from.
func (o *Orchestrator) beginPhase(ctx context.Context, id, operation string, validate func(*project.TrainingProject) error) (*project.TrainingProject, *phaseGuard, error) {
	if o.isClosed() {
		return nil, nil, ErrClosed
	}

	lk := o.lockFor(id)
	lk.mu.Lock()
	defer lk.mu.Unlock()

	if lk.busy {
		return nil, nil, services.Wrap(services.ErrBusy, "", operation, "Another operation is already running for this project", nil)
	}
	record, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if validate != nil {
		if err := validate(record); err != nil {
			return nil, nil, err
		}
	}

	fileLock := flock.New(filepath.Join(record.ProjectDir, lockFilename))
	ok, err := fileLock.TryLock()
	if err != nil {
		return nil, nil, fmt.Errorf("acquire project lock: %w", err)
	}
	if !ok {
		return nil, nil, services.Wrap(services.ErrBusy, "", operation, "Project is locked by another voiceloom process", nil)
	}
	lk.busy = true
	return record, &phaseGuard{lk: lk, fileLock: fileLock}, nil
}

// requireToolkit rejects a phase start when no toolkit checkout is
// configured, so the failure surfaces before any project state changes.
func (o *Orchestrator) requireToolkit(operation string) error {
	if strings.TrimSpace(o.cfg.Toolkit.Dir) == "" {
		return services.Wrap(services.ErrConfiguration, "", operation,
			"GPT-SoVITS toolkit not configured (set toolkit.dir or VOICELOOM_TOOLKIT_DIR)", nil)
	}
	return nil
}

// track registers work with the shutdown wait group. The returned func must
// be called exactly once when the work finishes.
func (o *Orchestrator) track() (func(), error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, ErrClosed
	}
	o.wg.Add(1)
	return o.wg.Done, nil
}

// launch runs a claimed phase on a tracked goroutine. The phase detaches
// from the trigger's context so cancelling the trigger does not abort the
// run; Close joins it.
func (o *Orchestrator) launch(ctx context.Context, guard *phaseGuard, phase, id string, run func(context.Context) error) error {
	done, err := o.track()
	if err != nil {
		guard.release(o.logger)
		return err
	}
	background := context.WithoutCancel(ctx)
	go func() {
		defer done()
		defer guard.release(o.logger)
		if err := run(background); err != nil {
			o.logger.Error("background phase failed",
				logging.String("phase", phase),
				logging.String(logging.FieldProjectID, id),
				logging.Error(err),
			)
		}
	}()
	return nil
}

// runClaimed executes a claimed phase synchronously on the caller's
// goroutine while still participating in shutdown tracking.
func (o *Orchestrator) runClaimed(ctx context.Context, guard *phaseGuard, run func(context.Context) error) error {
	done, err := o.track()
	if err != nil {
		guard.release(o.logger)
		return err
	}
	defer done()
	defer guard.release(o.logger)
	return run(ctx)
}

func (o *Orchestrator) isClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// advance moves the record to the next lifecycle status and persists it.
// Same-status calls update the step and percent without a transition check,
// which is how substeps inside a stage report progress.
func (o *Orchestrator) advance(ctx context.Context, record *project.TrainingProject, status project.Status, step string, percent float64) error {
	if record.Status != status && !project.CanTransition(record.Status, status) {
		return services.Wrap(services.ErrInvalidState, string(record.Status), "advance project",
			fmt.Sprintf("Illegal status transition from %s to %s", record.Status, status), nil)
	}
	record.SetProgress(status, step, percent)
	return o.store.Save(ctx, record)
}

// failPhase marks the project failed, persists the record best-effort, and
// emits the failure notification. The original error passes through so the
// synchronous callers surface it.
func (o *Orchestrator) failPhase(ctx context.Context, record *project.TrainingProject, err error) error {
	// Failure handling still persists and notifies when the phase context
	// was the thing that failed.
	ctx = context.WithoutCancel(ctx)
	message := failureMessage(err)
	record.SetFailed(message)
	logger := o.projectLogger(record)
	if saveErr := o.store.Save(ctx, record); saveErr != nil {
		logger.ErrorContext(ctx, "failed to persist failure state", logging.Error(saveErr))
	}
	logger.ErrorContext(ctx, "phase failed",
		logging.String(logging.FieldEventType, "phase_failure"),
		logging.String("error_message", message),
		logging.Error(err),
	)
	o.publish(ctx, notifications.EventTrainingFailed, notifications.Payload{
		"project": record.Name,
		"error":   message,
	})
	return err
}

func failureMessage(err error) string {
	if err == nil {
		return "failed without error detail"
	}
	if details, ok := services.ErrorDetails(err); ok && strings.TrimSpace(details.Message) != "" {
		return details.Message
	}
	return strings.TrimSpace(err.Error())
}

func (o *Orchestrator) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Publish(ctx, event, payload); err != nil {
		o.logger.WarnContext(ctx, "notification publish failed",
			logging.String("event", string(event)),
			logging.Error(err),
		)
	}
}

func (o *Orchestrator) projectLogger(record *project.TrainingProject) *slog.Logger {
	return o.logger.With(
		logging.String(logging.FieldProjectID, record.ID),
		logging.String("project_name", record.Name),
	)
}

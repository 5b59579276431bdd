package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"voiceloom/internal/fileutil"
	"voiceloom/internal/jobs"
	"voiceloom/internal/language"
	"voiceloom/internal/logging"
	"voiceloom/internal/notifications"
	"voiceloom/internal/project"
	"voiceloom/internal/segments"
	"voiceloom/internal/services"
)

// sampleCount caps how many sliced files are retained as reference samples.
const sampleCount = 10

// PreprocessOptions selects which preprocessing stages run. Disabled stages
// are skipped entirely; the lifecycle takes the matching skip edge.
type PreprocessOptions struct {
	SeparateVocals bool
	Slice          bool
	Transcribe     bool
}

// DefaultPreprocessOptions enables every preprocessing stage.
func DefaultPreprocessOptions() PreprocessOptions {
	return PreprocessOptions{
		SeparateVocals: true,
		Slice:          true,
		Transcribe:     true,
	}
}

func (p PreprocessOptions) anyEnabled() bool {
	return p.SeparateVocals || p.Slice || p.Transcribe
}

// Preprocess runs the preprocessing phase synchronously and returns its
// outcome. Cancelling ctx aborts between jobs and marks the project failed.
func (o *Orchestrator) Preprocess(ctx context.Context, id string, opts PreprocessOptions) error {
	record, guard, err := o.beginPreprocess(ctx, id, opts)
	if err != nil {
		return err
	}
	return o.runClaimed(ctx, guard, func(runCtx context.Context) error {
		return o.runPreprocess(runCtx, record, opts)
	})
}

// StartPreprocessing launches the preprocessing phase in the background and
// returns once the project is claimed. Progress lands on the stored record.
func (o *Orchestrator) StartPreprocessing(ctx context.Context, id string, opts PreprocessOptions) error {
	record, guard, err := o.beginPreprocess(ctx, id, opts)
	if err != nil {
		return err
	}
	return o.launch(ctx, guard, "preprocessing", record.ID, func(runCtx context.Context) error {
		return o.runPreprocess(runCtx, record, opts)
	})
}

// Retry clears failure state and re-enters preprocessing with every stage
// enabled. Only failed projects qualify.
func (o *Orchestrator) Retry(ctx context.Context, id string) error {
	record, guard, err := o.beginPhase(ctx, id, "retry", func(record *project.TrainingProject) error {
		if record.Status != project.StatusFailed {
			return services.Wrap(services.ErrInvalidState, string(record.Status), "retry",
				fmt.Sprintf("Only failed projects can be retried; current status is %s", record.Status), nil)
		}
		if err := o.requireToolkit("retry"); err != nil {
			return err
		}
		return validateRawAudio(record, "retry")
	})
	if err != nil {
		return err
	}
	record.ResetForRetry()
	if err := o.store.Save(ctx, record); err != nil {
		guard.release(o.logger)
		return err
	}
	opts := DefaultPreprocessOptions()
	return o.launch(ctx, guard, "retry", record.ID, func(runCtx context.Context) error {
		return o.runPreprocess(runCtx, record, opts)
	})
}

func (o *Orchestrator) beginPreprocess(ctx context.Context, id string, opts PreprocessOptions) (*project.TrainingProject, *phaseGuard, error) {
	if !opts.anyEnabled() {
		return nil, nil, services.Wrap(services.ErrValidation, "", "preprocess",
			"At least one preprocessing stage must be enabled", nil)
	}
	return o.beginPhase(ctx, id, "preprocess", func(record *project.TrainingProject) error {
		switch record.Status {
		case project.StatusPending, project.StatusUploading:
		default:
			return services.Wrap(services.ErrInvalidState, string(record.Status), "preprocess",
				fmt.Sprintf("Preprocessing requires an uploaded project; current status is %s", record.Status), nil)
		}
		if opts.Slice || opts.Transcribe {
			if err := o.requireToolkit("preprocess"); err != nil {
				return err
			}
		}
		return validateRawAudio(record, "preprocess")
	})
}

func validateRawAudio(record *project.TrainingProject, operation string) error {
	files, err := audioFiles(record.RawDir)
	if err != nil {
		return fmt.Errorf("scan raw audio: %w", err)
	}
	if len(files) == 0 {
		return services.Wrap(services.ErrValidation, "", operation,
			"No raw audio uploaded; add source files first", nil)
	}
	return nil
}

// runPreprocess executes the enabled stages in order and parks the project
// at the labeling checkpoint. Per-file job failures degrade to pass-through
// copies; infrastructure failures mark the project failed.
func (o *Orchestrator) runPreprocess(ctx context.Context, record *project.TrainingProject, opts PreprocessOptions) error {
	logger := o.projectLogger(record)
	phaseStart := time.Now()

	if opts.SeparateVocals {
		if err := o.separateVocals(ctx, record, logger); err != nil {
			return o.failPhase(ctx, record, err)
		}
	}
	if opts.Slice {
		if err := o.sliceAudio(ctx, record, logger); err != nil {
			return o.failPhase(ctx, record, err)
		}
	}
	if opts.Transcribe {
		if err := o.transcribe(ctx, record, logger); err != nil {
			return o.failPhase(ctx, record, err)
		}
	}

	record.Segments = o.catalog.Resolve(ctx, record)
	if err := o.advance(ctx, record, project.StatusLabeling, "Ready for label review", project.ProgressLabeling); err != nil {
		return o.failPhase(ctx, record, err)
	}

	o.publish(ctx, notifications.EventLabelingReady, notifications.Payload{
		"project":  record.Name,
		"segments": strconv.Itoa(len(record.Segments)),
	})
	logger.InfoContext(ctx, "preprocessing completed",
		logging.String(logging.FieldEventType, "phase_complete"),
		logging.Int("segments", len(record.Segments)),
		logging.Duration("phase_duration", time.Since(phaseStart)),
	)
	return nil
}

// separateVocals converts each raw recording into a mono 44.1 kHz wav in the
// vocals directory. wav sources are copied as-is; everything else goes
// through ffmpeg, falling back to a copy if the conversion fails.
func (o *Orchestrator) separateVocals(ctx context.Context, record *project.TrainingProject, logger *slog.Logger) error {
	if err := o.advance(ctx, record, project.StatusSeparatingVocals, "Separating vocals from source audio", project.ProgressSeparatingVocals); err != nil {
		return err
	}
	sources, err := audioFiles(record.RawDir)
	if err != nil {
		return fmt.Errorf("scan raw audio: %w", err)
	}
	for _, source := range sources {
		target := filepath.Join(record.VocalsDir, stemName(source)+".wav")
		if strings.EqualFold(filepath.Ext(source), ".wav") {
			if err := fileutil.CopyFile(source, target); err != nil {
				return fmt.Errorf("copy wav source %s: %w", filepath.Base(source), err)
			}
			continue
		}
		result, runErr := o.runJob(ctx, record.ID, "separating_vocals", jobs.Request{
			Command: o.cfg.Toolkit.FFmpeg,
			Args:    []string{"-i", source, "-vn", "-acodec", "pcm_s16le", "-ar", "44100", "-ac", "1", "-y", target},
		})
		if err := ctx.Err(); err != nil {
			return err
		}
		if runErr != nil || result.ExitCode != 0 {
			logger.WarnContext(ctx, "vocal separation fell back to copy",
				logging.String("source", filepath.Base(source)),
				logging.Int("exit_code", result.ExitCode),
			)
			if err := fileutil.CopyFile(source, target); err != nil {
				return fmt.Errorf("fallback copy %s: %w", filepath.Base(source), err)
			}
		}
	}
	return nil
}

// sliceAudio cuts each vocal track into training-length segments with the
// toolkit slicer, then retains a handful of slices as reference samples.
// Without a separation pass the slicer reads the raw uploads directly.
func (o *Orchestrator) sliceAudio(ctx context.Context, record *project.TrainingProject, logger *slog.Logger) error {
	if err := o.advance(ctx, record, project.StatusSlicing, "Slicing audio into training segments", project.ProgressSlicing); err != nil {
		return err
	}
	sources, err := audioFiles(record.VocalsDir)
	if err != nil {
		return fmt.Errorf("scan vocal audio: %w", err)
	}
	if len(sources) == 0 {
		if sources, err = audioFiles(record.RawDir); err != nil {
			return fmt.Errorf("scan raw audio: %w", err)
		}
	}
	if len(sources) == 0 {
		logger.WarnContext(ctx, "no audio available to slice")
		return nil
	}

	script := filepath.Join(o.cfg.Toolkit.Dir, "tools", "slice_audio.py")
	sc := record.SliceConfig
	for _, source := range sources {
		result, runErr := o.runJob(ctx, record.ID, "slicing", jobs.Request{
			Command: o.cfg.Toolkit.Python,
			Args: []string{
				script,
				source,
				record.SlicedDir,
				strconv.Itoa(sc.Threshold),
				strconv.Itoa(sc.MinLength),
				strconv.Itoa(sc.MinInterval),
				strconv.Itoa(sc.HopSize),
				strconv.Itoa(sc.MaxSilKept),
				formatFloat(sc.NormalizeMax),
				formatFloat(sc.AlphaMix),
				"0",
				"1",
			},
			Dir: o.cfg.Toolkit.Dir,
		})
		if err := ctx.Err(); err != nil {
			return err
		}
		if runErr != nil || result.ExitCode != 0 {
			logger.WarnContext(ctx, "slicer fell back to copy",
				logging.String("source", filepath.Base(source)),
				logging.Int("exit_code", result.ExitCode),
			)
			if err := fileutil.CopyFile(source, filepath.Join(record.SlicedDir, filepath.Base(source))); err != nil {
				return fmt.Errorf("fallback copy %s: %w", filepath.Base(source), err)
			}
		}
	}

	retained, err := segments.SampleSliced(record.SlicedDir, o.cfg.Paths.SamplesDir, record.Name, sampleCount)
	if err != nil {
		logger.WarnContext(ctx, "failed to retain slice samples", logging.Error(err))
	} else if len(retained) > 0 {
		logger.InfoContext(ctx, "retained slice samples", logging.Int("count", len(retained)))
	}
	return nil
}

// transcribe runs the faster-whisper batch transcriber over the sliced
// directory. A nonzero exit leaves the segments unlabeled rather than
// failing the phase; a missing interpreter is fatal.
func (o *Orchestrator) transcribe(ctx context.Context, record *project.TrainingProject, logger *slog.Logger) error {
	if err := o.advance(ctx, record, project.StatusTranscribing, "Transcribing sliced audio", project.ProgressTranscribing); err != nil {
		return err
	}
	slices, err := audioFiles(record.SlicedDir)
	if err != nil {
		return fmt.Errorf("scan sliced audio: %w", err)
	}
	if len(slices) == 0 {
		logger.InfoContext(ctx, "no sliced audio to transcribe, skipping")
		return nil
	}
	if err := os.MkdirAll(record.ASROutputDir(), 0o755); err != nil {
		return fmt.Errorf("create asr output dir: %w", err)
	}

	script := filepath.Join(o.cfg.Toolkit.Dir, "tools", "asr", "fasterwhisper_asr.py")
	result, runErr := o.runJob(ctx, record.ID, "transcribing", jobs.Request{
		Command: o.cfg.Toolkit.Python,
		Args: []string{
			script,
			"-i", record.SlicedDir,
			"-o", record.ASROutputDir(),
			"-s", o.cfg.Toolkit.ASRModel,
			"-l", asrLanguage(record.Language),
			"-p", o.cfg.Toolkit.ASRPrecision,
		},
		Dir: o.cfg.Toolkit.Dir,
	})
	if err := ctx.Err(); err != nil {
		return err
	}
	if runErr != nil {
		if errors.Is(runErr, exec.ErrNotFound) {
			return services.Wrap(services.ErrExecutableNotFound, "transcribing", "run transcription",
				fmt.Sprintf("Interpreter %q not found", o.cfg.Toolkit.Python), runErr)
		}
		return fmt.Errorf("run transcription: %w", runErr)
	}
	if result.ExitCode != 0 {
		logger.WarnContext(ctx, "transcription exited nonzero, segments stay unlabeled",
			logging.Int("exit_code", result.ExitCode),
		)
	}
	return nil
}

// asrLanguage maps a project language tag onto the transcriber's supported
// set, dropping region subtags. Unknown languages fall back to detection.
func asrLanguage(lang string) string {
	tag := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(lang), "_", "-"))
	base, _, _ := strings.Cut(tag, "-")
	if code := language.Normalize(base); code != "" {
		return code
	}
	return "auto"
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"voiceloom/internal/logging"
	"voiceloom/internal/notifications"
	"voiceloom/internal/project"
	"voiceloom/internal/registry"
	"voiceloom/internal/services/synth"
)

// completeTraining resolves the trained checkpoints, commits the completed
// status, and then runs the post-completion conveniences. Everything after
// the commit is best-effort and never changes the committed status.
func (o *Orchestrator) completeTraining(ctx context.Context, record *project.TrainingProject, logger *slog.Logger) error {
	record.GPTModelPath = filepath.Join(o.cfg.GPTWeightsDir(),
		fmt.Sprintf("%s-e%d.ckpt", record.Name, record.GPTConfig.Epochs))

	pattern := filepath.Join(o.cfg.SoVITSWeightsDir(),
		fmt.Sprintf("%s_e%d_s*.pth", record.Name, record.SoVITSConfig.Epochs))
	record.SoVITSModelPath = pattern
	if matches, err := filepath.Glob(pattern); err == nil && len(matches) > 0 {
		sort.Strings(matches)
		record.SoVITSModelPath = matches[0]
	} else {
		logging.WarnWithContext(logger, "no sovits checkpoint matched; recording the pattern", "sovits_checkpoint_missing",
			logging.String("pattern", pattern),
			logging.String(logging.FieldErrorHint, "inspect the SoVITS weights directory for the expected epoch checkpoint"),
			logging.String(logging.FieldImpact, "voice profile references a glob pattern instead of a concrete file"),
		)
	}

	if err := o.advance(ctx, record, project.StatusCompleted, "Training completed", project.ProgressCompleted); err != nil {
		return err
	}

	profileID := o.registerProfile(ctx, record, logger)
	o.renderPreview(ctx, record, profileID, logger)
	if err := o.Cleanup(ctx, record); err != nil {
		logger.WarnContext(ctx, "cleanup after completion failed", logging.Error(err))
	}
	o.publish(ctx, notifications.EventTrainingCompleted, notifications.Payload{
		"project": record.Name,
		"profile": profileID,
	})
	return nil
}

func (o *Orchestrator) registerProfile(ctx context.Context, record *project.TrainingProject, logger *slog.Logger) string {
	if o.registry == nil {
		return ""
	}
	profileID, err := o.registry.CreateProfile(ctx, registry.Profile{
		Name:            record.Name,
		Language:        record.Language,
		GPTModelPath:    record.GPTModelPath,
		SoVITSModelPath: record.SoVITSModelPath,
	})
	if err != nil {
		logger.WarnContext(ctx, "profile registration failed", logging.Error(err))
		return ""
	}
	logger.InfoContext(ctx, "registered voice profile", logging.String("profile_id", profileID))
	return profileID
}

// renderPreview loads the freshly trained weights into the synthesis
// service and renders a short phrase against one of the retained slice
// samples. Any failure just means no preview.
func (o *Orchestrator) renderPreview(ctx context.Context, record *project.TrainingProject, profileID string, logger *slog.Logger) {
	if o.synth == nil || profileID == "" {
		return
	}
	reference := o.previewReference(record)
	if reference == "" {
		logger.InfoContext(ctx, "no retained samples for a preview, skipping")
		return
	}
	if err := o.synth.WaitUntilReady(ctx, 0); err != nil {
		logger.WarnContext(ctx, "synthesis service not ready, skipping preview", logging.Error(err))
		return
	}
	if err := o.synth.SetGPTWeights(ctx, record.GPTModelPath); err != nil {
		logger.WarnContext(ctx, "failed to load gpt weights for preview", logging.Error(err))
		return
	}
	if err := o.synth.SetSoVITSWeights(ctx, record.SoVITSModelPath); err != nil {
		logger.WarnContext(ctx, "failed to load sovits weights for preview", logging.Error(err))
		return
	}

	text, matched := synth.PreviewPhrase(record.Language)
	audio, err := o.synth.Render(ctx, synth.RenderRequest{
		Text:          text,
		Language:      matched,
		ReferencePath: reference,
	})
	if err != nil {
		logger.WarnContext(ctx, "preview render failed", logging.Error(err))
		return
	}

	if err := os.MkdirAll(o.cfg.Paths.PreviewsDir, 0o755); err != nil {
		logger.WarnContext(ctx, "failed to create previews dir", logging.Error(err))
		return
	}
	previewPath := filepath.Join(o.cfg.Paths.PreviewsDir, profileID+"_preview.wav")
	if err := os.WriteFile(previewPath, audio, 0o644); err != nil {
		logger.WarnContext(ctx, "failed to write preview", logging.Error(err))
		return
	}
	logger.InfoContext(ctx, "rendered voice preview",
		logging.String("path", previewPath),
		logging.String("language", matched),
	)
}

func (o *Orchestrator) previewReference(record *project.TrainingProject) string {
	files, err := audioFiles(filepath.Join(o.cfg.Paths.SamplesDir, record.Name))
	if err != nil || len(files) == 0 {
		return ""
	}
	return files[rand.Intn(len(files))]
}

// Cleanup removes the intermediate audio and training artifacts once a
// project completes, keeping the record, the trained model paths, and the
// retained samples. The caller must own the project while this runs.
func (o *Orchestrator) Cleanup(ctx context.Context, record *project.TrainingProject) error {
	var errs []error
	for _, dir := range []string{
		record.RawDir,
		record.VocalsDir,
		record.SlicedDir,
		record.ASROutputDir(),
		record.OutputDir,
	} {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", filepath.Base(dir), err))
		}
	}
	for _, pattern := range []string{"tmp_*.yaml", "tmp_*.json"} {
		matches, err := filepath.Glob(filepath.Join(record.ProjectDir, pattern))
		if err != nil {
			continue
		}
		for _, match := range matches {
			if err := os.Remove(match); err != nil {
				errs = append(errs, fmt.Errorf("remove %s: %w", filepath.Base(match), err))
			}
		}
	}

	record.Segments = []project.AudioSegment{}
	if err := o.store.Save(ctx, record); err != nil {
		errs = append(errs, fmt.Errorf("persist cleaned record: %w", err))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	o.projectLogger(record).InfoContext(ctx, "cleaned project workspace")
	return nil
}

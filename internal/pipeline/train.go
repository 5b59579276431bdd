package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"voiceloom/internal/fileutil"
	"voiceloom/internal/jobs"
	"voiceloom/internal/logging"
	"voiceloom/internal/project"
	"voiceloom/internal/segments"
	"voiceloom/internal/services"
)

// Train runs the training phase synchronously and returns its outcome.
func (o *Orchestrator) Train(ctx context.Context, id string) error {
	record, guard, err := o.beginTrain(ctx, id)
	if err != nil {
		return err
	}
	return o.runClaimed(ctx, guard, func(runCtx context.Context) error {
		return o.runTrain(runCtx, record)
	})
}

// StartTraining launches the training phase in the background and returns
// once the project is claimed.
func (o *Orchestrator) StartTraining(ctx context.Context, id string) error {
	record, guard, err := o.beginTrain(ctx, id)
	if err != nil {
		return err
	}
	return o.launch(ctx, guard, "training", record.ID, func(runCtx context.Context) error {
		return o.runTrain(runCtx, record)
	})
}

func (o *Orchestrator) beginTrain(ctx context.Context, id string) (*project.TrainingProject, *phaseGuard, error) {
	return o.beginPhase(ctx, id, "train", func(record *project.TrainingProject) error {
		if !record.CanStartTraining() {
			return services.Wrap(services.ErrInvalidState, string(record.Status), "train",
				fmt.Sprintf("Training requires a project at the labeling checkpoint; current status is %s", record.Status), nil)
		}
		if len(record.LabeledSegments()) == 0 {
			return services.Wrap(services.ErrValidation, "", "train",
				"At least one labeled segment is required to train", nil)
		}
		return o.requireToolkit("train")
	})
}

// runTrain prepares the training dataset, runs both model trainers, and
// finalizes the project. Every external job here is fatal on failure.
func (o *Orchestrator) runTrain(ctx context.Context, record *project.TrainingProject) error {
	logger := o.projectLogger(record)
	phaseStart := time.Now()

	if err := o.advance(ctx, record, project.StatusPreparing, "Preparing training data", project.ProgressPreparing); err != nil {
		return o.failPhase(ctx, record, err)
	}

	expDir := filepath.Join(record.OutputDir, record.Name)
	if err := os.MkdirAll(expDir, 0o755); err != nil {
		return o.failPhase(ctx, record, fmt.Errorf("create experiment dir: %w", err))
	}

	listPath := filepath.Join(expDir, record.Name+".list")
	labeled, err := segments.WriteList(listPath, record.Name, record.Segments)
	if err != nil {
		return o.failPhase(ctx, record, fmt.Errorf("write training list: %w", err))
	}
	logger.InfoContext(ctx, "wrote training list", logging.Int("segments", labeled))

	env := o.featureEnv(record, expDir, listPath)
	featureJobs := []struct {
		script   string
		step     string
		percent  float64
		finalize func(string) error
	}{
		{"1-get-text.py", "Extracting text features", project.ProgressTextFeatures, mergeTextParts},
		{"2-get-hubert-wav32k.py", "Extracting audio features", project.ProgressAudioFeatures, nil},
		{"3-get-semantic.py", "Extracting semantic features", project.ProgressSemanticFeatures, mergeSemanticParts},
	}
	for _, job := range featureJobs {
		if err := o.advance(ctx, record, project.StatusPreparing, job.step, job.percent); err != nil {
			return o.failPhase(ctx, record, err)
		}
		script := filepath.Join(o.cfg.Toolkit.Dir, "GPT_SoVITS", "prepare_datasets", job.script)
		if err := o.runTrainingJob(ctx, record, "preparing", job.script, jobs.Request{
			Command: o.cfg.Toolkit.Python,
			Args:    []string{script},
			Dir:     o.cfg.Toolkit.Dir,
			Env:     env,
		}); err != nil {
			return o.failPhase(ctx, record, err)
		}
		if job.finalize != nil {
			if err := job.finalize(expDir); err != nil {
				return o.failPhase(ctx, record, fmt.Errorf("merge %s output: %w", job.script, err))
			}
		}
	}

	s1ConfigPath := filepath.Join(record.ProjectDir, "tmp_s1.yaml")
	if err := o.writeGPTTrainerConfig(s1ConfigPath, record, expDir); err != nil {
		return o.failPhase(ctx, record, fmt.Errorf("write gpt trainer config: %w", err))
	}
	s2ConfigPath := filepath.Join(record.ProjectDir, "tmp_s2.json")
	if err := o.writeSoVITSTrainerConfig(s2ConfigPath, record, expDir); err != nil {
		return o.failPhase(ctx, record, fmt.Errorf("write sovits trainer config: %w", err))
	}
	for _, dir := range []string{o.cfg.GPTWeightsDir(), o.cfg.SoVITSWeightsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return o.failPhase(ctx, record, fmt.Errorf("create weights dir: %w", err))
		}
	}

	if err := o.advance(ctx, record, project.StatusTrainingGPT, "Training GPT model", project.ProgressTrainingGPT); err != nil {
		return o.failPhase(ctx, record, err)
	}
	if err := o.runTrainingJob(ctx, record, "training_gpt", "s1_train.py", jobs.Request{
		Command: o.cfg.Toolkit.Python,
		Args:    []string{filepath.Join(o.cfg.Toolkit.Dir, "GPT_SoVITS", "s1_train.py"), "--config_file", s1ConfigPath},
		Dir:     o.cfg.Toolkit.Dir,
		Env:     []string{"hz=25hz", "CUDA_VISIBLE_DEVICES=", "_CUDA_VISIBLE_DEVICES="},
	}); err != nil {
		return o.failPhase(ctx, record, err)
	}

	if err := o.advance(ctx, record, project.StatusTrainingSoVITS, "Training SoVITS model", project.ProgressTrainingSoVITS); err != nil {
		return o.failPhase(ctx, record, err)
	}
	if err := o.runTrainingJob(ctx, record, "training_sovits", "s2_train.py", jobs.Request{
		Command: o.cfg.Toolkit.Python,
		Args:    []string{filepath.Join(o.cfg.Toolkit.Dir, "GPT_SoVITS", "s2_train.py"), "--config", s2ConfigPath},
		Dir:     o.cfg.Toolkit.Dir,
		Env:     []string{"CUDA_VISIBLE_DEVICES="},
	}); err != nil {
		return o.failPhase(ctx, record, err)
	}

	if err := o.completeTraining(ctx, record, logger); err != nil {
		return o.failPhase(ctx, record, err)
	}
	logger.InfoContext(ctx, "training completed",
		logging.String(logging.FieldEventType, "phase_complete"),
		logging.Duration("phase_duration", time.Since(phaseStart)),
	)
	return nil
}

// featureEnv is the shared environment for the dataset preparation scripts.
// Each script reads its own subset. Device selection stays on the CPU-safe
// defaults; the toolkit decides on its own whether CUDA is usable.
func (o *Orchestrator) featureEnv(record *project.TrainingProject, expDir, listPath string) []string {
	return []string{
		"inp_text=" + listPath,
		"inp_wav_dir=" + record.SlicedDir,
		"exp_name=" + record.Name,
		"opt_dir=" + expDir,
		"bert_pretrained_dir=" + o.cfg.Pretrained.BertDir,
		"cnhubert_base_dir=" + o.cfg.Pretrained.SSLDir,
		"ssl_pretrained_dir=" + o.cfg.Pretrained.SSLDir,
		"sv_path=" + o.cfg.Pretrained.SVPath,
		"pretrained_s2G=" + o.cfg.Pretrained.S2GPath,
		"s2config_path=" + o.cfg.Pretrained.S2ConfigPath,
		"is_half=False",
		"i_part=0",
		"all_parts=1",
		"_CUDA_VISIBLE_DEVICES=0",
	}
}

// runTrainingJob executes one training-phase command where any failure is
// fatal. The stderr tail rides along in the error message so the record's
// failure reason points at the real cause.
func (o *Orchestrator) runTrainingJob(ctx context.Context, record *project.TrainingProject, stage, name string, req jobs.Request) error {
	result, err := o.runJob(ctx, record.ID, stage, req)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return services.Wrap(services.ErrExecutableNotFound, stage, name,
				fmt.Sprintf("Interpreter %q not found", req.Command), err)
		}
		return services.Wrap(services.ErrExternalTool, stage, name, "Job failed to start", err)
	}
	if result.ExitCode != 0 {
		message := fmt.Sprintf("%s exited with code %d", name, result.ExitCode)
		if snippet := stderrSnippet(result.Stderr); snippet != "" {
			message += ": " + snippet
		}
		return services.Wrap(services.ErrExternalTool, stage, name, message, nil)
	}
	return nil
}

// The preparation scripts shard their output by part index; with a single
// part the shards just need renaming into the names the trainers read.

func mergeTextParts(expDir string) error {
	part := filepath.Join(expDir, "2-name2text-0.txt")
	if _, err := os.Stat(part); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return fileutil.MoveFile(part, filepath.Join(expDir, "2-name2text.txt"))
}

func mergeSemanticParts(expDir string) error {
	part := filepath.Join(expDir, "6-name2semantic-0.tsv")
	data, err := os.ReadFile(part)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	merged := append([]byte("item_name\tsemantic_audio\n"), data...)
	if err := os.WriteFile(filepath.Join(expDir, "6-name2semantic.tsv"), merged, 0o644); err != nil {
		return err
	}
	return os.Remove(part)
}

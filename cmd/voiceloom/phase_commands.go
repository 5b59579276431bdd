package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"voiceloom/internal/pipeline"
	"voiceloom/internal/project"
)

const progressPollInterval = 500 * time.Millisecond

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <project> <file>...",
		Short: "Copy source recordings into a project",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(func(env *environment) error {
				record, err := resolveProject(cmd.Context(), env.store, args[0])
				if err != nil {
					return err
				}
				if err := env.orchestrator.Upload(cmd.Context(), record.ID, args[1:]); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Uploaded %d file(s) to %s\n", len(args)-1, record.Name)
				fmt.Fprintf(out, "Run `voiceloom preprocess %s` to continue\n", record.ID)
				return nil
			})
		},
	}
}

func newPreprocessCommand(ctx *commandContext) *cobra.Command {
	var skipSeparation bool
	var skipSlicing bool
	var skipTranscription bool

	cmd := &cobra.Command{
		Use:   "preprocess <project>",
		Short: "Separate, slice, and transcribe uploaded audio",
		Long: `Preprocess runs the automatic preparation stages (vocal separation,
slicing, transcription) and stops at the labeling checkpoint so the
transcripts can be reviewed before training.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(func(env *environment) error {
				record, err := resolveProject(cmd.Context(), env.store, args[0])
				if err != nil {
					return err
				}
				opts := pipeline.PreprocessOptions{
					SeparateVocals: !skipSeparation,
					Slice:          !skipSlicing,
					Transcribe:     !skipTranscription,
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Preprocessing %s\n", record.Name)
				final, err := runPhaseWithProgress(cmd.Context(), env.store, record.ID, out, func() error {
					return env.orchestrator.Preprocess(cmd.Context(), record.ID, opts)
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d segment(s) ready for review; inspect them with `voiceloom labels list %s`\n", len(final.Segments), record.ID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&skipSeparation, "skip-separation", false, "Reuse raw audio instead of isolating vocals")
	cmd.Flags().BoolVar(&skipSlicing, "skip-slicing", false, "Keep existing slices instead of re-slicing")
	cmd.Flags().BoolVar(&skipTranscription, "skip-transcription", false, "Leave segment labels empty for manual entry")
	return cmd
}

func newTrainCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "train <project>",
		Short: "Train GPT and SoVITS weights from labeled segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(func(env *environment) error {
				record, err := resolveProject(cmd.Context(), env.store, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Training %s\n", record.Name)
				final, err := runPhaseWithProgress(cmd.Context(), env.store, record.ID, out, func() error {
					return env.orchestrator.Train(cmd.Context(), record.ID)
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "Training complete")
				fmt.Fprintf(out, "  GPT weights:    %s\n", final.GPTModelPath)
				fmt.Fprintf(out, "  SoVITS weights: %s\n", final.SoVITSModelPath)
				return nil
			})
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <project>",
		Short: "Rerun preprocessing for a failed project",
		Long: `Retry clears the recorded failure and runs preprocessing again from the
start. The project must be in the failed status.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(func(env *environment) error {
				record, err := resolveProject(cmd.Context(), env.store, args[0])
				if err != nil {
					return err
				}
				if err := env.orchestrator.Retry(cmd.Context(), record.ID); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Retrying %s\n", record.Name)
				final, err := pollUntilStatus(cmd.Context(), env.store, record.ID, out, project.StatusLabeling)
				if err != nil {
					return err
				}
				if final.Status == project.StatusFailed {
					return fmt.Errorf("project %s failed again: %s", record.Name, final.Error)
				}
				fmt.Fprintf(out, "%d segment(s) ready for review\n", len(final.Segments))
				return nil
			})
		},
	}
}

// runPhaseWithProgress executes run in the background while this goroutine
// re-reads the project record to paint progress updates. The final record is
// fetched after run returns so callers see the persisted outcome.
func runPhaseWithProgress(ctx context.Context, store *project.Store, id string, out io.Writer, run func() error) (*project.TrainingProject, error) {
	done := make(chan error, 1)
	go func() { done <- run() }()

	progress := newPhaseProgress(out)
	ticker := time.NewTicker(progressPollInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			progress.finish()
			if err != nil {
				return nil, err
			}
			return store.Get(context.WithoutCancel(ctx), id)
		case <-ticker.C:
			record, err := store.Get(ctx, id)
			if err != nil {
				continue
			}
			progress.update(record)
		}
	}
}

// pollUntilStatus watches a detached phase until the project reaches one of
// the wanted statuses or records a failure. Retry resets the stored error
// before relaunching, so a failed status only counts once an error message
// is present again.
func pollUntilStatus(ctx context.Context, store *project.Store, id string, out io.Writer, want ...project.Status) (*project.TrainingProject, error) {
	progress := newPhaseProgress(out)
	ticker := time.NewTicker(progressPollInterval)
	defer ticker.Stop()

	for {
		record, err := store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		progress.update(record)
		if slices.Contains(want, record.Status) || (record.Status == project.StatusFailed && record.Error != "") {
			progress.finish()
			return record, nil
		}
		select {
		case <-ctx.Done():
			progress.finish()
			return record, ctx.Err()
		case <-ticker.C:
		}
	}
}

// phaseProgress renders a one-line status ticker. Interactive terminals get
// an in-place redraw; everything else gets a new line per status change.
type phaseProgress struct {
	out         io.Writer
	interactive bool
	last        string
	wrote       bool
}

func newPhaseProgress(out io.Writer) *phaseProgress {
	return &phaseProgress{out: out, interactive: shouldColorize(out)}
}

func (p *phaseProgress) update(record *project.TrainingProject) {
	line := fmt.Sprintf("%-18s %6s  %s", record.Status, formatProgress(record.Progress), record.CurrentStep)
	if p.interactive {
		fmt.Fprintf(p.out, "\r\x1b[K  %s", line)
		p.last = line
		p.wrote = true
		return
	}
	if line == p.last {
		return
	}
	fmt.Fprintf(p.out, "  %s\n", line)
	p.last = line
	p.wrote = true
}

func (p *phaseProgress) finish() {
	if p.interactive && p.wrote {
		fmt.Fprintln(p.out)
	}
}

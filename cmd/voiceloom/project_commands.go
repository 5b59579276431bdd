package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"voiceloom/internal/config"
	"voiceloom/internal/language"
	"voiceloom/internal/project"
)

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var lang string
	gpt := project.DefaultGPTTrainConfig()
	sovits := project.DefaultSoVITSTrainConfig()
	slice := project.DefaultSliceConfig()

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a training project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *project.Store) error {
				flags := cmd.Flags()
				overrides := project.Overrides{}
				if anyChanged(flags, "gpt-epochs", "gpt-batch-size", "gpt-save-every", "dpo") {
					overrides.GPT = &gpt
				}
				if anyChanged(flags, "sovits-epochs", "sovits-batch-size", "sovits-save-every", "text-low-lr-rate") {
					overrides.SoVITS = &sovits
				}
				if anyChanged(flags, "slice-threshold", "slice-min-length", "slice-min-interval",
					"slice-hop-size", "slice-max-sil", "slice-normalize-max", "slice-alpha-mix") {
					overrides.Slice = &slice
				}

				record, err := store.Create(cmd.Context(), args[0], lang, overrides)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created project %s (%s)\n", record.Name, record.ID)
				fmt.Fprintf(out, "Upload source audio with `voiceloom upload %s <files...>`\n", record.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&lang, "language", "l", "en",
		fmt.Sprintf("Transcript language (%s)", strings.Join(language.Codes(), ", ")))
	cmd.Flags().IntVar(&gpt.Epochs, "gpt-epochs", gpt.Epochs, "GPT training epochs")
	cmd.Flags().IntVar(&gpt.BatchSize, "gpt-batch-size", gpt.BatchSize, "GPT training batch size")
	cmd.Flags().IntVar(&gpt.SaveEveryEpoch, "gpt-save-every", gpt.SaveEveryEpoch, "Save GPT checkpoints every N epochs")
	cmd.Flags().BoolVar(&gpt.IfDPO, "dpo", gpt.IfDPO, "Enable DPO training for the GPT stage")
	cmd.Flags().IntVar(&sovits.Epochs, "sovits-epochs", sovits.Epochs, "SoVITS training epochs")
	cmd.Flags().IntVar(&sovits.BatchSize, "sovits-batch-size", sovits.BatchSize, "SoVITS training batch size")
	cmd.Flags().IntVar(&sovits.SaveEveryEpoch, "sovits-save-every", sovits.SaveEveryEpoch, "Save SoVITS checkpoints every N epochs")
	cmd.Flags().Float64Var(&sovits.TextLowLRRate, "text-low-lr-rate", sovits.TextLowLRRate, "SoVITS text module learning rate ratio")
	cmd.Flags().IntVar(&slice.Threshold, "slice-threshold", slice.Threshold, "Silence threshold in dB")
	cmd.Flags().IntVar(&slice.MinLength, "slice-min-length", slice.MinLength, "Minimum slice length in ms")
	cmd.Flags().IntVar(&slice.MinInterval, "slice-min-interval", slice.MinInterval, "Minimum silence interval in ms")
	cmd.Flags().IntVar(&slice.HopSize, "slice-hop-size", slice.HopSize, "Slicer hop size in ms")
	cmd.Flags().IntVar(&slice.MaxSilKept, "slice-max-sil", slice.MaxSilKept, "Maximum silence kept around slices in ms")
	cmd.Flags().Float64Var(&slice.NormalizeMax, "slice-normalize-max", slice.NormalizeMax, "Normalization ceiling")
	cmd.Flags().Float64Var(&slice.AlphaMix, "slice-alpha-mix", slice.AlphaMix, "Normalized audio mix ratio")

	return cmd
}

func anyChanged(flags *pflag.FlagSet, names ...string) bool {
	for _, name := range names {
		if flags.Changed(name) {
			return true
		}
	}
	return false
}

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List training projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *project.Store) error {
				records, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No projects yet; create one with `voiceloom create <name>`")
					return nil
				}

				rows := make([][]string, 0, len(records))
				for _, record := range records {
					rows = append(rows, []string{
						record.ID,
						record.Name,
						record.Language,
						string(record.Status),
						formatProgress(record.Progress),
						strconv.Itoa(len(record.Segments)),
						formatTimestamp(record.UpdatedAt),
					})
				}
				table := renderTable(
					[]string{"ID", "Name", "Lang", "Status", "Progress", "Segments", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <project>",
		Short: "Display a project and its segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *project.Store) error {
				record, err := resolveProject(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%s)\n", record.Name, record.ID)
				fmt.Fprintf(out, "  Language:  %s (%s)\n", language.DisplayName(record.Language), record.Language)
				fmt.Fprintf(out, "  Status:    %s (%s)\n", record.Status, formatProgress(record.Progress))
				fmt.Fprintf(out, "  Step:      %s\n", orDash(record.CurrentStep))
				if record.Error != "" {
					fmt.Fprintf(out, "  Error:     %s\n", record.Error)
				}
				fmt.Fprintf(out, "  Created:   %s\n", formatTimestamp(record.CreatedAt))
				fmt.Fprintf(out, "  Updated:   %s\n", formatTimestamp(record.UpdatedAt))
				fmt.Fprintf(out, "  GPT:       %d epochs, batch %d, dpo %s\n",
					record.GPTConfig.Epochs, record.GPTConfig.BatchSize, yesNo(record.GPTConfig.IfDPO))
				fmt.Fprintf(out, "  SoVITS:    %d epochs, batch %d\n",
					record.SoVITSConfig.Epochs, record.SoVITSConfig.BatchSize)
				if record.GPTModelPath != "" {
					fmt.Fprintf(out, "  GPT model:    %s\n", record.GPTModelPath)
				}
				if record.SoVITSModelPath != "" {
					fmt.Fprintf(out, "  SoVITS model: %s\n", record.SoVITSModelPath)
				}

				if len(record.Segments) == 0 {
					fmt.Fprintln(out, "  No segments yet")
					return nil
				}
				labeled := len(record.LabeledSegments())
				fmt.Fprintf(out, "  Segments:  %d (%d labeled)\n", len(record.Segments), labeled)

				rows := make([][]string, 0, len(record.Segments))
				for _, segment := range record.Segments {
					rows = append(rows, []string{
						segment.ID,
						segment.Filename,
						segment.Language,
						truncate(segment.Text, 60),
					})
				}
				table := renderTable(
					[]string{"Segment", "File", "Lang", "Text"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "delete <project>",
		Short: "Delete a project and its workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return errors.New("refusing to delete without --yes")
			}
			return ctx.withStore(func(cfg *config.Config, store *project.Store) error {
				record, err := resolveProject(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				removed, err := store.Delete(cmd.Context(), record.ID)
				if err != nil {
					return err
				}
				if !removed {
					fmt.Fprintf(cmd.OutOrStdout(), "Project %s was already gone\n", record.ID)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s (%s)\n", record.Name, record.ID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm deletion")
	return cmd
}

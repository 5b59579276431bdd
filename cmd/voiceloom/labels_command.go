package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"voiceloom/internal/config"
	"voiceloom/internal/pipeline"
	"voiceloom/internal/project"
)

func newLabelsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Review and edit transcript labels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newLabelsListCommand(ctx))
	cmd.AddCommand(newLabelsSetCommand(ctx))
	cmd.AddCommand(newLabelsDeleteCommand(ctx))
	cmd.AddCommand(newLabelsApplyCommand(ctx))
	return cmd
}

func newLabelsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <project>",
		Short: "List segments and their transcripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *project.Store) error {
				record, err := resolveProject(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(record.Segments) == 0 {
					fmt.Fprintln(out, "No segments yet; run preprocessing first")
					return nil
				}
				rows := make([][]string, 0, len(record.Segments))
				for _, segment := range record.Segments {
					rows = append(rows, []string{
						segment.ID,
						segment.Filename,
						segment.Language,
						truncate(segment.Text, 70),
					})
				}
				table := renderTable(
					[]string{"Segment", "File", "Lang", "Text"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(out, table)
				fmt.Fprintf(out, "%d of %d segment(s) labeled\n", len(record.LabeledSegments()), len(record.Segments))
				return nil
			})
		},
	}
}

func newLabelsSetCommand(ctx *commandContext) *cobra.Command {
	var language string

	cmd := &cobra.Command{
		Use:   "set <project> <segment> <text>...",
		Short: "Set the transcript for one segment",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(func(env *environment) error {
				record, err := resolveProject(cmd.Context(), env.store, args[0])
				if err != nil {
					return err
				}
				text := strings.Join(args[2:], " ")
				if err := env.orchestrator.UpdateSegment(cmd.Context(), record.ID, args[1], text, language); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", args[1])
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "Retag the segment language (empty keeps the current tag)")
	return cmd
}

func newLabelsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project> <segment>",
		Short: "Drop a segment from the training set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(func(env *environment) error {
				record, err := resolveProject(cmd.Context(), env.store, args[0])
				if err != nil {
					return err
				}
				if err := env.orchestrator.DeleteSegment(cmd.Context(), record.ID, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s from %s\n", args[1], record.Name)
				return nil
			})
		},
	}
}

func newLabelsApplyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <project> <file>",
		Short: "Apply labels from a tab-separated file",
		Long: `Apply reads "segment-id<TAB>text[<TAB>language]" lines and updates every
referenced segment in one batch. The batch is rejected whole when any id
is unknown.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(func(env *environment) error {
				record, err := resolveProject(cmd.Context(), env.store, args[0])
				if err != nil {
					return err
				}
				updates, err := parseLabelFile(args[1])
				if err != nil {
					return err
				}
				if err := env.orchestrator.BatchUpdateSegments(cmd.Context(), record.ID, updates); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %d segment(s) in %s\n", len(updates), record.Name)
				return nil
			})
		},
	}
}

// parseLabelFile reads "segment-id<TAB>text[<TAB>language]" lines. Blank
// lines and #-comments are skipped.
func parseLabelFile(path string) ([]pipeline.LabelUpdate, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var updates []pipeline.LabelUpdate
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) < 2 {
			return nil, fmt.Errorf("%s:%d: expected <segment-id><TAB><text>", path, lineNo)
		}
		update := pipeline.LabelUpdate{
			SegmentID: strings.TrimSpace(fields[0]),
			Text:      strings.TrimSpace(fields[1]),
		}
		if len(fields) == 3 {
			update.Language = strings.TrimSpace(fields[2])
		}
		updates = append(updates, update)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("%s contains no labels", path)
	}
	return updates, nil
}

package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"voiceloom/internal/config"
	"voiceloom/internal/project"
	"voiceloom/internal/runlog"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [project]",
		Short: "Show recorded toolkit invocations",
		Long: `Runs lists the external tool invocations recorded by the pipeline,
newest first. Pass a project to narrow the history to that project.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *project.Store) error {
				ledger, err := runlog.Open(cfg)
				if err != nil {
					return fmt.Errorf("open run ledger: %w", err)
				}
				defer ledger.Close()

				var runs []runlog.Run
				if len(args) == 1 {
					record, err := resolveProject(cmd.Context(), store, args[0])
					if err != nil {
						return err
					}
					runs, err = ledger.ListByProject(cmd.Context(), record.ID, limit)
					if err != nil {
						return err
					}
				} else {
					runs, err = ledger.ListRecent(cmd.Context(), limit)
					if err != nil {
						return err
					}
				}

				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No recorded runs")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						strconv.FormatInt(run.ID, 10),
						run.ProjectID,
						run.Stage,
						commandSummary(run),
						strconv.Itoa(run.ExitCode),
						formatRunDuration(run.DurationMS),
						formatTimestamp(run.StartedAt),
					})
				}
				table := renderTable(
					[]string{"Run", "Project", "Stage", "Command", "Exit", "Duration", "Started"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show")
	return cmd
}

// commandSummary compresses a recorded invocation for table display. Toolkit
// scripts dominate the ledger, so "python slice_audio.py" beats the full
// argument list.
func commandSummary(run runlog.Run) string {
	name := filepath.Base(run.Command)
	for _, field := range strings.Fields(run.Args) {
		if strings.HasSuffix(field, ".py") {
			return name + " " + filepath.Base(field)
		}
	}
	if run.Args == "" {
		return name
	}
	return truncate(name+" "+run.Args, 40)
}

func formatRunDuration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(10 * time.Millisecond).String()
}

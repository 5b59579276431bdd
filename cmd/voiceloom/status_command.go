package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"voiceloom/internal/config"
	"voiceloom/internal/preflight"
	"voiceloom/internal/project"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show environment and project status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *project.Store) error {
				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("System Status", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, configStatusLine(ctx, colorize))
				fmt.Fprintln(stdout, interpreterStatusLine(cfg, colorize))
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Environment Checks", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, result := range preflight.RunAll(cmd.Context(), cfg) {
					kind := statusOK
					if !result.Passed {
						kind = statusError
					}
					fmt.Fprintln(stdout, renderStatusLine(result.Name, kind, result.Detail, colorize))
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Projects", colorize) {
					fmt.Fprintln(stdout, line)
				}
				records, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				rows := buildProjectStatusRows(records)
				if len(rows) == 0 {
					fmt.Fprintln(stdout, "No projects yet")
					return nil
				}
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}
}

func configStatusLine(ctx *commandContext, colorize bool) string {
	path, fromFile := ctx.configSource()
	if fromFile {
		return renderStatusLine("Config", statusOK, path, colorize)
	}
	return renderStatusLine("Config", statusInfo, fmt.Sprintf("defaults (no file at %s)", path), colorize)
}

func interpreterStatusLine(cfg *config.Config, colorize bool) string {
	probe := preflight.ProbeInterpreter(cfg.Toolkit.Python)
	kind := statusOK
	if !probe.Detected {
		kind = statusWarn
	}
	return renderStatusLine("Interpreter", kind, probe.InterpreterDetail(), colorize)
}

func buildProjectStatusRows(records []*project.TrainingProject) [][]string {
	counts := make(map[project.Status]int, len(records))
	for _, record := range records {
		counts[record.Status]++
	}
	rows := make([][]string, 0, len(counts)+1)
	for _, status := range project.AllStatuses() {
		if counts[status] == 0 {
			continue
		}
		rows = append(rows, []string{string(status), strconv.Itoa(counts[status])})
	}
	if len(rows) > 0 {
		rows = append(rows, []string{"total", strconv.Itoa(len(records))})
	}
	return rows
}

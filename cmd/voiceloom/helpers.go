package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"voiceloom/internal/project"
	"voiceloom/internal/services"
)

// resolveProject accepts a project ID or a unique project name and returns
// the matching record.
func resolveProject(ctx context.Context, store *project.Store, ref string) (*project.TrainingProject, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, services.Wrap(services.ErrValidation, "", "resolve project", "Project id or name is required", nil)
	}

	if record, err := store.Get(ctx, ref); err == nil {
		return record, nil
	}

	records, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	var matched *project.TrainingProject
	for _, record := range records {
		if record.Name != ref {
			continue
		}
		if matched != nil {
			return nil, services.Wrap(services.ErrValidation, "", "resolve project",
				fmt.Sprintf("Multiple projects are named %q; use the project id", ref), nil)
		}
		matched = record
	}
	if matched == nil {
		return nil, services.Wrap(services.ErrNotFound, "", "resolve project",
			fmt.Sprintf("No project with id or name %q", ref), nil)
	}
	return matched, nil
}

func formatProgress(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64) + "%"
}

func formatTimestamp(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Local().Format("2006-01-02 15:04:05")
}

func truncate(value string, max int) string {
	value = strings.TrimSpace(value)
	if max <= 3 || len(value) <= max {
		return value
	}
	return value[:max-3] + "..."
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

package pipeline

import (
	"context"
	"strings"
	"time"

	"voiceloom/internal/jobs"
	"voiceloom/internal/logging"
	"voiceloom/internal/runlog"
)

// stderrSnippetLimit bounds how much captured stderr lands in the project
// record's error field. The run ledger keeps a longer tail.
const stderrSnippetLimit = 512

// runJob executes one external command through the shared runner and
// records the outcome in the run ledger when one is attached. Recording is
// best-effort and survives a cancelled job context.
func (o *Orchestrator) runJob(ctx context.Context, projectID, stage string, req jobs.Request) (jobs.Result, error) {
	started := time.Now()
	result, err := o.runner.Run(ctx, req)
	finished := time.Now()

	if o.ledger != nil {
		run := runlog.Run{
			ProjectID:  projectID,
			Stage:      stage,
			Command:    req.Command,
			Args:       strings.Join(req.Args, " "),
			ExitCode:   result.ExitCode,
			DurationMS: finished.Sub(started).Milliseconds(),
			StderrTail: result.Stderr,
			StartedAt:  started.UTC(),
			FinishedAt: finished.UTC(),
		}
		if _, recordErr := o.ledger.Record(context.WithoutCancel(ctx), run); recordErr != nil {
			o.logger.WarnContext(ctx, "failed to record job run",
				logging.String(logging.FieldStage, stage),
				logging.Error(recordErr),
			)
		}
	}
	return result, err
}

func stderrSnippet(stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if len(stderr) > stderrSnippetLimit {
		stderr = stderr[len(stderr)-stderrSnippetLimit:]
	}
	return stderr
}

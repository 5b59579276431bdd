package runlog

import (
	"strings"
	"time"
)

// Run is one recorded external job execution.
type Run struct {
	ID         int64
	ProjectID  string
	Stage      string
	Command    string
	Args       string
	ExitCode   int
	DurationMS int64
	StderrTail string
	StartedAt  time.Time
	FinishedAt time.Time
}

// stderrTailLimit bounds how much captured stderr is persisted per run.
const stderrTailLimit = 4 * 1024

// Tail trims a captured stream to its final stderrTailLimit bytes.
func Tail(output string) string {
	output = strings.TrimSpace(output)
	if len(output) <= stderrTailLimit {
		return output
	}
	return output[len(output)-stderrTailLimit:]
}

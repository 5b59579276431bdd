package preflight

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"voiceloom/internal/config"
)

// CheckSynthesisFromConfig evaluates synthesis service status from config
// and connectivity.
func CheckSynthesisFromConfig(cfg *config.Config) Result {
	const name = "Synthesis service"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Synthesis.BaseURL) == "" {
		return Result{Name: name, Passed: true, Detail: "Not configured"}
	}
	check := CheckSynthesis(context.Background(), cfg.Synthesis.BaseURL)
	if check.Passed {
		return Result{Name: name, Passed: true, Detail: check.Detail}
	}
	return Result{Name: name, Detail: check.Detail}
}

// InterpreterProbe reports the detected toolkit interpreter.
type InterpreterProbe struct {
	Detected bool
	Command  string
	Version  string
}

// ProbeInterpreter attempts to resolve and version the configured Python
// interpreter. Failures degrade to an undetected probe; status displays
// handle the rest.
func ProbeInterpreter(command string) InterpreterProbe {
	command = strings.TrimSpace(command)
	if command == "" {
		command = "python3"
	}
	if _, err := exec.LookPath(command); err != nil {
		return InterpreterProbe{Command: command}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, command, "--version")
	output, err := cmd.Output()
	if err != nil {
		return InterpreterProbe{Command: command}
	}
	text := strings.TrimSpace(string(output))
	if text == "" {
		return InterpreterProbe{Command: command}
	}
	version := text
	if fields := strings.Fields(text); len(fields) > 1 {
		version = fields[len(fields)-1]
	}
	return InterpreterProbe{
		Detected: true,
		Command:  command,
		Version:  version,
	}
}

// InterpreterDetail renders a display-friendly summary for status UIs.
func (p InterpreterProbe) InterpreterDetail() string {
	if !p.Detected {
		return fmt.Sprintf("%s not found", p.Command)
	}
	return fmt.Sprintf("%s (%s)", p.Command, p.Version)
}

package services

import (
	"errors"
	"strings"
)

var (
	ErrExternalTool       = errors.New("external tool error")
	ErrExecutableNotFound = errors.New("executable not found")
	ErrValidation         = errors.New("validation error")
	ErrConfiguration      = errors.New("configuration error")
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid state")
	ErrBusy               = errors.New("operation already in progress")
	ErrTimeout            = errors.New("timeout")
	ErrTransient          = errors.New("transient failure")
)

// Details carries the stage context recorded when an error was wrapped.
type Details struct {
	Stage     string
	Operation string
	Message   string
}

type stageError struct {
	marker  error
	details Details
	err     error
}

func (e *stageError) Error() string {
	parts := make([]string, 0, 3)
	if e.marker != nil {
		parts = append(parts, e.marker.Error())
	}
	if detail := buildDetail(e.details.Stage, e.details.Operation, e.details.Message); detail != "" {
		parts = append(parts, detail)
	}
	if e.err != nil {
		parts = append(parts, e.err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *stageError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.marker != nil {
		out = append(out, e.marker)
	}
	if e.err != nil {
		out = append(out, e.err)
	}
	return out
}

// Wrap builds an error that includes stage context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &stageError{
		marker: marker,
		details: Details{
			Stage:     strings.TrimSpace(stage),
			Operation: strings.TrimSpace(operation),
			Message:   strings.TrimSpace(message),
		},
		err: err,
	}
}

// ErrorDetails extracts the stage context from a wrapped error chain.
func ErrorDetails(err error) (Details, bool) {
	var se *stageError
	if errors.As(err, &se) {
		return se.details, true
	}
	return Details{}, false
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage != "" {
		parts = append(parts, stage)
	}
	if operation != "" {
		parts = append(parts, operation)
	}
	if message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// Package jobs runs external toolkit commands through a bounded worker pool.
//
// Every preprocessing and training stage shells out to ffmpeg or toolkit
// Python scripts; Runner serializes access to a fixed number of slots so a
// busy pipeline cannot fork an unbounded number of processes. Commands report
// their exit code and captured output in a Result; a non-zero exit is data
// for the caller to interpret, not an error. Errors are reserved for spawn
// failures and context cancellation.
//
// The Executor seam exists for tests: production code uses the os-backed
// executor, tests substitute scripted outcomes without forking.
package jobs

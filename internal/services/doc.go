// Package services defines shared utilities consumed by the pipeline
// orchestrator and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp project IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (not-found, invalid-state, external-tool, best-effort)
//     uniform across the pipeline.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability) stays consistent.
package services

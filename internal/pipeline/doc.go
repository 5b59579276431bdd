// Package pipeline drives training projects through the preprocessing and
// training phases.
//
// The Orchestrator owns every status transition. Phases claim a project with
// an in-process lock plus a file lock in the project directory, run their
// external jobs through the shared runner, and persist progress after each
// stage so observers always see a consistent record. Preprocessing ends at
// the labeling checkpoint; training resumes from it and finishes with
// checkpoint resolution, profile registration, a rendered preview, and
// workspace cleanup.
//
// Phase triggers come in synchronous and background flavors. Background
// phases detach from the caller's context and are joined by Close, which is
// how command handlers hand a long training run to the process lifetime.
//
// Add new lifecycle stages by extending the status enums in the project
// package and teaching the phase bodies here how to advance through them;
// this package is the authoritative home for that coordination logic.
package pipeline

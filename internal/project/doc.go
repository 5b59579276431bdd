// Package project defines the training project model and its file-backed
// persistence.
//
// A TrainingProject is a single JSON document living inside the project's own
// directory under the configured projects root, so a project and its audio
// artifacts travel together and can be inspected or removed as one tree. The
// Status type enumerates the workflow lifecycle and the legal transitions the
// pipeline orchestrator is allowed to take.
package project

// Package segments builds and serializes the audio segment catalog.
//
// After preprocessing, a project's segments can come from several places
// depending on which stages ran and whether transcription produced anything:
// finished transcript lists under the output tree, raw ASR lists, or bare
// sliced/vocal wav files awaiting manual labels. Resolve walks those sources
// in priority order and returns the first non-empty catalog, so a partially
// failed preprocessing run still yields something to label.
//
// The pipe-separated list format (`filepath|label|LANG|text`) is the
// interchange format the training toolkit consumes.
package segments

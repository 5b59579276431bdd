// Package language defines the transcript languages the training toolkit
// accepts and maps user-supplied spellings onto their canonical codes.
//
// Records carry the canonical lowercase code; transcript list files use the
// uppercase form derived via ListCode.
package language

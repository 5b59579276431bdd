// Package textutil sanitizes user-supplied names for filesystem and
// transcript use.
//
// Project names end up in weight filenames, retained-sample directories,
// and pipe-delimited transcript rows, so separators and shell-hostile
// characters are stripped up front.
package textutil

package project

import "github.com/google/uuid"

// NewID returns the short opaque identifier used for projects and segments.
// Eight hex characters keep ids readable in paths and CLI output while
// staying unique enough for a single operator's data tree.
func NewID() string {
	return uuid.NewString()[:8]
}

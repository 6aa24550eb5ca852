package interfaces

import (
	"errors"
	"fmt"
)

// ErrNotConfigured marks a stage whose provider credential is missing.
// The stage is disabled and returns its documented neutral default.
var ErrNotConfigured = errors.New("provider not configured")

// ErrInvalidPayload marks a structurally invalid provider response
// (wrong element count, unparseable JSON). Callers discard the payload
// and apply the conservative fallback for that one call.
var ErrInvalidPayload = errors.New("invalid provider payload")

// FatalRunError terminates a run early. It is raised only when ingestion
// and its fallback both fail to produce any signals; every other stage
// failure degrades in place.
type FatalRunError struct {
	Stage string
	Err   error
}

func (e *FatalRunError) Error() string {
	return fmt.Sprintf("fatal error in %s stage: %v", e.Stage, e.Err)
}

func (e *FatalRunError) Unwrap() error {
	return e.Err
}

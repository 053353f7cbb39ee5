package broadcaster

import "errors"

// Sentinel errors.
var (
	// ErrConfigNotFound is returned when no .broadcaster.yaml is found.
	ErrConfigNotFound = errors.New("broadcaster: no .broadcaster.yaml found")
)

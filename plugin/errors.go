package plugin

import "errors"

// Sentinel errors for the plugin package.
var (
	// ErrNotOpen is returned when lifecycle callbacks arrive before Open or after Close.
	ErrNotOpen = errors.New("plugin: not open")

	// ErrAlreadyOpen is returned when Open is called twice.
	ErrAlreadyOpen = errors.New("plugin: already open")
)

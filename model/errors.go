package model

import "errors"

// Sentinel errors for the model package.
var (
	// ErrUnknownOutcome is returned for outcome strings outside the closed set.
	ErrUnknownOutcome = errors.New("model: unknown outcome")

	// ErrUnknownWhen is returned for phase strings outside the closed set.
	ErrUnknownWhen = errors.New("model: unknown when")

	// ErrUnknownStep is returned for step kinds other than setup, call and teardown.
	ErrUnknownStep = errors.New("model: unknown step")

	// ErrUnknownReleaseLevel is returned for release levels outside the closed set.
	ErrUnknownReleaseLevel = errors.New("model: unknown release level")

	// ErrUnknownNodeType is returned when decoding a discovery item with an unknown node_type.
	ErrUnknownNodeType = errors.New("model: unknown node type")

	// ErrUnknownEvent is returned when decoding an event without a known discriminator.
	ErrUnknownEvent = errors.New("model: unknown event")
)

package reporter

import "errors"

// Sentinel errors for the reporter package.
var (
	// ErrProtocolViolation is returned when callbacks arrive in an order the
	// runner protocol does not allow. It signals a broken invariant.
	ErrProtocolViolation = errors.New("reporter: protocol violation")

	// ErrUnknownKind is returned for collected nodes of an unknown kind.
	ErrUnknownKind = errors.New("reporter: unknown node kind")
)

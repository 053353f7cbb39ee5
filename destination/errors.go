package destination

import "errors"

// Sentinel errors for the destination package.
var (
	// ErrAlreadyOpen is returned when a destination is opened twice.
	ErrAlreadyOpen = errors.New("destination: already open")

	// ErrNotOpen is returned when writing to a destination that is not open.
	ErrNotOpen = errors.New("destination: not open")

	// ErrDelivery is returned when a remote endpoint rejects a payload.
	ErrDelivery = errors.New("destination: delivery failed")

	// ErrUnknownKind is returned when an unknown destination kind is requested.
	ErrUnknownKind = errors.New("destination: unknown kind")

	// ErrInvalidConfig is returned for destination configs missing required fields.
	ErrInvalidConfig = errors.New("destination: invalid config")
)

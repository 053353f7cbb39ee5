// Package model defines the events and reports emitted while observing a test session.
package model

import "fmt"

// Event is implemented by every record written to the event stream.
type Event interface {
	// EventName returns the discriminator written alongside the event.
	EventName() string
}

// Event discriminators (the "event" field).
const (
	EventSessionStart   = "SessionStart"
	EventSessionFinish  = "SessionFinish"
	EventWarningMessage = "WarningMessage"
	EventErrorMessage   = "ErrorMessage"
	EventCollectReport  = "CollectReport"
)

// Outcome is the result of a test case or of one of its steps.
type Outcome string

// Outcome values.
const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
	OutcomeXFailed Outcome = "xfailed"
)

// ParseOutcome validates a raw outcome string.
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case OutcomePassed, OutcomeFailed, OutcomeSkipped, OutcomeXFailed:
		return o, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOutcome, s)
	}
}

// UnmarshalText rejects values outside the closed outcome set.
func (o *Outcome) UnmarshalText(b []byte) error {
	v, err := ParseOutcome(string(b))
	if err != nil {
		return err
	}

	*o = v

	return nil
}

// When tells which phase of the session a warning or error belongs to.
type When string

// When values.
const (
	WhenConfig  When = "config"
	WhenCollect When = "collect"
	WhenRuntest When = "runtest"
)

// ParseWhen validates a raw phase string.
func ParseWhen(s string) (When, error) {
	switch w := When(s); w {
	case WhenConfig, WhenCollect, WhenRuntest:
		return w, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownWhen, s)
	}
}

// UnmarshalText rejects values outside the closed phase set.
func (w *When) UnmarshalText(b []byte) error {
	v, err := ParseWhen(string(b))
	if err != nil {
		return err
	}

	*w = v

	return nil
}

package model

import "encoding/json"

// Location points at a line in a source file.
type Location struct {
	Filename string `json:"filename"`
	Lineno   int    `json:"lineno"`
}

// TracebackEntry is one frame of a call stack.
type TracebackEntry struct {
	Path    string `json:"path"`
	Lineno  int    `json:"lineno"`
	Message string `json:"message"`
}

// Traceback lists call-stack frames in the order the runner reported them.
type Traceback struct {
	Entries []TracebackEntry `json:"entries"`
}

// WarningMessage is a warning captured by the runner.
type WarningMessage struct {
	When     When     `json:"when"`
	NodeID   string   `json:"node_id"`
	Location Location `json:"location"`
	Message  string   `json:"message"`
	Category string   `json:"category,omitempty"`
}

// EventName implements Event.
func (WarningMessage) EventName() string { return EventWarningMessage }

// MarshalJSON adds the event discriminator.
func (e WarningMessage) MarshalJSON() ([]byte, error) {
	type alias WarningMessage

	return json.Marshal(struct {
		Event string `json:"event"`
		alias
	}{EventWarningMessage, alias(e)})
}

// ErrorMessage is an exception raised outside of a test body, typically during collection.
type ErrorMessage struct {
	When           When      `json:"when"`
	Location       Location  `json:"location"`
	ExceptionType  string    `json:"exception_type"`
	ExceptionValue string    `json:"exception_value"`
	Traceback      Traceback `json:"traceback"`
}

// EventName implements Event.
func (ErrorMessage) EventName() string { return EventErrorMessage }

// MarshalJSON adds the event discriminator.
func (e ErrorMessage) MarshalJSON() ([]byte, error) {
	type alias ErrorMessage

	return json.Marshal(struct {
		Event string `json:"event"`
		alias
	}{EventErrorMessage, alias(e)})
}

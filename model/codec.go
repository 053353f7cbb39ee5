package model

import (
	"encoding/json"
	"fmt"
	"io"
)

// DecodeEvent decodes one streamed event using its "event" or "event_type" discriminator.
func DecodeEvent(data []byte) (Event, error) {
	var head struct {
		Event     string `json:"event"`
		EventType string `json:"event_type"`
	}

	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	switch head.Event {
	case EventSessionStart:
		return decodeAs[SessionStart](data)
	case EventSessionFinish:
		return decodeAs[SessionFinish](data)
	case EventWarningMessage:
		return decodeAs[WarningMessage](data)
	case EventErrorMessage:
		return decodeAs[ErrorMessage](data)
	case EventCollectReport:
		return decodeAs[CollectReport](data)
	case "":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, head.Event)
	}

	switch head.EventType {
	case string(StepSetup), string(StepCall), string(StepTeardown):
		return decodeAs[TestCaseStep](data)
	case EventTestCaseFinished:
		return decodeAs[TestCaseFinished](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, head.EventType)
	}
}

func decodeAs[T Event](data []byte) (Event, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	return v, nil
}

// EncodeEvent writes one event as a compact JSON line.
func EncodeEvent(w io.Writer, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", e.EventName(), err)
	}

	data = append(data, '\n')
	_, err = w.Write(data)

	return err
}

// EncodeResult writes the session result as an indented JSON document.
func EncodeResult(w io.Writer, r *SessionResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(r)
}

// DecodeResult reads a session result document.
func DecodeResult(r io.Reader) (*SessionResult, error) {
	var result SessionResult
	if err := json.NewDecoder(r).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding session result: %w", err)
	}

	return &result, nil
}

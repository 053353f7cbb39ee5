package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// StepKind identifies the setup, call and teardown steps of a test case.
// Its value is written as the step's event_type.
type StepKind string

// StepKind values.
const (
	StepSetup    StepKind = "case_setup"
	StepCall     StepKind = "case_call"
	StepTeardown StepKind = "case_teardown"
)

// EventTestCaseFinished is the event_type of TestCaseFinished.
const EventTestCaseFinished = "case_finished"

// ParseStep maps a runner phase name ("setup", "call", "teardown") to a StepKind.
func ParseStep(when string) (StepKind, error) {
	switch when {
	case "setup", string(StepSetup):
		return StepSetup, nil
	case "call", string(StepCall):
		return StepCall, nil
	case "teardown", string(StepTeardown):
		return StepTeardown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStep, when)
	}
}

// TestCaseError is the failure payload of a step.
type TestCaseError struct {
	Message   string    `json:"message"`
	Traceback Traceback `json:"traceback"`
}

// TestCaseStep is the outcome of one step of a test case.
type TestCaseStep struct {
	Kind     StepKind       `json:"event_type"`
	NodeID   string         `json:"node_id"`
	Outcome  Outcome        `json:"outcome"`
	Duration float64        `json:"duration"`
	Start    time.Time      `json:"start"`
	Stop     time.Time      `json:"stop"`
	Error    *TestCaseError `json:"error,omitempty"`
}

// EventName implements Event.
func (s TestCaseStep) EventName() string { return string(s.Kind) }

// TestCaseFinished is emitted once all steps of a test case completed.
type TestCaseFinished struct {
	NodeID   string    `json:"node_id"`
	Outcome  Outcome   `json:"outcome"`
	Duration float64   `json:"total_duration"`
	Start    time.Time `json:"start"`
	Stop     time.Time `json:"stop"`
}

// EventName implements Event.
func (TestCaseFinished) EventName() string { return EventTestCaseFinished }

// MarshalJSON adds the event_type discriminator.
func (e TestCaseFinished) MarshalJSON() ([]byte, error) {
	type alias TestCaseFinished

	return json.Marshal(struct {
		EventType string `json:"event_type"`
		alias
	}{EventTestCaseFinished, alias(e)})
}

// TestCaseReport bundles every step of one test case with its finished record.
type TestCaseReport struct {
	NodeID   string            `json:"node_id"`
	Outcome  Outcome           `json:"outcome"`
	Duration float64           `json:"duration"`
	Setup    *TestCaseStep     `json:"setup"`
	Call     *TestCaseStep     `json:"call,omitempty"`
	Teardown *TestCaseStep     `json:"teardown,omitempty"`
	Finished *TestCaseFinished `json:"finished"`
}

// Steps returns the steps that occurred, in execution order.
func (r *TestCaseReport) Steps() []*TestCaseStep {
	steps := make([]*TestCaseStep, 0, 3)

	for _, s := range []*TestCaseStep{r.Setup, r.Call, r.Teardown} {
		if s != nil {
			steps = append(steps, s)
		}
	}

	return steps
}

// DeriveOutcome folds step outcomes into a test case outcome.
// Priority: failed, then xfailed, then skipped, otherwise passed.
func DeriveOutcome(steps ...*TestCaseStep) Outcome {
	var xfailed, skipped bool

	for _, s := range steps {
		switch s.Outcome {
		case OutcomeFailed:
			return OutcomeFailed
		case OutcomeXFailed:
			xfailed = true
		case OutcomeSkipped:
			skipped = true
		case OutcomePassed:
		}
	}

	switch {
	case xfailed:
		return OutcomeXFailed
	case skipped:
		return OutcomeSkipped
	default:
		return OutcomePassed
	}
}

// TotalDuration sums the durations of the given steps.
func TotalDuration(steps ...*TestCaseStep) float64 {
	var total float64
	for _, s := range steps {
		total += s.Duration
	}

	return total
}

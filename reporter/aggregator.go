package reporter

import (
	"fmt"

	"github.com/rlch/broadcaster/model"
)

// stepState is the state of the in-flight test case.
type stepState int

const (
	stateIdle stepState = iota
	stateAwaitingCall
	stateAwaitingTeardown
)

func (s stepState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAwaitingCall:
		return "awaiting call"
	case stateAwaitingTeardown:
		return "awaiting teardown"
	default:
		return fmt.Sprintf("stepState(%d)", int(s))
	}
}

// aggregator folds the steps of one test case at a time into a report.
//
// The runner executes test cases sequentially, so at most one report is
// pending. Steps arriving out of order are protocol violations.
type aggregator struct {
	state   stepState
	pending *model.TestCaseReport
}

// add records a step on the pending report, opening one on setup.
func (a *aggregator) add(step model.TestCaseStep) error {
	switch step.Kind {
	case model.StepSetup:
		if a.state != stateIdle {
			return a.violation("setup", step.NodeID)
		}

		a.pending = &model.TestCaseReport{NodeID: step.NodeID, Setup: &step}
		a.state = stateAwaitingCall
	case model.StepCall:
		if a.state != stateAwaitingCall || a.pending.NodeID != step.NodeID {
			return a.violation("call", step.NodeID)
		}

		a.pending.Call = &step
		a.state = stateAwaitingTeardown
	case model.StepTeardown:
		// Teardown still runs when setup failed and call was skipped.
		if a.state == stateIdle || a.pending.NodeID != step.NodeID {
			return a.violation("teardown", step.NodeID)
		}

		a.pending.Teardown = &step
		a.state = stateAwaitingTeardown
	default:
		return fmt.Errorf("%w: %q", model.ErrUnknownStep, step.Kind)
	}

	return nil
}

// finish completes the pending report and resets the aggregator.
func (a *aggregator) finish(nodeID string) (model.TestCaseReport, error) {
	if a.state == stateIdle || a.pending.NodeID != nodeID {
		return model.TestCaseReport{}, a.violation("finish", nodeID)
	}

	report := *a.pending
	steps := report.Steps()

	report.Outcome = model.DeriveOutcome(steps...)
	report.Duration = model.TotalDuration(steps...)
	report.Finished = &model.TestCaseFinished{
		NodeID:   nodeID,
		Outcome:  report.Outcome,
		Duration: report.Duration,
		Start:    steps[0].Start,
		Stop:     steps[len(steps)-1].Stop,
	}

	a.pending = nil
	a.state = stateIdle

	return report, nil
}

func (a *aggregator) violation(got, nodeID string) error {
	if a.pending == nil {
		return fmt.Errorf("%w: %s for %q with no pending test case", ErrProtocolViolation, got, nodeID)
	}

	return fmt.Errorf("%w: %s for %q while %q is %s",
		ErrProtocolViolation, got, nodeID, a.pending.NodeID, a.state)
}

// callOutcome promotes a skipped call of an expected failure to xfailed.
func callOutcome(raw model.Outcome, wasXFail bool) model.Outcome {
	if raw == model.OutcomeSkipped && wasXFail {
		return model.OutcomeXFailed
	}

	return raw
}

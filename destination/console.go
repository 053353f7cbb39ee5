package destination

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rlch/broadcaster/model"
)

// Console styles.
const (
	StyleDots    = "dots"
	StyleVerbose = "verbose"
)

const lineWidth = 80

// Console prints a human readable progress view of the session. The dots
// style prints one character per finished test case, the verbose style one
// line per test case. Both close with a summary of failures.
type Console struct {
	w       io.Writer
	verbose bool
	count   int
}

var _ Destination = (*Console)(nil)

// NewConsole creates a console destination writing to w.
func NewConsole(w io.Writer, style string) *Console {
	return &Console{w: w, verbose: style == StyleVerbose}
}

// WriteEvent prints progress for finished test cases and collection errors.
func (c *Console) WriteEvent(_ context.Context, event model.Event) error {
	switch e := event.(type) {
	case model.TestCaseFinished:
		if c.verbose {
			_, err := fmt.Fprintf(c.w, "--- %s: %s (%s)\n", label(e.Outcome), e.NodeID, seconds(e.Duration))
			return err
		}

		return c.dot(mark(e.Outcome))
	case model.ErrorMessage:
		if c.verbose {
			_, err := fmt.Fprintf(c.w, "--- ERROR: %s: %s\n", e.ExceptionType, e.ExceptionValue)
			return err
		}

		return c.dot("E")
	}

	return nil
}

func (c *Console) dot(char string) error {
	_, err := fmt.Fprint(c.w, char)
	c.count++

	if c.count%lineWidth == 0 {
		_, _ = fmt.Fprintln(c.w)
	}

	return err
}

// WriteResult prints failures followed by the status line.
func (c *Console) WriteResult(_ context.Context, result *model.SessionResult) error {
	if c.count > 0 && c.count%lineWidth != 0 {
		_, _ = fmt.Fprintln(c.w)
	}

	_, _ = fmt.Fprintln(c.w)

	var elapsed float64

	for _, tr := range result.TestReports {
		elapsed += tr.Duration

		if tr.Outcome != model.OutcomeFailed {
			continue
		}

		_, _ = fmt.Fprintf(c.w, "FAIL %s\n", tr.NodeID)

		for _, step := range tr.Steps() {
			if step.Error != nil {
				_, _ = fmt.Fprintf(c.w, "  %s: %s\n", step.Kind, step.Error.Message)
			}
		}
	}

	for _, e := range result.Errors {
		_, _ = fmt.Fprintf(c.w, "ERROR %s: %s\n", e.ExceptionType, e.ExceptionValue)
	}

	status := "PASS"
	if !result.Ok() {
		status = "FAIL"
	}

	counts := result.Counts()

	_, err := fmt.Fprintf(c.w, "%s %d tests, %d passed, %d failed, %d skipped, %d xfailed, %d errors in %s\n",
		status,
		len(result.TestReports),
		counts[model.OutcomePassed],
		counts[model.OutcomeFailed],
		counts[model.OutcomeSkipped],
		counts[model.OutcomeXFailed],
		len(result.Errors),
		seconds(elapsed),
	)

	return err
}

func mark(o model.Outcome) string {
	switch o {
	case model.OutcomeFailed:
		return "F"
	case model.OutcomeSkipped:
		return "s"
	case model.OutcomeXFailed:
		return "x"
	}

	return "."
}

func label(o model.Outcome) string {
	switch o {
	case model.OutcomePassed:
		return "PASS"
	case model.OutcomeFailed:
		return "FAIL"
	case model.OutcomeSkipped:
		return "SKIP"
	case model.OutcomeXFailed:
		return "XFAIL"
	}

	return string(o)
}

func seconds(d float64) time.Duration {
	return time.Duration(d * float64(time.Second)).Round(time.Millisecond)
}

package destination

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/rlch/broadcaster/model"
)

// Filter forwards only the events matching a boolean expression to the
// wrapped destination. The expression sees the event's JSON fields, for
// example:
//
//	event_type == "case_finished" && outcome in ["failed", "xfailed"]
//
// Fields absent from an event evaluate to nil. The session result is always
// forwarded.
type Filter struct {
	next    Destination
	source  string
	program *vm.Program
}

var (
	_ Destination = (*Filter)(nil)
	_ Opener      = (*Filter)(nil)
	_ Summarizer  = (*Filter)(nil)
	_ io.Closer   = (*Filter)(nil)
)

// NewFilter compiles source and wraps next.
func NewFilter(next Destination, source string) (*Filter, error) {
	program, err := expr.Compile(source,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: filter %q: %w", ErrInvalidConfig, source, err)
	}

	return &Filter{next: next, source: source, program: program}, nil
}

// Match reports whether the event passes the filter.
func (f *Filter) Match(event model.Event) (bool, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return false, fmt.Errorf("encoding %s: %w", event.EventName(), err)
	}

	env := map[string]any{}
	if err := json.Unmarshal(data, &env); err != nil {
		return false, fmt.Errorf("decoding %s: %w", event.EventName(), err)
	}

	out, err := expr.Run(f.program, env)
	if err != nil {
		return false, fmt.Errorf("filter %q: %w", f.source, err)
	}

	ok, _ := out.(bool)

	return ok, nil
}

// WriteEvent forwards the event when it matches.
func (f *Filter) WriteEvent(ctx context.Context, event model.Event) error {
	ok, err := f.Match(event)
	if err != nil || !ok {
		return err
	}

	return f.next.WriteEvent(ctx, event)
}

// WriteResult forwards the result unconditionally.
func (f *Filter) WriteResult(ctx context.Context, result *model.SessionResult) error {
	return f.next.WriteResult(ctx, result)
}

// Open opens the wrapped destination if it needs opening.
func (f *Filter) Open(ctx context.Context) error {
	if o, ok := f.next.(Opener); ok {
		return o.Open(ctx)
	}

	return nil
}

// Close closes the wrapped destination if it needs closing.
func (f *Filter) Close() error {
	if c, ok := f.next.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

// Summary returns the wrapped destination's summary, if any.
func (f *Filter) Summary() string {
	if s, ok := f.next.(Summarizer); ok {
		return s.Summary()
	}

	return ""
}

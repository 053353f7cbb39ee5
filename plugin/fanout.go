package plugin

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/rlch/broadcaster/destination"
	"github.com/rlch/broadcaster/model"
)

// sink is a destination together with the name used in logs.
type sink struct {
	name string
	dest destination.Destination
}

func newSink(d destination.Destination) sink {
	name := fmt.Sprintf("%T", d)
	if s, ok := d.(destination.Summarizer); ok && s.Summary() != "" {
		name = s.Summary()
	}

	return sink{name: name, dest: d}
}

// fanout delivers to every sink. A failing sink is logged and skipped; it
// never stops delivery to the others.
type fanout struct {
	sinks  []sink
	logger *zap.Logger
}

func (f *fanout) event(ctx context.Context, e model.Event) {
	f.logger.Debug("event", zap.String("event", e.EventName()))

	for _, s := range f.sinks {
		if err := s.dest.WriteEvent(ctx, e); err != nil {
			f.logger.Warn("destination write failed",
				zap.String("destination", s.name),
				zap.String("event", e.EventName()),
				zap.Error(err),
			)
		}
	}
}

func (f *fanout) result(ctx context.Context, r *model.SessionResult) {
	for _, s := range f.sinks {
		if err := s.dest.WriteResult(ctx, r); err != nil {
			f.logger.Warn("destination result write failed",
				zap.String("destination", s.name),
				zap.Error(err),
			)
		}
	}
}

// open opens the sinks in order. When one fails, the sinks already opened
// are closed again and the error is returned.
func (f *fanout) open(ctx context.Context) error {
	for i, s := range f.sinks {
		o, ok := s.dest.(destination.Opener)
		if !ok {
			continue
		}

		f.logger.Debug("opening destination", zap.String("destination", s.name))

		if err := o.Open(ctx); err != nil {
			(&fanout{sinks: f.sinks[:i], logger: f.logger}).close()

			return fmt.Errorf("opening %s: %w", s.name, err)
		}
	}

	return nil
}

// close closes every sink in reverse order.
func (f *fanout) close() {
	for i := len(f.sinks) - 1; i >= 0; i-- {
		s := f.sinks[i]

		c, ok := s.dest.(io.Closer)
		if !ok {
			continue
		}

		f.logger.Debug("closing destination", zap.String("destination", s.name))

		if err := c.Close(); err != nil {
			f.logger.Warn("destination close failed",
				zap.String("destination", s.name),
				zap.Error(err),
			)
		}
	}
}

func (f *fanout) summaries() []string {
	var lines []string

	for _, s := range f.sinks {
		if sum, ok := s.dest.(destination.Summarizer); ok {
			if line := sum.Summary(); line != "" {
				lines = append(lines, line)
			}
		}
	}

	return lines
}

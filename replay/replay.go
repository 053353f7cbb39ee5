// Package replay feeds a recorded hook log through a plugin.
//
// A hook log holds one JSON object per line, one per runner callback, with
// a "hook" field naming the callback:
//
//	{"hook":"sessionstart","runner_version":"8.3.1"}
//	{"hook":"collectreport","node_id":"","result":[{"kind":"directory","node_id":"tests","path":"/src/tests"}]}
//	{"hook":"logreport","node_id":"tests/test_a.py::test_ok","when":"setup","outcome":"passed",...}
//	{"hook":"logfinish","node_id":"tests/test_a.py::test_ok"}
//	{"hook":"sessionfinish","exit_status":0}
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rlch/broadcaster/model"
	"github.com/rlch/broadcaster/plugin"
	"github.com/rlch/broadcaster/reporter"
)

// Sentinel errors for the replay package.
var (
	// ErrMalformed is returned for lines that cannot be decoded.
	ErrMalformed = errors.New("replay: malformed hook log")

	// ErrIncomplete is returned for logs without a session start or finish.
	ErrIncomplete = errors.New("replay: incomplete hook log")
)

const maxLine = 1024 * 1024

// Log is a decoded hook log.
type Log struct {
	RunnerVersion string
	Distribution  *model.Distribution
	Project       *model.Project
	ExitStatus    int

	records []record
}

// Decode reads a whole hook log. Blank lines are skipped; any other line that
// cannot be decoded fails with its line number.
func Decode(r io.Reader) (*Log, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	var (
		log             Log
		lineno          int
		started, closed bool
	)

	for scanner.Scan() {
		lineno++

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		rec, err := decodeLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformed, lineno, err)
		}

		switch rec := rec.(type) {
		case sessionStart:
			if started {
				return nil, fmt.Errorf("%w: line %d: second %s", ErrMalformed, lineno, HookSessionStart)
			}

			started = true
			log.RunnerVersion = rec.RunnerVersion
			log.Distribution = rec.Distribution
			log.Project = rec.Project
		case sessionFinish:
			closed = true
			log.ExitStatus = rec.ExitStatus
		}

		log.records = append(log.records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning hook log: %w", err)
	}

	if !started || !closed {
		return nil, fmt.Errorf("%w: needs %s and %s", ErrIncomplete, HookSessionStart, HookSessionFinish)
	}

	return &log, nil
}

// IsHookLog reports whether the first non-blank line of r carries a "hook"
// field. Event streams written by the jsonl destination have none.
func IsHookLog(r io.Reader) bool {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var head struct {
			Hook string `json:"hook"`
		}

		return json.Unmarshal(line, &head) == nil && head.Hook != ""
	}

	return false
}

func decodeLine(line []byte) (record, error) {
	var head struct {
		Hook string `json:"hook"`
	}

	if err := json.Unmarshal(line, &head); err != nil {
		return nil, err
	}

	switch head.Hook {
	case HookSessionStart:
		return decodeAs[sessionStart](line)
	case HookWarning:
		return decodeAs[warning](line)
	case HookException:
		return decodeAs[exception](line)
	case HookCollectReport:
		return decodeAs[collectReport](line)
	case HookLogReport:
		return decodeAs[logReport](line)
	case HookLogFinish:
		return decodeAs[logFinish](line)
	case HookSessionFinish:
		return decodeAs[sessionFinish](line)
	default:
		return nil, fmt.Errorf("unknown hook %q", head.Hook)
	}
}

func decodeAs[T record](line []byte) (record, error) {
	var v T
	if err := json.Unmarshal(line, &v); err != nil {
		return nil, err
	}

	return v, nil
}

// ReporterOptions returns the reporter options carrying the session metadata
// recorded in the log.
func (l *Log) ReporterOptions() []reporter.Option {
	return []reporter.Option{
		reporter.WithRunnerVersion(l.RunnerVersion),
		reporter.WithDistribution(l.Distribution),
		reporter.WithProject(l.Project),
	}
}

// Len returns the number of recorded callbacks.
func (l *Log) Len() int {
	return len(l.records)
}

// Replay opens p, feeds it every recorded callback and closes it. The first
// callback the plugin rejects stops the replay.
func (l *Log) Replay(ctx context.Context, p *plugin.Plugin) error {
	return p.Run(ctx, func(ctx context.Context) error {
		for i, rec := range l.records {
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := rec.apply(ctx, p); err != nil {
				return fmt.Errorf("callback %d: %w", i+1, err)
			}
		}

		return nil
	})
}

// Package reporter turns runner callbacks into events and folds them into a
// session result.
package reporter

import (
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rlch/broadcaster/model"
	"github.com/rlch/broadcaster/nodeid"
	"github.com/rlch/broadcaster/paths"
)

// Reporter builds events from runner callbacks. The host calls its methods
// sequentially, never concurrently.
type Reporter interface {
	// SessionStart is called once, before any other session callback.
	SessionStart() (model.SessionStart, error)

	// SessionFinish is called once, last, with the process exit status.
	SessionFinish(exitStatus int) (model.SessionFinish, error)

	// Warning records a warning captured by the runner.
	Warning(w Warning) model.WarningMessage

	// CollectError records an exception raised during collection. It returns
	// nil when the exception belongs to a test execution.
	CollectError(e Exception) (*model.ErrorMessage, error)

	// CollectReport classifies collected children. It returns nil when the
	// collection failed.
	CollectReport(c Collection) (*model.CollectReport, error)

	// TestStep records a setup, call or teardown step.
	TestStep(s StepReport) (model.TestCaseStep, error)

	// TestFinished completes the pending test case.
	TestFinished(nodeID string) (model.TestCaseFinished, error)

	// SessionResult hands over the accumulated result. It may be called once.
	SessionResult() (*model.SessionResult, error)
}

// SessionReporter is the default Reporter.
type SessionReporter struct {
	sessionID     string
	runnerVersion string
	pluginVersion string
	distribution  *model.Distribution
	project       *model.Project
	now           func() time.Time

	paths  *paths.Normalizer
	steps  aggregator
	result *model.SessionResult

	started  bool
	finished bool
	taken    bool
}

var _ Reporter = (*SessionReporter)(nil)

// Option configures a SessionReporter.
type Option func(*SessionReporter)

// WithSessionID fixes the session id instead of generating one.
func WithSessionID(id string) Option {
	return func(r *SessionReporter) {
		r.sessionID = id
	}
}

// WithRunnerVersion sets the version of the host test runner.
func WithRunnerVersion(v string) Option {
	return func(r *SessionReporter) {
		r.runnerVersion = v
	}
}

// WithPluginVersion sets the plugin version reported in the session.
func WithPluginVersion(v string) Option {
	return func(r *SessionReporter) {
		r.pluginVersion = v
	}
}

// WithDistribution attaches runtime metadata to the session start event.
func WithDistribution(d *model.Distribution) Option {
	return func(r *SessionReporter) {
		r.distribution = d
	}
}

// WithProject attaches project metadata to the session start event.
func WithProject(p *model.Project) Option {
	return func(r *SessionReporter) {
		r.project = p
	}
}

// WithClock overrides the clock used for collect report timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *SessionReporter) {
		r.now = now
	}
}

// WithNormalizer overrides the path normalizer.
func WithNormalizer(n *paths.Normalizer) Option {
	return func(r *SessionReporter) {
		r.paths = n
	}
}

// New creates a SessionReporter with an empty result.
func New(opts ...Option) *SessionReporter {
	r := &SessionReporter{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}

	if r.sessionID == "" {
		r.sessionID = uuid.NewString()
	}

	if r.paths == nil {
		r.paths = paths.New()
	}

	r.result = model.NewSessionResult(r.sessionID, r.runnerVersion, r.pluginVersion)

	return r
}

// SessionID returns the id shared by all events of the session.
func (r *SessionReporter) SessionID() string {
	return r.sessionID
}

// SessionStart implements Reporter.
func (r *SessionReporter) SessionStart() (model.SessionStart, error) {
	if r.started {
		return model.SessionStart{}, fmt.Errorf("%w: session already started", ErrProtocolViolation)
	}

	r.started = true

	return model.SessionStart{
		SessionID:     r.sessionID,
		RunnerVersion: r.runnerVersion,
		PluginVersion: r.pluginVersion,
		Distribution:  r.distribution,
		Project:       r.project,
	}, nil
}

// SessionFinish implements Reporter.
func (r *SessionReporter) SessionFinish(exitStatus int) (model.SessionFinish, error) {
	if r.finished {
		return model.SessionFinish{}, fmt.Errorf("%w: session already finished", ErrProtocolViolation)
	}

	r.finished = true
	r.result.ExitStatus = exitStatus

	return model.SessionFinish{SessionID: r.sessionID, ExitStatus: exitStatus}, nil
}

// Warning implements Reporter.
func (r *SessionReporter) Warning(w Warning) model.WarningMessage {
	msg := model.WarningMessage{
		When:   w.When,
		NodeID: w.NodeID,
		Location: model.Location{
			Filename: r.paths.Normalize(w.Filename, true),
			Lineno:   w.Lineno,
		},
		Message:  w.Message,
		Category: w.Category,
	}

	r.result.Warnings = append(r.result.Warnings, msg)

	return msg
}

// CollectError implements Reporter.
func (r *SessionReporter) CollectError(e Exception) (*model.ErrorMessage, error) {
	if e.TestReport {
		return nil, nil
	}

	if e.TypeName == "" {
		return nil, fmt.Errorf("%w: collection error without exception info", ErrProtocolViolation)
	}

	entries := make([]model.TracebackEntry, len(e.Traceback))
	copy(entries, e.Traceback)

	msg := model.ErrorMessage{
		When: e.When,
		Location: model.Location{
			Filename: r.paths.Normalize(e.CrashPath, true),
			Lineno:   e.CrashLineno,
		},
		ExceptionType:  e.TypeName,
		ExceptionValue: e.Value,
		Traceback:      model.Traceback{Entries: entries},
	}

	r.result.Errors = append(r.result.Errors, msg)

	return &msg, nil
}

// CollectReport implements Reporter.
//
// Children are classified in runner order, which registers path roots
// top-down, and then ordered by kind: the session root directory first,
// then cases, suites, modules and nested directories.
func (r *SessionReporter) CollectReport(c Collection) (*model.CollectReport, error) {
	if c.Failed {
		return nil, nil
	}

	items := make([]model.DiscoveryItem, 0, len(c.Children))

	for _, child := range c.Children {
		item, err := r.classify(child)
		if err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	root := c.NodeID == ""
	slices.SortStableFunc(items, func(a, b model.DiscoveryItem) int {
		return itemRank(a, root) - itemRank(b, root)
	})

	report := model.CollectReport{
		SessionID: r.sessionID,
		NodeID:    c.NodeID,
		Timestamp: r.now().UTC(),
		Items:     items,
	}

	r.result.CollectReports = append(r.result.CollectReports, report)

	return &report, nil
}

func itemRank(item model.DiscoveryItem, root bool) int {
	switch item.NodeType() {
	case model.NodeDirectory:
		if root {
			return 0
		}

		return 4
	case model.NodeCase:
		return 1
	case model.NodeSuite:
		return 2
	case model.NodeModule:
		return 3
	default:
		return 5
	}
}

func (r *SessionReporter) classify(n Node) (model.DiscoveryItem, error) {
	switch n.Kind {
	case KindDirectory:
		return model.TestDirectory{
			NodeID: n.NodeID,
			Name:   path.Base(strings.ReplaceAll(n.Path, `\`, "/")),
			Path:   r.paths.Normalize(n.Path, false),
		}, nil
	case KindModule:
		name := n.Name
		if name == "" {
			name = path.Base(strings.ReplaceAll(n.Path, `\`, "/"))
		}

		return model.TestModule{
			NodeID:  n.NodeID,
			Name:    name,
			Path:    r.paths.Normalize(n.Path, false),
			Doc:     strings.TrimSpace(n.Doc),
			Markers: markerNames(n.Markers),
		}, nil
	case KindSuite:
		id, err := nodeid.Parse(n.NodeID)
		if err != nil {
			return nil, err
		}

		if id.Module() == "" {
			return nil, fmt.Errorf("%w: suite %q has no module", nodeid.ErrMalformed, n.NodeID)
		}

		name := n.Name
		if name == "" {
			name = id.Function
		}

		return model.TestSuite{
			NodeID:  n.NodeID,
			Name:    name,
			Module:  id.Module(),
			Path:    r.paths.Normalize(n.Path, false),
			Doc:     strings.TrimSpace(n.Doc),
			Markers: markerNames(n.Markers),
		}, nil
	case KindCase:
		id, err := nodeid.Parse(n.NodeID)
		if err != nil {
			return nil, err
		}

		if id.IsFile() {
			return nil, fmt.Errorf("%w: case %q has no function", nodeid.ErrMalformed, n.NodeID)
		}

		item := model.TestCase{
			NodeID:     id.Raw,
			Name:       id.Name(),
			Module:     id.Module(),
			Suite:      id.Suite(),
			Function:   id.Function,
			Doc:        strings.TrimSpace(n.Doc),
			Markers:    markerNames(n.Markers),
			Parameters: make(map[string]string, len(n.Parameters)),
		}

		if n.Path != "" {
			item.Path = r.paths.Normalize(n.Path, false)
		}

		for name, typ := range n.Parameters {
			item.Parameters[name] = typ
		}

		return item, nil
	default:
		return nil, fmt.Errorf("%w: %q (node %q)", ErrUnknownKind, n.Kind, n.NodeID)
	}
}

// markerNames sorts and de-duplicates marker names.
func markerNames(markers []string) []string {
	names := slices.Clone(markers)
	if names == nil {
		return []string{}
	}

	slices.Sort(names)

	return slices.Compact(names)
}

// TestStep implements Reporter.
func (r *SessionReporter) TestStep(s StepReport) (model.TestCaseStep, error) {
	kind, err := model.ParseStep(s.When)
	if err != nil {
		return model.TestCaseStep{}, err
	}

	outcome, err := model.ParseOutcome(s.Outcome)
	if err != nil {
		return model.TestCaseStep{}, err
	}

	// Later steps and the finish are matched against the pending id, so
	// checking it once at setup covers the whole case.
	if kind == model.StepSetup {
		if _, err := nodeid.Parse(s.NodeID); err != nil {
			return model.TestCaseStep{}, err
		}
	}

	if kind == model.StepCall {
		outcome = callOutcome(outcome, s.WasXFail)
	}

	step := model.TestCaseStep{
		Kind:     kind,
		NodeID:   s.NodeID,
		Outcome:  outcome,
		Duration: s.Duration,
		Start:    s.Start.UTC(),
		Stop:     s.Stop.UTC(),
	}

	if outcome == model.OutcomeFailed {
		entries := make([]model.TracebackEntry, len(s.Traceback))
		copy(entries, s.Traceback)

		step.Error = &model.TestCaseError{
			Message:   s.LongRepr,
			Traceback: model.Traceback{Entries: entries},
		}
	}

	if err := r.steps.add(step); err != nil {
		return model.TestCaseStep{}, err
	}

	return step, nil
}

// TestFinished implements Reporter.
func (r *SessionReporter) TestFinished(nodeID string) (model.TestCaseFinished, error) {
	report, err := r.steps.finish(nodeID)
	if err != nil {
		return model.TestCaseFinished{}, err
	}

	r.result.TestReports = append(r.result.TestReports, report)

	return *report.Finished, nil
}

// SessionResult implements Reporter.
func (r *SessionReporter) SessionResult() (*model.SessionResult, error) {
	if r.taken {
		return nil, fmt.Errorf("%w: session result already taken", ErrProtocolViolation)
	}

	r.taken = true

	return r.result, nil
}

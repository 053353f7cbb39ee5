package reporter_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/broadcaster/model"
	"github.com/rlch/broadcaster/nodeid"
	"github.com/rlch/broadcaster/reporter"
)

var t0 = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// project lays out <tmp>/tests/test_basic.py and returns the tests directory.
func project(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "tests")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test_basic.py"), nil, 0o644))

	return filepath.ToSlash(dir)
}

func newReporter(opts ...reporter.Option) *reporter.SessionReporter {
	opts = append([]reporter.Option{
		reporter.WithSessionID("session-1"),
		reporter.WithRunnerVersion("8.3.1"),
		reporter.WithPluginVersion("1.0.0"),
		reporter.WithClock(func() time.Time { return t0 }),
	}, opts...)

	return reporter.New(opts...)
}

func stepReport(id, when, outcome string, start time.Time, d float64) reporter.StepReport {
	return reporter.StepReport{
		NodeID:   id,
		When:     when,
		Outcome:  outcome,
		Duration: d,
		Start:    start,
		Stop:     start.Add(time.Duration(d * float64(time.Second))),
	}
}

// runCase drives the three steps of one test case and finishes it.
func runCase(t *testing.T, r reporter.Reporter, id string, outcomes [3]string, xfail bool) model.TestCaseFinished {
	t.Helper()

	start := t0
	for i, when := range []string{"setup", "call", "teardown"} {
		s := stepReport(id, when, outcomes[i], start, 0.1)
		s.WasXFail = xfail && when == "call"

		if outcomes[i] == "failed" {
			s.LongRepr = "assert 1 == 2"
			s.Traceback = []model.TracebackEntry{{Path: "tests/test_basic.py", Lineno: 4, Message: "AssertionError"}}
		}

		_, err := r.TestStep(s)
		require.NoError(t, err)

		start = s.Stop
	}

	finished, err := r.TestFinished(id)
	require.NoError(t, err)

	return finished
}

func TestSessionReporter_SinglePassingTest(t *testing.T) {
	t.Parallel()

	dir := project(t)
	r := newReporter()

	start, err := r.SessionStart()
	require.NoError(t, err)
	assert.Equal(t, "session-1", start.SessionID)
	assert.Equal(t, "8.3.1", start.RunnerVersion)
	assert.Equal(t, "1.0.0", start.PluginVersion)

	rootReport, err := r.CollectReport(reporter.Collection{Children: []reporter.Node{
		{Kind: reporter.KindDirectory, NodeID: "tests", Path: dir},
	}})
	require.NoError(t, err)
	require.NotNil(t, rootReport)
	assert.Equal(t, []model.DiscoveryItem{model.TestDirectory{NodeID: "tests", Name: "tests", Path: "tests"}}, rootReport.Items)

	report, err := r.CollectReport(reporter.Collection{NodeID: "tests/test_basic.py", Children: []reporter.Node{
		{Kind: reporter.KindCase, NodeID: "tests/test_basic.py::test_ok", Path: dir + "/test_basic.py"},
	}})
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, "session-1", report.SessionID)
	assert.Equal(t, t0, report.Timestamp)

	want := []model.DiscoveryItem{model.TestCase{
		NodeID:     "tests/test_basic.py::test_ok",
		Name:       "test_ok",
		Module:     "test_basic",
		Function:   "test_ok",
		Path:       "tests/test_basic.py",
		Doc:        "",
		Markers:    []string{},
		Parameters: map[string]string{},
	}}
	if diff := cmp.Diff(want, report.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}

	finished := runCase(t, r, "tests/test_basic.py::test_ok", [3]string{"passed", "passed", "passed"}, false)
	assert.Equal(t, model.OutcomePassed, finished.Outcome)

	_, err = r.SessionFinish(0)
	require.NoError(t, err)

	result, err := r.SessionResult()
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitStatus)
	assert.Len(t, result.CollectReports, 2)
	require.Len(t, result.TestReports, 1)
	assert.Equal(t, model.OutcomePassed, result.TestReports[0].Outcome)
}

func TestSessionReporter_FailingBody(t *testing.T) {
	t.Parallel()

	r := newReporter()

	_, err := r.SessionStart()
	require.NoError(t, err)

	id := "test_basic.py::test_fail"
	setup, err := r.TestStep(stepReport(id, "setup", "passed", t0, 0.01))
	require.NoError(t, err)
	assert.Equal(t, model.StepSetup, setup.Kind)
	assert.Nil(t, setup.Error)

	call := stepReport(id, "call", "failed", setup.Stop, 0.2)
	call.LongRepr = "assert 1 == 2"
	call.Traceback = []model.TracebackEntry{{Path: "test_basic.py", Lineno: 2, Message: "AssertionError"}}

	callStep, err := r.TestStep(call)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeFailed, callStep.Outcome)
	require.NotNil(t, callStep.Error)
	assert.Equal(t, "assert 1 == 2", callStep.Error.Message)
	assert.Equal(t, call.Traceback, callStep.Error.Traceback.Entries)

	teardown, err := r.TestStep(stepReport(id, "teardown", "passed", callStep.Stop, 0.03))
	require.NoError(t, err)

	finished, err := r.TestFinished(id)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeFailed, finished.Outcome)
	assert.InDelta(t, 0.24, finished.Duration, 1e-9)
	assert.Equal(t, setup.Start, finished.Start)
	assert.Equal(t, teardown.Stop, finished.Stop)

	end, err := r.SessionFinish(1)
	require.NoError(t, err)
	assert.Equal(t, 1, end.ExitStatus)

	result, err := r.SessionResult()
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExitStatus)
	assert.False(t, result.Ok())

	tr := result.TestReports[0]
	assert.Equal(t, model.OutcomePassed, tr.Setup.Outcome)
	assert.Equal(t, model.OutcomeFailed, tr.Call.Outcome)
	assert.Equal(t, model.OutcomePassed, tr.Teardown.Outcome)
}

func TestSessionReporter_Parametrized(t *testing.T) {
	t.Parallel()

	dir := project(t)
	r := newReporter()

	children := make([]reporter.Node, 0, 3)
	for _, p := range []string{"1", "2", "3"} {
		children = append(children, reporter.Node{
			Kind:       reporter.KindCase,
			NodeID:     "test_basic.py::test_ok[" + p + "]",
			Path:       dir + "/test_basic.py",
			Parameters: map[string]string{"arg": "int"},
		})
	}

	report, err := r.CollectReport(reporter.Collection{NodeID: "test_basic.py", Children: children})
	require.NoError(t, err)
	require.Len(t, report.Items, 3)

	for i, item := range report.Items {
		c, ok := item.(model.TestCase)
		require.True(t, ok)

		p := []string{"1", "2", "3"}[i]
		assert.Equal(t, "test_basic.py::test_ok["+p+"]", c.NodeID)
		assert.Equal(t, "test_ok["+p+"]", c.Name)
		assert.Equal(t, "test_ok", c.Function)
		assert.Equal(t, map[string]string{"arg": "int"}, c.Parameters)
	}

	// The reporter keeps its own copy of the parameters.
	children[0].Parameters["arg"] = "str"
	assert.Equal(t, "int", report.Items[0].(model.TestCase).Parameters["arg"])
}

func TestSessionReporter_ExpectedFailure(t *testing.T) {
	t.Parallel()

	r := newReporter()

	finished := runCase(t, r, "test_basic.py::test_xfail", [3]string{"passed", "skipped", "passed"}, true)
	assert.Equal(t, model.OutcomeXFailed, finished.Outcome)

	_, err := r.SessionFinish(0)
	require.NoError(t, err)

	result, err := r.SessionResult()
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeXFailed, result.TestReports[0].Call.Outcome)
	assert.True(t, result.Ok())
	assert.Equal(t, 0, result.ExitStatus)
}

func TestSessionReporter_SkipWithoutXFail(t *testing.T) {
	t.Parallel()

	r := newReporter()

	finished := runCase(t, r, "test_basic.py::test_skip", [3]string{"passed", "skipped", "passed"}, false)
	assert.Equal(t, model.OutcomeSkipped, finished.Outcome)
}

func TestSessionReporter_CollectWarnings(t *testing.T) {
	t.Parallel()

	dir := project(t)
	r := newReporter()

	_, err := r.CollectReport(reporter.Collection{Children: []reporter.Node{
		{Kind: reporter.KindDirectory, NodeID: "tests", Path: dir},
	}})
	require.NoError(t, err)

	for _, line := range []int{3, 7} {
		msg := r.Warning(reporter.Warning{
			When:     model.WhenCollect,
			Message:  "deprecated call",
			Category: "DeprecationWarning",
			Filename: dir + "/test_basic.py",
			Lineno:   line,
		})
		assert.Equal(t, "tests/test_basic.py", msg.Location.Filename)
	}

	outside := r.Warning(reporter.Warning{When: model.WhenConfig, Filename: "/usr/lib/site.py", Lineno: 1})
	assert.Equal(t, "/usr/lib/site.py", outside.Location.Filename)

	result, err := r.SessionResult()
	require.NoError(t, err)
	require.Len(t, result.Warnings, 3)

	for i, w := range result.Warnings[:2] {
		assert.Equal(t, model.WhenCollect, w.When)
		assert.Empty(t, w.NodeID)
		assert.Equal(t, []int{3, 7}[i], w.Location.Lineno)
	}
}

func TestSessionReporter_CollectOrdering(t *testing.T) {
	t.Parallel()

	dir := project(t)
	r := newReporter()

	root, err := r.CollectReport(reporter.Collection{Children: []reporter.Node{
		{Kind: reporter.KindModule, NodeID: "tests/test_basic.py", Path: dir + "/test_basic.py"},
		{Kind: reporter.KindCase, NodeID: "tests/test_basic.py::test_a", Path: dir + "/test_basic.py"},
		{Kind: reporter.KindDirectory, NodeID: "tests", Path: dir},
		{Kind: reporter.KindSuite, NodeID: "tests/test_basic.py::TestA", Path: dir + "/test_basic.py"},
		{Kind: reporter.KindCase, NodeID: "tests/test_basic.py::test_b", Path: dir + "/test_basic.py"},
	}})
	require.NoError(t, err)

	var got []string
	for _, item := range root.Items {
		got = append(got, string(item.NodeType())+" "+item.ID())
	}

	assert.Equal(t, []string{
		"directory tests",
		"case tests/test_basic.py::test_a",
		"case tests/test_basic.py::test_b",
		"suite tests/test_basic.py::TestA",
		"module tests/test_basic.py",
	}, got)

	nested, err := r.CollectReport(reporter.Collection{NodeID: "tests", Children: []reporter.Node{
		{Kind: reporter.KindDirectory, NodeID: "tests/sub", Path: dir + "/sub"},
		{Kind: reporter.KindModule, NodeID: "tests/test_basic.py", Path: dir + "/test_basic.py"},
	}})
	require.NoError(t, err)
	require.Len(t, nested.Items, 2)
	assert.Equal(t, model.NodeModule, nested.Items[0].NodeType())
	assert.Equal(t, model.TestDirectory{NodeID: "tests/sub", Name: "sub", Path: "tests/sub"}, nested.Items[1])
}

func TestSessionReporter_SuiteAndModule(t *testing.T) {
	t.Parallel()

	dir := project(t)
	r := newReporter()

	report, err := r.CollectReport(reporter.Collection{NodeID: "tests/test_basic.py", Children: []reporter.Node{
		{
			Kind:    reporter.KindSuite,
			NodeID:  "tests/test_basic.py::TestUser",
			Path:    dir + "/test_basic.py",
			Doc:     "\n    User tests.\n    ",
			Markers: []string{"slow", "db", "slow"},
		},
		{
			Kind:    reporter.KindCase,
			NodeID:  "tests/test_basic.py::TestUser::test_create",
			Doc:     "Creates a user.",
			Markers: []string{"db"},
		},
	}})
	require.NoError(t, err)
	require.Len(t, report.Items, 2)

	c := report.Items[0].(model.TestCase)
	assert.Equal(t, "TestUser", c.Suite)
	assert.Equal(t, "test_basic", c.Module)
	assert.Empty(t, c.Path, "cases without a path carry none")

	s := report.Items[1].(model.TestSuite)
	assert.Equal(t, "TestUser", s.Name)
	assert.Equal(t, "test_basic", s.Module)
	assert.Equal(t, "User tests.", s.Doc)
	assert.Equal(t, []string{"db", "slow"}, s.Markers)
}

func TestSessionReporter_FailedCollection(t *testing.T) {
	t.Parallel()

	r := newReporter()

	msg, err := r.CollectError(reporter.Exception{
		When:        model.WhenCollect,
		CrashPath:   "/nonexistent/tests/test_broken.py",
		CrashLineno: 1,
		TypeName:    "ImportError",
		Value:       "No module named 'nope'",
		Traceback:   []model.TracebackEntry{{Path: "tests/test_broken.py", Lineno: 1, Message: "E ImportError"}},
	})
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "ImportError", msg.ExceptionType)
	assert.Equal(t, "/nonexistent/tests/test_broken.py", msg.Location.Filename)
	assert.Len(t, msg.Traceback.Entries, 1)

	report, err := r.CollectReport(reporter.Collection{NodeID: "tests/test_broken.py", Failed: true})
	require.NoError(t, err)
	assert.Nil(t, report)

	none, err := r.CollectError(reporter.Exception{TestReport: true, TypeName: "AssertionError"})
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = r.CollectError(reporter.Exception{When: model.WhenCollect})
	require.ErrorIs(t, err, reporter.ErrProtocolViolation)

	result, err := r.SessionResult()
	require.NoError(t, err)
	assert.Len(t, result.Errors, 1)
	assert.Empty(t, result.CollectReports)
}

func TestSessionReporter_MalformedInput(t *testing.T) {
	t.Parallel()

	r := newReporter()

	_, err := r.CollectReport(reporter.Collection{NodeID: "x", Children: []reporter.Node{
		{Kind: reporter.KindCase, NodeID: "not_a_file::test"},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not_a_file::test")

	_, err = r.CollectReport(reporter.Collection{NodeID: "x", Children: []reporter.Node{
		{Kind: "package", NodeID: "pkg"},
	}})
	require.ErrorIs(t, err, reporter.ErrUnknownKind)

	for _, id := range []string{"::[", "not_a_file::test"} {
		_, err = r.TestStep(stepReport(id, "setup", "passed", t0, 0))
		require.ErrorIs(t, err, nodeid.ErrMalformed)
		assert.Contains(t, err.Error(), id)
	}

	_, err = r.TestFinished("::[")
	require.ErrorIs(t, err, reporter.ErrProtocolViolation)

	_, err = r.TestStep(stepReport("t.py::a", "setup", "exploded", t0, 0))
	require.ErrorIs(t, err, model.ErrUnknownOutcome)

	_, err = r.TestStep(stepReport("t.py::a", "finish", "passed", t0, 0))
	require.ErrorIs(t, err, model.ErrUnknownStep)
}

func TestSessionReporter_ProtocolViolations(t *testing.T) {
	t.Parallel()

	r := newReporter()

	_, err := r.TestFinished("t.py::a")
	require.ErrorIs(t, err, reporter.ErrProtocolViolation)

	_, err = r.TestStep(stepReport("t.py::a", "setup", "passed", t0, 0))
	require.NoError(t, err)

	_, err = r.TestStep(stepReport("t.py::b", "setup", "passed", t0, 0))
	require.ErrorIs(t, err, reporter.ErrProtocolViolation)

	_, err = r.SessionStart()
	require.NoError(t, err)
	_, err = r.SessionStart()
	require.ErrorIs(t, err, reporter.ErrProtocolViolation)

	_, err = r.SessionFinish(0)
	require.NoError(t, err)
	_, err = r.SessionFinish(0)
	require.ErrorIs(t, err, reporter.ErrProtocolViolation)

	_, err = r.SessionResult()
	require.NoError(t, err)
	_, err = r.SessionResult()
	require.ErrorIs(t, err, reporter.ErrProtocolViolation)
}

func TestSessionReporter_GeneratesSessionID(t *testing.T) {
	t.Parallel()

	a, b := reporter.New(), reporter.New()

	assert.NotEmpty(t, a.SessionID())
	assert.NotEqual(t, a.SessionID(), b.SessionID())
}

func TestSessionReporter_TimesAreUTC(t *testing.T) {
	t.Parallel()

	r := newReporter()
	local := time.Date(2024, 1, 15, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	s, err := r.TestStep(stepReport("t.py::a", "setup", "passed", local, 1))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, s.Start.Location())
	assert.True(t, s.Start.Equal(local))
}

package replay

import (
	"context"
	"time"

	"github.com/rlch/broadcaster/model"
	"github.com/rlch/broadcaster/plugin"
	"github.com/rlch/broadcaster/reporter"
)

// Hook names, the "hook" field of every line.
const (
	HookSessionStart  = "sessionstart"
	HookWarning       = "warning"
	HookException     = "exception"
	HookCollectReport = "collectreport"
	HookLogReport     = "logreport"
	HookLogFinish     = "logfinish"
	HookSessionFinish = "sessionfinish"
)

// record is one recorded runner callback.
type record interface {
	apply(ctx context.Context, p *plugin.Plugin) error
}

type sessionStart struct {
	RunnerVersion string              `json:"runner_version"`
	Distribution  *model.Distribution `json:"distribution"`
	Project       *model.Project      `json:"project"`
}

func (sessionStart) apply(ctx context.Context, p *plugin.Plugin) error {
	return p.SessionStart(ctx)
}

type warning struct {
	When     model.When `json:"when"`
	NodeID   string     `json:"node_id"`
	Message  string     `json:"message"`
	Category string     `json:"category"`
	Filename string     `json:"filename"`
	Lineno   int        `json:"lineno"`
}

func (w warning) apply(ctx context.Context, p *plugin.Plugin) error {
	return p.Warning(ctx, reporter.Warning(w))
}

type exception struct {
	Report         string                 `json:"report"`
	When           model.When             `json:"when"`
	CrashPath      string                 `json:"crash_path"`
	CrashLineno    int                    `json:"crash_lineno"`
	ExceptionType  string                 `json:"exception_type"`
	ExceptionValue string                 `json:"exception_value"`
	Traceback      []model.TracebackEntry `json:"traceback"`
}

func (e exception) apply(ctx context.Context, p *plugin.Plugin) error {
	return p.CollectError(ctx, reporter.Exception{
		TestReport:  e.Report == "test",
		When:        e.When,
		CrashPath:   e.CrashPath,
		CrashLineno: e.CrashLineno,
		TypeName:    e.ExceptionType,
		Value:       e.ExceptionValue,
		Traceback:   e.Traceback,
	})
}

type node struct {
	Kind       reporter.NodeKind `json:"kind"`
	NodeID     string            `json:"node_id"`
	Name       string            `json:"name"`
	Path       string            `json:"path"`
	Doc        string            `json:"doc"`
	Markers    []string          `json:"markers"`
	Parameters map[string]string `json:"parameters"`
}

type collectReport struct {
	NodeID string `json:"node_id"`
	Failed bool   `json:"failed"`
	Result []node `json:"result"`
}

func (c collectReport) apply(ctx context.Context, p *plugin.Plugin) error {
	children := make([]reporter.Node, len(c.Result))
	for i, n := range c.Result {
		children[i] = reporter.Node(n)
	}

	return p.CollectReport(ctx, reporter.Collection{NodeID: c.NodeID, Failed: c.Failed, Children: children})
}

type logReport struct {
	NodeID    string                 `json:"node_id"`
	When      string                 `json:"when"`
	Outcome   string                 `json:"outcome"`
	Duration  float64                `json:"duration"`
	Start     time.Time              `json:"start"`
	Stop      time.Time              `json:"stop"`
	LongRepr  string                 `json:"longrepr"`
	Traceback []model.TracebackEntry `json:"traceback"`
	WasXFail  bool                   `json:"wasxfail"`
}

func (l logReport) apply(ctx context.Context, p *plugin.Plugin) error {
	return p.TestStep(ctx, reporter.StepReport(l))
}

type logFinish struct {
	NodeID string `json:"node_id"`
}

func (l logFinish) apply(ctx context.Context, p *plugin.Plugin) error {
	return p.TestFinished(ctx, l.NodeID)
}

type sessionFinish struct {
	ExitStatus int `json:"exit_status"`
}

func (s sessionFinish) apply(ctx context.Context, p *plugin.Plugin) error {
	return p.SessionFinish(ctx, s.ExitStatus)
}

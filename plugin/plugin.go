// Package plugin connects a Reporter to its destinations for one test
// session. A host integration creates a Plugin, opens it before the session
// starts, forwards every runner callback and closes it at the end.
package plugin

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rlch/broadcaster/destination"
	"github.com/rlch/broadcaster/reporter"
)

// Plugin fans the events of one session out to its destinations.
//
// A Plugin without destinations, or one running in a parallel worker
// process, is disabled: every method returns immediately.
// Methods must be called sequentially.
type Plugin struct {
	logger *zap.Logger

	reportPath string
	logPath    string
	worker     bool

	dests         []destination.Destination
	destHooks     []func(add func(destination.Destination))
	reporterHooks []func(set func(reporter.Reporter))
	reporterOpts  []reporter.Option

	reporter reporter.Reporter
	out      *fanout
	open     bool
	closed   bool
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Plugin) {
		p.logger = l
	}
}

// WithReportPath writes the whole-session JSON document to path.
func WithReportPath(path string) Option {
	return func(p *Plugin) {
		p.reportPath = path
	}
}

// WithLogPath streams events as JSON Lines to path.
func WithLogPath(path string) Option {
	return func(p *Plugin) {
		p.logPath = path
	}
}

// WithDestination adds destinations.
func WithDestination(ds ...destination.Destination) Option {
	return func(p *Plugin) {
		p.dests = append(p.dests, ds...)
	}
}

// WithDestinationHook registers a hook called once during New to supply
// additional destinations.
func WithDestinationHook(hook func(add func(destination.Destination))) Option {
	return func(p *Plugin) {
		p.destHooks = append(p.destHooks, hook)
	}
}

// WithReporter substitutes the default reporter.
func WithReporter(r reporter.Reporter) Option {
	return func(p *Plugin) {
		p.reporter = r
	}
}

// WithReporterHook registers a hook called once during New that may
// substitute the reporter. Hooks run in registration order; the last
// substitution wins.
func WithReporterHook(hook func(set func(reporter.Reporter))) Option {
	return func(p *Plugin) {
		p.reporterHooks = append(p.reporterHooks, hook)
	}
}

// WithReporterOptions configures the default reporter.
func WithReporterOptions(opts ...reporter.Option) Option {
	return func(p *Plugin) {
		p.reporterOpts = append(p.reporterOpts, opts...)
	}
}

// WithWorker marks the process as a parallel worker, which disables the plugin.
func WithWorker(worker bool) Option {
	return func(p *Plugin) {
		p.worker = worker
	}
}

// New creates a Plugin. Destination and reporter hooks run here, before any
// session callback.
func New(opts ...Option) *Plugin {
	p := &Plugin{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}

	if p.worker {
		p.logger.Debug("running in a worker process, reporting disabled")

		return p
	}

	var dests []destination.Destination

	if p.reportPath != "" {
		dests = append(dests, destination.NewJSONFile(p.reportPath))
	}

	if p.logPath != "" {
		dests = append(dests, destination.NewJSONLinesFile(p.logPath))
	}

	dests = append(dests, p.dests...)

	for _, hook := range p.destHooks {
		hook(func(d destination.Destination) {
			dests = append(dests, d)
		})
	}

	if len(dests) == 0 {
		return p
	}

	p.out = &fanout{logger: p.logger}
	for _, d := range dests {
		p.out.sinks = append(p.out.sinks, newSink(d))
	}

	if p.reporter == nil {
		p.reporter = reporter.New(p.reporterOpts...)
	}

	for _, hook := range p.reporterHooks {
		hook(func(r reporter.Reporter) {
			p.reporter = r
		})
	}

	return p
}

// Enabled reports whether the plugin does anything.
func (p *Plugin) Enabled() bool {
	return p.out != nil
}

// Open acquires every destination. When one fails, those already opened are
// released and the error is returned; the session should not start.
func (p *Plugin) Open(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}

	if p.open || p.closed {
		return ErrAlreadyOpen
	}

	if err := p.out.open(ctx); err != nil {
		return err
	}

	p.open = true

	return nil
}

// Close writes the session result to every destination and releases them.
// Destinations are released even when the result cannot be built.
func (p *Plugin) Close(ctx context.Context) error {
	if !p.open {
		return nil
	}

	p.open = false
	p.closed = true

	defer p.out.close()

	result, err := p.reporter.SessionResult()
	if err != nil {
		return err
	}

	if result != nil {
		p.out.result(ctx, result)
	}

	for _, line := range p.out.summaries() {
		p.logger.Info(line)
	}

	return nil
}

// Run opens the plugin, calls fn and closes the plugin on every exit path.
func (p *Plugin) Run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if err := p.Open(ctx); err != nil {
		return err
	}

	defer func() {
		if cerr := p.Close(ctx); err == nil {
			err = cerr
		}
	}()

	return fn(ctx)
}

// Summaries returns one line per destination describing where output went.
func (p *Plugin) Summaries() []string {
	if !p.Enabled() {
		return nil
	}

	return p.out.summaries()
}

func (p *Plugin) ready() (bool, error) {
	if !p.Enabled() {
		return false, nil
	}

	if !p.open {
		return false, ErrNotOpen
	}

	return true, nil
}

// SessionStart emits the session start event.
func (p *Plugin) SessionStart(ctx context.Context) error {
	if ok, err := p.ready(); !ok {
		return err
	}

	e, err := p.reporter.SessionStart()
	if err != nil {
		return err
	}

	p.out.event(ctx, e)

	return nil
}

// SessionFinish emits the session finish event.
func (p *Plugin) SessionFinish(ctx context.Context, exitStatus int) error {
	if ok, err := p.ready(); !ok {
		return err
	}

	e, err := p.reporter.SessionFinish(exitStatus)
	if err != nil {
		return err
	}

	p.out.event(ctx, e)

	return nil
}

// Warning emits a warning message.
func (p *Plugin) Warning(ctx context.Context, w reporter.Warning) error {
	if ok, err := p.ready(); !ok {
		return err
	}

	p.out.event(ctx, p.reporter.Warning(w))

	return nil
}

// CollectError emits an error message for an exception raised during
// collection. Exceptions from test execution are ignored.
func (p *Plugin) CollectError(ctx context.Context, e reporter.Exception) error {
	if ok, err := p.ready(); !ok {
		return err
	}

	msg, err := p.reporter.CollectError(e)
	if err != nil {
		return err
	}

	if msg != nil {
		p.out.event(ctx, *msg)
	}

	return nil
}

// CollectReport emits the collect report of a successful collection.
func (p *Plugin) CollectReport(ctx context.Context, c reporter.Collection) error {
	if ok, err := p.ready(); !ok {
		return err
	}

	report, err := p.reporter.CollectReport(c)
	if err != nil {
		return fmt.Errorf("collecting %q: %w", c.NodeID, err)
	}

	if report != nil {
		p.out.event(ctx, *report)
	}

	return nil
}

// TestStep emits a setup, call or teardown step.
func (p *Plugin) TestStep(ctx context.Context, s reporter.StepReport) error {
	if ok, err := p.ready(); !ok {
		return err
	}

	step, err := p.reporter.TestStep(s)
	if err != nil {
		return err
	}

	p.out.event(ctx, step)

	return nil
}

// TestFinished emits the finished record of a test case.
func (p *Plugin) TestFinished(ctx context.Context, nodeID string) error {
	if ok, err := p.ready(); !ok {
		return err
	}

	finished, err := p.reporter.TestFinished(nodeID)
	if err != nil {
		return err
	}

	p.out.event(ctx, finished)

	return nil
}

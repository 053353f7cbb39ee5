package reporter

import (
	"time"

	"github.com/rlch/broadcaster/model"
)

// The types in this file are the normalized view of runner callbacks. Host
// integrations build them from runner-native objects; the reporter never
// inspects anything else.

// NodeKind classifies a collected node.
type NodeKind string

// NodeKind values.
const (
	KindDirectory NodeKind = "directory"
	KindModule    NodeKind = "module"
	KindSuite     NodeKind = "suite"
	KindCase      NodeKind = "case"
)

// Node is one child produced by a collection callback.
type Node struct {
	Kind   NodeKind
	NodeID string
	// Name is the runner's name for modules and suites.
	Name string
	// Path is the absolute path of the directory or file holding the node.
	Path    string
	Doc     string
	Markers []string
	// Parameters maps argument names to type names (cases only).
	Parameters map[string]string
}

// Collection is the result of one collection callback.
type Collection struct {
	NodeID   string
	Failed   bool
	Children []Node
}

// Warning is a warning captured by the runner.
type Warning struct {
	When     model.When
	NodeID   string
	Message  string
	Category string
	Filename string
	Lineno   int
}

// Exception is an exception the runner let the plugin inspect.
type Exception struct {
	// TestReport is set when the exception comes from running a test rather
	// than from collection.
	TestReport  bool
	When        model.When
	CrashPath   string
	CrashLineno int
	TypeName    string
	Value       string
	Traceback   []model.TracebackEntry
}

// StepReport is the runner's report for one setup, call or teardown step.
type StepReport struct {
	NodeID   string
	When     string
	Outcome  string
	Duration float64
	Start    time.Time
	Stop     time.Time
	// LongRepr and Traceback describe the failure of a failed step.
	LongRepr  string
	Traceback []model.TracebackEntry
	// WasXFail is set when the test is marked as expected to fail.
	WasXFail bool
}

package model

import (
	"encoding/json"
	"fmt"
)

// SessionStart is the first event of every session.
type SessionStart struct {
	SessionID     string        `json:"session_id"`
	RunnerVersion string        `json:"runner_version"`
	PluginVersion string        `json:"plugin_version"`
	Distribution  *Distribution `json:"distribution,omitempty"`
	Project       *Project      `json:"project,omitempty"`
}

// EventName implements Event.
func (SessionStart) EventName() string { return EventSessionStart }

// MarshalJSON adds the event discriminator.
func (e SessionStart) MarshalJSON() ([]byte, error) {
	type alias SessionStart

	return json.Marshal(struct {
		Event string `json:"event"`
		alias
	}{EventSessionStart, alias(e)})
}

// SessionFinish is the last event of every session.
type SessionFinish struct {
	SessionID  string `json:"session_id"`
	ExitStatus int    `json:"exit_status"`
}

// EventName implements Event.
func (SessionFinish) EventName() string { return EventSessionFinish }

// MarshalJSON adds the event discriminator.
func (e SessionFinish) MarshalJSON() ([]byte, error) {
	type alias SessionFinish

	return json.Marshal(struct {
		Event string `json:"event"`
		alias
	}{EventSessionFinish, alias(e)})
}

// Distribution describes the runtime executing the tests.
type Distribution struct {
	Version   RuntimeVersion `json:"version"`
	Processor string         `json:"processor"`
	Platform  Platform       `json:"platform"`
	Packages  []Package      `json:"packages"`
}

// RuntimeVersion is the version of the runtime executing the tests.
type RuntimeVersion struct {
	Major        int          `json:"major"`
	Minor        int          `json:"minor"`
	Micro        int          `json:"micro"`
	ReleaseLevel ReleaseLevel `json:"releaselevel"`
}

// Package is an installed package reported by the runtime.
type Package struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// Project describes the project under test.
type Project struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	URL     string `json:"url,omitempty"`
}

// ReleaseLevel of the runtime version.
type ReleaseLevel string

// ReleaseLevel values.
const (
	ReleaseAlpha     ReleaseLevel = "alpha"
	ReleaseBeta      ReleaseLevel = "beta"
	ReleaseCandidate ReleaseLevel = "candidate"
	ReleaseFinal     ReleaseLevel = "final"
)

// ParseReleaseLevel validates a raw release level.
func ParseReleaseLevel(s string) (ReleaseLevel, error) {
	switch r := ReleaseLevel(s); r {
	case ReleaseAlpha, ReleaseBeta, ReleaseCandidate, ReleaseFinal:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownReleaseLevel, s)
	}
}

// UnmarshalText rejects values outside the closed release level set.
func (r *ReleaseLevel) UnmarshalText(b []byte) error {
	v, err := ParseReleaseLevel(string(b))
	if err != nil {
		return err
	}

	*r = v

	return nil
}

// Platform the runtime executes on.
type Platform string

// Platform values.
const (
	PlatformLinux   Platform = "linux"
	PlatformDarwin  Platform = "darwin"
	PlatformJava    Platform = "java"
	PlatformWindows Platform = "windows"
	PlatformUnknown Platform = "unknown"
)

// ParsePlatform maps a platform name to a Platform. Unrecognised names,
// including GOOS values other than linux, darwin and windows, map to PlatformUnknown.
func ParsePlatform(s string) Platform {
	switch p := Platform(s); p {
	case PlatformLinux, PlatformDarwin, PlatformJava, PlatformWindows:
		return p
	case "win32", "cygwin":
		return PlatformWindows
	default:
		return PlatformUnknown
	}
}

// UnmarshalText never fails; unknown platforms decode as PlatformUnknown.
func (p *Platform) UnmarshalText(b []byte) error {
	*p = ParsePlatform(string(b))

	return nil
}

// SessionResult is the whole-document report of one session.
//
// Lists are kept in emission order. Only the Session Reporter mutates it.
type SessionResult struct {
	SessionID      string           `json:"session_id"`
	RunnerVersion  string           `json:"runner_version"`
	PluginVersion  string           `json:"plugin_version"`
	ExitStatus     int              `json:"exit_status"`
	Warnings       []WarningMessage `json:"warnings"`
	Errors         []ErrorMessage   `json:"errors"`
	CollectReports []CollectReport  `json:"collect_reports"`
	TestReports    []TestCaseReport `json:"test_reports"`
}

// NewSessionResult returns an empty result with non-nil lists.
func NewSessionResult(sessionID, runnerVersion, pluginVersion string) *SessionResult {
	return &SessionResult{
		SessionID:      sessionID,
		RunnerVersion:  runnerVersion,
		PluginVersion:  pluginVersion,
		Warnings:       []WarningMessage{},
		Errors:         []ErrorMessage{},
		CollectReports: []CollectReport{},
		TestReports:    []TestCaseReport{},
	}
}

// Ok reports whether no test case failed and no error was recorded.
func (r *SessionResult) Ok() bool {
	if len(r.Errors) > 0 {
		return false
	}

	for _, tr := range r.TestReports {
		if tr.Outcome == OutcomeFailed {
			return false
		}
	}

	return true
}

// Counts tallies test case outcomes.
func (r *SessionResult) Counts() map[Outcome]int {
	counts := make(map[Outcome]int, 4)
	for _, tr := range r.TestReports {
		counts[tr.Outcome]++
	}

	return counts
}

// Package broadcaster observes a test session and re-emits it as a stream of
// JSON events and a whole-session JSON report.
//
// The model package holds the event types, reporter turns runner callbacks
// into events, destination delivers them and plugin ties everything together
// for a host integration.
package broadcaster

// Version of the plugin, reported in every session. Overridden at build time
// with -ldflags "-X github.com/rlch/broadcaster.Version=...".
var Version = "0.1.0-dev"

// Package destination delivers session events and results to files and
// remote endpoints.
package destination

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/rlch/broadcaster/model"
)

// Destination receives every event of a session as it is emitted, and the
// session result once the session closes.
type Destination interface {
	WriteEvent(ctx context.Context, event model.Event) error
	WriteResult(ctx context.Context, result *model.SessionResult) error
}

// Opener is implemented by destinations that acquire resources before the
// session starts.
type Opener interface {
	Open(ctx context.Context) error
}

// Summarizer is implemented by destinations that report where their output
// went once the session is over.
type Summarizer interface {
	Summary() string
}

// Config describes one configured destination.
type Config struct {
	Kind string `yaml:"kind"`

	// Path is the output file of the json and jsonl kinds.
	Path string `yaml:"path,omitempty"`

	// URL, Headers and Timeout configure the webhook kind.
	URL     string            `yaml:"url,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout time.Duration     `yaml:"timeout,omitempty"`

	// Events and Result select what a webhook sends. By default only the
	// result is sent.
	Events *bool `yaml:"events,omitempty"`
	Result *bool `yaml:"result,omitempty"`

	// Style selects the console output: dots (default) or verbose.
	Style string `yaml:"style,omitempty"`

	// Filter is an expression evaluated against each event; events for
	// which it is false are not delivered.
	Filter string `yaml:"filter,omitempty"`
}

// Factory creates a destination from its config.
type Factory func(cfg Config) (Destination, error)

// Destination kinds registered by this package.
const (
	KindJSON    = "json"
	KindJSONL   = "jsonl"
	KindWebhook = "webhook"
	KindConsole = "console"
)

var factories = map[string]Factory{
	KindJSON: func(cfg Config) (Destination, error) {
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w: %s destination needs a path", ErrInvalidConfig, KindJSON)
		}

		return NewJSONFile(cfg.Path), nil
	},
	KindJSONL: func(cfg Config) (Destination, error) {
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w: %s destination needs a path", ErrInvalidConfig, KindJSONL)
		}

		return NewJSONLinesFile(cfg.Path), nil
	},
	KindWebhook: func(cfg Config) (Destination, error) {
		opts := []WebhookOption{WithHeaders(cfg.Headers)}
		if cfg.Events != nil {
			opts = append(opts, WithEvents(*cfg.Events))
		}

		if cfg.Result != nil {
			opts = append(opts, WithResult(*cfg.Result))
		}

		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}

		return NewWebhook(cfg.URL, opts...)
	},
	KindConsole: func(cfg Config) (Destination, error) {
		switch cfg.Style {
		case "", StyleDots, StyleVerbose:
		default:
			return nil, fmt.Errorf("%w: unknown console style %q", ErrInvalidConfig, cfg.Style)
		}

		return NewConsole(os.Stderr, cfg.Style), nil
	},
}

// Register makes a destination kind available to New.
// Registering an existing kind replaces it.
func Register(kind string, factory Factory) {
	factories[kind] = factory
}

// New creates a destination from its config, wrapping it in a Filter when
// the config has a filter expression.
func New(cfg Config) (Destination, error) {
	factory, ok := factories[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}

	d, err := factory(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Filter == "" {
		return d, nil
	}

	return NewFilter(d, cfg.Filter)
}

// Registered returns the registered destination kinds, sorted.
func Registered() []string {
	kinds := make([]string, 0, len(factories))
	for kind := range factories {
		kinds = append(kinds, kind)
	}

	slices.Sort(kinds)

	return kinds
}

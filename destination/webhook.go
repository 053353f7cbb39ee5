package destination

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rlch/broadcaster/model"
)

// DefaultUserAgent is sent unless the headers override it.
const DefaultUserAgent = "broadcaster"

// DefaultWebhookTimeout bounds each webhook request.
const DefaultWebhookTimeout = 30 * time.Second

// Webhook posts events and the session result to an HTTP endpoint.
type Webhook struct {
	url     string
	client  *http.Client
	headers map[string]string
	events  bool
	result  bool
}

var (
	_ Destination = (*Webhook)(nil)
	_ Summarizer  = (*Webhook)(nil)
)

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithHeaders adds request headers. They override the defaults.
func WithHeaders(headers map[string]string) WebhookOption {
	return func(w *Webhook) {
		for k, v := range headers {
			w.headers[k] = v
		}
	}
}

// WithEvents enables posting each event as it is emitted.
func WithEvents(enabled bool) WebhookOption {
	return func(w *Webhook) {
		w.events = enabled
	}
}

// WithResult enables posting the session result at close.
func WithResult(enabled bool) WebhookOption {
	return func(w *Webhook) {
		w.result = enabled
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) WebhookOption {
	return func(w *Webhook) {
		w.client.Timeout = d
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *Webhook) {
		w.client = c
	}
}

// NewWebhook creates a webhook destination for rawURL. By default only the
// session result is posted.
func NewWebhook(rawURL string, opts ...WebhookOption) (*Webhook, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: webhook url %q: %w", ErrInvalidConfig, rawURL, err)
	}

	if u.Hostname() == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: webhook url %q", ErrInvalidConfig, rawURL)
	}

	w := &Webhook{
		url:     rawURL,
		client:  &http.Client{Timeout: DefaultWebhookTimeout},
		headers: map[string]string{"User-Agent": DefaultUserAgent},
		result:  true,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// WriteEvent posts the event when events are enabled.
func (w *Webhook) WriteEvent(ctx context.Context, event model.Event) error {
	if !w.events {
		return nil
	}

	return w.post(ctx, event)
}

// WriteResult posts the session result when results are enabled.
func (w *Webhook) WriteResult(ctx context.Context, result *model.SessionResult) error {
	if !w.result {
		return nil
	}

	return w.post(ctx, result)
}

// Summary implements Summarizer.
func (w *Webhook) Summary() string {
	return "send report to HTTP webhook: " + w.url
}

func (w *Webhook) post(ctx context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to %s: %w", w.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		return fmt.Errorf("%w: %s returned %s: %s", ErrDelivery, w.url, resp.Status, bytes.TrimSpace(body))
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

// Package telemetry builds canonical usage events and ships them to the
// MyNitor collector, best effort and off the host's critical path.
//
// Every internal failure, from serialization to collector rejection, is
// absorbed locally: the instrumentation layer must never be the cause of a
// host-visible failure, so Dispatch has no error return and no retry.
// Tests and diagnostics observe drops through the injectable drop hook
// instead of the network.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// DefaultFlushTimeout bounds Flush when the caller does not supply a
// positive timeout.
const DefaultFlushTimeout = 10 * time.Second

const requestTimeout = 10 * time.Second

var (
	errMissingAPIKey   = errors.New("no API key configured")
	errMissingEndpoint = errors.New("no endpoint configured")
)

// telemetryLogger wraps slog.Logger to prepend "[MyNitor]" to all messages.
type telemetryLogger struct {
	logger *slog.Logger
}

func (tl *telemetryLogger) Debug(msg string, args ...any) {
	tl.logger.Debug("[MyNitor] "+msg, args...)
}

func (tl *telemetryLogger) Info(msg string, args ...any) {
	tl.logger.Info("[MyNitor] "+msg, args...)
}

// HTTPClient is the interface for making HTTP requests (allows mocking in tests).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DropFunc observes events the dispatcher discarded, with the reason.
// It exists because silent failure is policy here: without a hook, drops
// would be unverifiable in tests and invisible in diagnostics.
type DropFunc func(ev Event, err error)

// Client dispatches telemetry events to the collector endpoint.
type Client struct {
	logger     *telemetryLogger
	httpClient HTTPClient
	inflight   inflight

	mu       sync.RWMutex
	endpoint string
	apiKey   string
	settings Settings
	onDrop   DropFunc
}

// NewClient creates a dispatcher. Endpoint and credential are supplied via
// Configure; a zero-configured client drops every event locally.
func NewClient(logger *slog.Logger, httpClient HTTPClient) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		logger:     &telemetryLogger{logger: logger},
		httpClient: httpClient,
	}
}

// Configure replaces the endpoint, credential, and per-event settings.
// Safe to call at any time; in-flight dispatches keep the values they
// started with.
func (c *Client) Configure(endpoint, apiKey string, s Settings) {
	c.mu.Lock()
	c.endpoint = endpoint
	c.apiKey = apiKey
	c.settings = s
	c.mu.Unlock()
}

// Settings returns the current per-event configuration snapshot.
func (c *Client) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// SetDropHook installs a callback invoked whenever a dispatch is discarded.
// Pass nil to remove it.
func (c *Client) SetDropHook(f DropFunc) {
	c.mu.Lock()
	c.onDrop = f
	c.mu.Unlock()
}

// Pending returns the number of dispatches not yet settled.
func (c *Client) Pending() int {
	return c.inflight.pending()
}

// Dispatch sends an event to the collector on a background goroutine. It
// returns immediately; the caller is never blocked on, or informed of, the
// send's outcome. The dispatch is tracked for Flush from before this
// function returns until the send settles.
func (c *Client) Dispatch(ev Event) {
	c.inflight.add()
	go func() {
		defer c.inflight.done()
		c.send(ev)
	}()
}

// Flush waits for outstanding dispatches to settle, bounded by timeout
// (DefaultFlushTimeout when timeout <= 0). It returns the number of
// dispatches still pending when it stopped waiting; zero means quiescent.
// Laggards keep running in the background; the deadline stops the wait,
// not the work.
func (c *Client) Flush(timeout time.Duration) int {
	if timeout <= 0 {
		timeout = DefaultFlushTimeout
	}
	pending := c.inflight.pending()
	if pending == 0 {
		return 0
	}
	c.logger.Info("flushing pending telemetry", "pending", pending)
	c.inflight.quiesce(timeout)
	return c.inflight.pending()
}

func (c *Client) send(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("dispatch panic recovered", "panic", r)
		}
	}()

	c.mu.RLock()
	endpoint, apiKey := c.endpoint, c.apiKey
	c.mu.RUnlock()

	if apiKey == "" {
		c.drop(ev, errMissingAPIKey)
		return
	}
	if endpoint == "" {
		c.drop(ev, errMissingEndpoint)
		return
	}

	body, err := json.Marshal(ev)
	if err != nil {
		c.drop(ev, fmt.Errorf("marshal event: %w", err))
		return
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		c.drop(ev, fmt.Errorf("create request: %w", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	req = req.WithContext(ctx)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.drop(ev, fmt.Errorf("send event: %w", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.drop(ev, fmt.Errorf("collector returned status %d", resp.StatusCode))
		return
	}

	c.logger.Debug("event dispatched", "provider", ev.Provider, "workflow", ev.Workflow, "status", ev.Status)
}

// drop discards an event. Debug-level log only: the hot path must stay
// quiet, and dispatch failure is never surfaced to the host.
func (c *Client) drop(ev Event, err error) {
	c.logger.Debug("event dropped", "reason", err, "provider", ev.Provider)

	c.mu.RLock()
	hook := c.onDrop
	c.mu.RUnlock()
	if hook != nil {
		hook(ev, err)
	}
}

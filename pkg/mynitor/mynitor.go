// Package mynitor is the public entry point of the MyNitor Go SDK.
//
// A host application initializes once, instruments, and flushes before
// exit:
//
//	m := mynitor.Init(mynitor.Config{APIKey: "mn-..."})
//	m.Instrument()
//	defer m.Flush(0)
//
// Instrument covers provider clients that ride on http.DefaultTransport.
// Clients constructed with their own transport attach through the per-SDK
// adapters in pkg/instrument.
//
// Nothing in this package can fail the host: missing credentials, absent
// provider libraries, and collector outages all degrade to silently
// dropped telemetry.
package mynitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mynitor/mynitor-go/pkg/callsite"
	"github.com/mynitor/mynitor-go/pkg/httpclient"
	"github.com/mynitor/mynitor-go/pkg/instrument"
	"github.com/mynitor/mynitor-go/pkg/telemetry"
)

// DefaultFlushTimeout bounds Flush when no positive timeout is given.
const DefaultFlushTimeout = telemetry.DefaultFlushTimeout

// Monitor is the process-wide instrumentation handle. Exactly one exists
// per process; Init always returns the same instance.
type Monitor struct {
	mu     sync.Mutex
	cfg    Config
	client *telemetry.Client
}

var (
	initMu    sync.Mutex
	singleton *Monitor
)

// Init returns the process-wide Monitor, creating it on first call.
//
// The first call constructs the configuration from cfg merged over
// environment variables and defaults, and selects the shutdown-hook
// strategy. Every later call shallow-merges cfg into the existing
// configuration: only fields set in cfg are overwritten, the rest are
// preserved. Init never fails; a missing credential surfaces only as
// dropped dispatches.
func Init(cfg Config) *Monitor {
	initMu.Lock()
	defer initMu.Unlock()

	if singleton == nil {
		m := &Monitor{
			cfg:    configFromEnv().merge(cfg),
			client: telemetry.NewClient(slog.Default(), httpclient.New()),
		}
		m.configureClient()
		singleton = m
		installExitHook(m)
		return m
	}

	singleton.mu.Lock()
	singleton.cfg = singleton.cfg.merge(cfg)
	singleton.configureClient()
	singleton.mu.Unlock()
	return singleton
}

// configureClient pushes the current configuration into the dispatcher.
// Callers hold the relevant lock.
func (m *Monitor) configureClient() {
	m.client.Configure(m.cfg.Endpoint, m.cfg.APIKey, telemetry.Settings{
		Agent:       m.cfg.Agent,
		Workflow:    m.cfg.Workflow,
		Environment: m.cfg.Environment,
	})
}

// Config returns a copy of the current configuration.
func (m *Monitor) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Telemetry exposes the underlying dispatcher, used by the CLI and by the
// per-SDK adapters.
func (m *Monitor) Telemetry() *telemetry.Client {
	return m.client
}

// Instrument applies all capability adapters. Idempotent: calling it
// again, or from a second Init'ed handle, never wraps a method twice.
func (m *Monitor) Instrument() {
	if instrument.Install(m.client) {
		slog.Info("MyNitor: auto-instrumentation active")
	}
}

// Flush waits for in-flight telemetry dispatches to settle, bounded by
// timeout (DefaultFlushTimeout when timeout <= 0), and returns the number
// still pending when it stopped waiting. The deadline does not cancel
// outstanding dispatches; they complete or fail in the background.
func (m *Monitor) Flush(timeout time.Duration) int {
	return m.client.Flush(timeout)
}

// WithWorkflow tags ctx with an explicit workflow name for any intercepted
// call made with that context. The tag beats both the configured override
// and call-site inference.
func WithWorkflow(ctx context.Context, workflow string) context.Context {
	return callsite.WithWorkflow(ctx, workflow)
}

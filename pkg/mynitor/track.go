package mynitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mynitor/mynitor-go/pkg/callsite"
	"github.com/mynitor/mynitor-go/pkg/telemetry"
)

// TrackOptions describes a manually monitored call. The zero value is
// usable: provider defaults to "other", the agent falls back to the
// configured one, and the workflow falls back to the context tag and then
// to call-site inference.
type TrackOptions struct {
	Agent    string
	Workflow string
	Model    string
	Provider string
}

// Tracker collects details of one manually monitored call. It is handed
// to the Track callback and must not be used after the callback returns.
type Tracker struct {
	usage    telemetry.Usage
	retries  int
	metadata map[string]any
}

// SetUsage records the token counts observed for the call.
func (t *Tracker) SetUsage(inputTokens, outputTokens int) {
	t.usage = telemetry.Usage{InputTokens: inputTokens, OutputTokens: outputTokens}
}

// SetRetries records how many times the call was retried.
func (t *Tracker) SetRetries(count int) {
	t.retries = count
}

// SetMetadata attaches an arbitrary key/value pair to the event.
func (t *Tracker) SetMetadata(key string, value any) {
	if t.metadata == nil {
		t.metadata = map[string]any{}
	}
	t.metadata[key] = value
}

// Track runs fn and dispatches one event for it, covering calls the
// interceptor cannot see: providers without a wired adapter, or transports
// the SDK does not own.
//
//	err := m.Track(ctx, mynitor.TrackOptions{Model: "command-r"}, func(tr *mynitor.Tracker) error {
//		resp, err := cohereClient.Chat(ctx, req)
//		if err != nil {
//			return err
//		}
//		tr.SetUsage(resp.Usage.Input, resp.Usage.Output)
//		return nil
//	})
//
// The callback's error is recorded on the event and returned unchanged; a
// panic is likewise recorded and then re-raised. Telemetry failure never
// surfaces: the event is dispatched fire-and-forget like every other.
func (m *Monitor) Track(ctx context.Context, opts TrackOptions, fn func(*Tracker) error) error {
	site := callsite.Resolve()
	start := time.Now()
	tracker := &Tracker{}

	settled := func(errType, errMessage string) {
		out := telemetry.Outcome{
			Provider: firstNonEmpty(opts.Provider, "other"),
			Model:    opts.Model,
			Usage:    tracker.usage,
			Retries:  tracker.retries,
			Metadata: tracker.metadata,
			Latency:  time.Since(start),
			Site:     site,
			Workflow: firstNonEmpty(opts.Workflow, callsite.WorkflowFromContext(ctx)),
		}
		if errType != "" {
			out.ErrorType = errType
			if out.Metadata == nil {
				out.Metadata = map[string]any{}
			}
			out.Metadata["error_message"] = errMessage
		}
		settings := m.client.Settings()
		if opts.Agent != "" {
			settings.Agent = opts.Agent
		}
		m.client.Dispatch(telemetry.NewEvent(settings, out))
	}

	defer func() {
		if r := recover(); r != nil {
			settled("panic", fmt.Sprint(r))
			panic(r)
		}
	}()

	if err := fn(tracker); err != nil {
		settled(errorType(err), err.Error())
		return err
	}
	settled("", "")
	return nil
}

// errorType names an error by its concrete type, the manual-path analogue
// of the interceptor's transport error classification.
func errorType(err error) string {
	return strings.TrimLeft(fmt.Sprintf("%T", err), "*")
}

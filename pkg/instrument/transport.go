package instrument

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mynitor/mynitor-go/pkg/callsite"
	"github.com/mynitor/mynitor-go/pkg/telemetry"
)

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Transport wraps a base http.RoundTripper and derives a telemetry event
// from every request it recognizes as a provider API call. Requests that
// match no capability pass through untouched.
//
// Transparency contract: the request is forwarded as received, the
// response (or error) is returned exactly as the base produced it, and
// only synchronous bookkeeping happens on the caller's goroutine. Bodies
// that must be inspected are read once and restored.
type Transport struct {
	base   http.RoundTripper
	client *telemetry.Client
	caps   []*Capability
}

// NewTransport wraps base with interception for all registered
// capabilities, dispatching through c. Wrapping is idempotent: a base that
// is already a *Transport is returned as is.
func NewTransport(base http.RoundTripper, c *telemetry.Client) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if t, ok := base.(*Transport); ok {
		return t
	}
	return &Transport{
		base:   base,
		client: c,
		caps:   capabilities(),
	}
}

// Base returns the wrapped transport.
func (t *Transport) Base() http.RoundTripper {
	return t.base
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	matched := t.match(req)
	if matched == nil {
		return t.base.RoundTrip(req)
	}

	obs := t.observe(matched, req)
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	t.record(obs, start, resp, err)
	return resp, err
}

func (t *Transport) match(req *http.Request) (matched *Capability) {
	// A broken matcher must never take the host call down with it.
	defer func() {
		if r := recover(); r != nil {
			matched = nil
		}
	}()
	for _, c := range t.caps {
		if c.Match(req) {
			return c
		}
	}
	return nil
}

// observation carries what the interceptor learned before forwarding the
// call: attribution, the model named in the request, and the settings
// snapshot events will be built against.
type observation struct {
	cap      *Capability
	site     callsite.Site
	settings telemetry.Settings
	workflow string // per-call context tag, if any
	reqModel string
}

func (t *Transport) observe(c *Capability, req *http.Request) (obs *observation) {
	obs = &observation{
		cap:      c,
		settings: t.client.Settings(),
		workflow: callsite.WorkflowFromContext(req.Context()),
	}
	// Attribution is best effort; a panic mid-derivation must still leave
	// a usable observation behind so the event is not lost.
	defer func() {
		recover()
	}()
	obs.site = callsite.Resolve()
	obs.reqModel = c.RequestModel(req, peekRequestBody(req))
	return obs
}

// record builds and dispatches the event for a settled call. It runs on
// the host's goroutine but does only bookkeeping; the network send is
// scheduled, never awaited. Any panic here is absorbed so the host sees
// the original outcome regardless.
func (t *Transport) record(obs *observation, start time.Time, resp *http.Response, err error) {
	defer func() {
		recover()
	}()

	out := telemetry.Outcome{
		Provider: obs.cap.Name,
		Model:    obs.reqModel,
		Latency:  time.Since(start),
		Site:     obs.site,
		Workflow: obs.workflow,
	}

	switch {
	case err != nil:
		out.ErrorType = classifyError(err)
		out.Metadata = map[string]any{"error_message": err.Error()}
	case resp.StatusCode >= 400:
		out.ErrorType = fmt.Sprintf("http_%d", resp.StatusCode)
	default:
		parseSuccess(obs.cap, resp, &out)
	}

	t.client.Dispatch(telemetry.NewEvent(obs.settings, out))
}

// parseSuccess fills usage details from the response body. It recovers on
// its own so a broken parser costs the event its token counts, not its
// existence.
func parseSuccess(c *Capability, resp *http.Response, out *telemetry.Outcome) {
	defer func() {
		recover()
	}()
	body := peekResponseBody(resp)
	if body == nil {
		return
	}
	model, usage, requestID := c.ParseResponse(body)
	if model != "" {
		out.Model = model
	}
	out.Usage = usage
	out.RequestID = requestID
}

// peekRequestBody returns the request body bytes without consuming them.
// GetBody is preferred (it hands out a fresh reader); otherwise the body
// is read and replaced.
func peekRequestBody(req *http.Request) []byte {
	if req.GetBody != nil {
		rc, err := req.GetBody()
		if err != nil {
			return nil
		}
		defer rc.Close()
		body, err := io.ReadAll(rc)
		if err != nil {
			return nil
		}
		return body
	}
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}
	body, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		req.Body = io.NopCloser(bytes.NewReader(nil))
		return nil
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	return body
}

// peekResponseBody returns the response body bytes and restores the body
// for the host. Streaming responses are never buffered: consuming an SSE
// stream here would stall the host, so those events carry zero usage.
func peekResponseBody(resp *http.Response) []byte {
	if resp.Body == nil {
		return nil
	}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		resp.Body = io.NopCloser(bytes.NewReader(body))
		return nil
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return body
}

// classifyError names a transport failure for the event's error_type.
func classifyError(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	default:
		return strings.TrimLeft(fmt.Sprintf("%T", err), "*")
	}
}

package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mynitor/mynitor-go/pkg/callsite"
	"github.com/mynitor/mynitor-go/pkg/telemetry"
)

// collectorStub stands in for the MyNitor collector and records every
// event the dispatcher ships.
type collectorStub struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (c *collectorStub) Do(req *http.Request) (*http.Response, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	var ev telemetry.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader(nil)),
		Header:     make(http.Header),
	}, nil
}

func (c *collectorStub) Events() []telemetry.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]telemetry.Event{}, c.events...)
}

func newTestTransport(t *testing.T, base http.RoundTripper) (*Transport, *telemetry.Client, *collectorStub) {
	t.Helper()
	collector := &collectorStub{}
	client := telemetry.NewClient(slog.New(slog.NewTextHandler(os.Stderr, nil)), collector)
	client.Configure("https://collector.test/api/v1/events", "mn-test-key", telemetry.Settings{
		Agent:       "test-agent",
		Environment: "test",
	})
	return NewTransport(base, client), client, collector
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

const openAIResponse = `{
	"id": "chatcmpl-abc123",
	"model": "gpt-4o-2024-08-06",
	"usage": {"prompt_tokens": 150, "completion_tokens": 450}
}`

func newChatRequest(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(`{"model":"gpt-4o"}`))
	require.NoError(t, err)
	return req
}

func TestRoundTripSuccessIsTransparent(t *testing.T) {
	base := RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, openAIResponse), nil
	})
	tr, client, collector := newTestTransport(t, base)

	req := newChatRequest(t, "https://api.openai.com/v1/chat/completions")
	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The host must still be able to read the full body after the
	// interceptor peeked at it.
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, openAIResponse, string(body))

	require.Zero(t, client.Flush(time.Second))
	events := collector.Events()
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "openai", ev.Provider)
	assert.Equal(t, "gpt-4o-2024-08-06", ev.Model, "response model wins over request model")
	assert.Equal(t, 150, ev.InputTokens)
	assert.Equal(t, 450, ev.OutputTokens)
	assert.Equal(t, telemetry.StatusSuccess, ev.Status)
	assert.Equal(t, "chatcmpl-abc123", ev.RequestID)
	assert.True(t, strings.HasSuffix(ev.File, "transport_test.go"), "got file %q", ev.File)
	assert.Equal(t, "transport_test", ev.Workflow)
	assert.NotEmpty(t, ev.CallsiteHash)
	assert.GreaterOrEqual(t, ev.LatencyMS, int64(0))
}

func TestRoundTripErrorIsPassedThrough(t *testing.T) {
	baseErr := errors.New("dial tcp: connection refused")
	base := RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, baseErr
	})
	tr, client, collector := newTestTransport(t, base)

	req := newChatRequest(t, "https://api.openai.com/v1/chat/completions")
	resp, err := tr.RoundTrip(req)
	assert.Nil(t, resp)
	assert.Same(t, baseErr, err, "the host must see the exact error the base produced")

	require.Zero(t, client.Flush(time.Second))
	events := collector.Events()
	require.Len(t, events, 1)
	assert.Equal(t, telemetry.StatusError, events[0].Status)
	assert.Equal(t, "errors.errorString", events[0].ErrorType)
	assert.Zero(t, events[0].InputTokens)
	assert.Zero(t, events[0].OutputTokens)
}

func TestRoundTripHTTPErrorStatus(t *testing.T) {
	base := RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusTooManyRequests, `{"error":{"message":"rate limit"}}`), nil
	})
	tr, client, collector := newTestTransport(t, base)

	req := newChatRequest(t, "https://api.openai.com/v1/chat/completions")
	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// Error body stays readable for the SDK's own error handling.
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "rate limit")

	require.Zero(t, client.Flush(time.Second))
	events := collector.Events()
	require.Len(t, events, 1)
	assert.Equal(t, telemetry.StatusError, events[0].Status)
	assert.Equal(t, "http_429", events[0].ErrorType)
	assert.Equal(t, "gpt-4o", events[0].Model, "request model is kept when the response has none")
}

func TestRoundTripNonProviderRequestPassesThrough(t *testing.T) {
	var baseCalled bool
	base := RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		baseCalled = true
		return jsonResponse(http.StatusOK, `{"ok":true}`), nil
	})
	tr, client, collector := newTestTransport(t, base)

	req, err := http.NewRequest(http.MethodGet, "https://example.com/healthz", nil)
	require.NoError(t, err)
	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, baseCalled)

	require.Zero(t, client.Flush(time.Second))
	assert.Empty(t, collector.Events())
}

func TestRoundTripStreamingResponseNotBuffered(t *testing.T) {
	stream := "data: {\"choices\":[]}\n\ndata: [DONE]\n\n"
	base := RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(stream)),
			Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
		}, nil
	})
	tr, client, collector := newTestTransport(t, base)

	req := newChatRequest(t, "https://api.openai.com/v1/chat/completions")
	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, stream, string(body))

	require.Zero(t, client.Flush(time.Second))
	events := collector.Events()
	require.Len(t, events, 1)
	assert.Equal(t, telemetry.StatusSuccess, events[0].Status)
	assert.Zero(t, events[0].InputTokens, "stream bodies are never consumed for usage")
	assert.Zero(t, events[0].OutputTokens)
	assert.Equal(t, "gpt-4o", events[0].Model)
}

func TestRoundTripWorkflowContextTag(t *testing.T) {
	base := RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, openAIResponse), nil
	})
	tr, client, collector := newTestTransport(t, base)

	req := newChatRequest(t, "https://api.openai.com/v1/chat/completions")
	req = req.WithContext(callsite.WithWorkflow(req.Context(), "nightly-ingest"))

	_, err := tr.RoundTrip(req)
	require.NoError(t, err)

	require.Zero(t, client.Flush(time.Second))
	events := collector.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "nightly-ingest", events[0].Workflow)
}

func TestRoundTripEventSurvivesBrokenParser(t *testing.T) {
	base := RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, openAIResponse), nil
	})
	_, client, collector := newTestTransport(t, base)

	broken := &Capability{
		Name:         "openai",
		Match:        func(*http.Request) bool { return true },
		RequestModel: func(*http.Request, []byte) string { panic("parser bug") },
		ParseResponse: func([]byte) (string, telemetry.Usage, string) {
			panic("parser bug")
		},
	}
	tr := &Transport{base: base, client: client, caps: []*Capability{broken}}

	req := newChatRequest(t, "https://api.openai.com/v1/chat/completions")
	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, openAIResponse, string(body), "the host call is untouched by the broken adapter")

	require.Zero(t, client.Flush(time.Second))
	events := collector.Events()
	require.Len(t, events, 1, "a broken adapter degrades attribution, never drops the event")
	assert.Equal(t, "openai", events[0].Provider)
	assert.True(t, strings.HasSuffix(events[0].File, "transport_test.go"), "got file %q", events[0].File)
}

func TestNewTransportIdempotent(t *testing.T) {
	tr, _, _ := newTestTransport(t, http.DefaultTransport)
	again := NewTransport(tr, nil)
	assert.Same(t, tr, again)
}

func TestInstallIsIdempotent(t *testing.T) {
	orig := http.DefaultTransport
	t.Cleanup(func() { http.DefaultTransport = orig })

	_, client, _ := newTestTransport(t, nil)

	assert.True(t, Install(client))
	assert.True(t, Installed())
	assert.False(t, Install(client), "second install must not wrap again")

	tr, ok := http.DefaultTransport.(*Transport)
	require.True(t, ok)
	assert.Same(t, orig, tr.Base())
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", contextDeadline(), "deadline_exceeded"},
		{"canceled", contextCanceled(), "canceled"},
		{"generic", errors.New("boom"), "errors.errorString"},
		{"url error", urlError(), "url.Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyError(tt.err))
		})
	}
}

func contextDeadline() error {
	return fmt.Errorf("request failed: %w", context.DeadlineExceeded)
}

func contextCanceled() error {
	return fmt.Errorf("request failed: %w", context.Canceled)
}

func urlError() error {
	return &url.Error{Op: "Post", URL: "https://api.openai.com", Err: errors.New("connection reset")}
}

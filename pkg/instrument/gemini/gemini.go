// Package gemini attaches MyNitor interception to explicitly constructed
// Google GenAI clients. The genai SDK takes a whole *http.Client rather
// than a middleware, so the adapter hands one out with the interceptor as
// its transport.
package gemini

import (
	"net/http"

	"google.golang.org/genai"

	"github.com/mynitor/mynitor-go/pkg/instrument"
	"github.com/mynitor/mynitor-go/pkg/telemetry"
)

// HTTPClient returns an *http.Client that records a telemetry event for
// every generateContent call, dispatching through c. When Install has
// already wrapped http.DefaultTransport, the wrap is peeled off first so
// the returned client dispatches through c rather than through the
// installed dispatcher.
//
//	client, err := genai.NewClient(ctx, &genai.ClientConfig{
//		APIKey:     key,
//		Backend:    genai.BackendGeminiAPI,
//		HTTPClient: mngemini.HTTPClient(m.Telemetry()),
//	})
func HTTPClient(c *telemetry.Client) *http.Client {
	base := http.DefaultTransport
	if t, ok := base.(*instrument.Transport); ok {
		base = t.Base()
	}
	return &http.Client{
		Transport: instrument.NewTransport(base, c),
	}
}

// ClientConfig builds a Gemini API client configuration with interception
// already attached.
//
//	client, err := genai.NewClient(ctx, mngemini.ClientConfig(key, m.Telemetry()))
func ClientConfig(apiKey string, c *telemetry.Client) *genai.ClientConfig {
	return &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: HTTPClient(c),
	}
}

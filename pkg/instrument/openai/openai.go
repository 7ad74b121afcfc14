// Package openai attaches MyNitor interception to explicitly constructed
// OpenAI clients. Clients on http.DefaultTransport are already covered by
// mynitor.Instrument; this adapter is for clients built with their own
// HTTP stack.
package openai

import (
	"net/http"

	"github.com/openai/openai-go/v3/option"

	"github.com/mynitor/mynitor-go/pkg/instrument"
	"github.com/mynitor/mynitor-go/pkg/telemetry"
)

// Middleware returns an OpenAI SDK middleware that records a telemetry
// event for every chat completion call, dispatching through c.
//
//	client := openai.NewClient(
//		option.WithAPIKey(key),
//		option.WithMiddleware(mnopenai.Middleware(m.Telemetry())),
//	)
func Middleware(c *telemetry.Client) option.Middleware {
	return func(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
		t := instrument.NewTransport(instrument.RoundTripperFunc(next), c)
		return t.RoundTrip(req)
	}
}

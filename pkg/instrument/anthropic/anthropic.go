// Package anthropic attaches MyNitor interception to explicitly
// constructed Anthropic clients, mirroring the OpenAI adapter.
package anthropic

import (
	"net/http"

	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mynitor/mynitor-go/pkg/instrument"
	"github.com/mynitor/mynitor-go/pkg/telemetry"
)

// Middleware returns an Anthropic SDK middleware that records a telemetry
// event for every messages call, dispatching through c.
//
//	client := anthropic.NewClient(
//		option.WithAPIKey(key),
//		option.WithMiddleware(mnanthropic.Middleware(m.Telemetry())),
//	)
func Middleware(c *telemetry.Client) option.Middleware {
	return func(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
		t := instrument.NewTransport(instrument.RoundTripperFunc(next), c)
		return t.RoundTrip(req)
	}
}

// Package instrument observes HTTP calls made by AI-provider client
// libraries and derives telemetry from them without altering the call's
// observable behavior.
//
// Interception happens at the transport boundary: a Transport wraps an
// http.RoundTripper and recognizes provider API shapes by request URL.
// This replaces the runtime method patching a dynamic language would use;
// the applied transport type itself is the idempotency marker, so wrapping
// is at most once no matter how many times Install runs.
package instrument

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mynitor/mynitor-go/pkg/telemetry"
)

// Capability describes one provider API this SDK can observe: how to
// recognize its network call and how to translate its request/response
// fields into the canonical event shape.
type Capability struct {
	// Name is the provider identifier stamped on events.
	Name string

	// Match reports whether the outgoing request is this provider's call.
	Match func(req *http.Request) bool

	// RequestModel extracts the model identifier from the outgoing
	// request (body or URL), used when the response does not name one.
	RequestModel func(req *http.Request, body []byte) string

	// ParseResponse extracts model, usage, and the provider request id
	// from a successful response body. Absent usage metadata yields
	// zero token counts.
	ParseResponse func(body []byte) (model string, usage telemetry.Usage, requestID string)
}

// capabilities is the adapter registry, one entry per supported provider.
func capabilities() []*Capability {
	return []*Capability{
		openAICapability(),
		anthropicCapability(),
		googleCapability(),
	}
}

// openAICapability matches the chat-completions API shape. The match is on
// the URL path only, so OpenAI-compatible providers (DeepSeek, Groq, local
// gateways) are picked up as well; they share the usage field layout.
func openAICapability() *Capability {
	return &Capability{
		Name: "openai",
		Match: func(req *http.Request) bool {
			return strings.HasSuffix(req.URL.Path, "/chat/completions")
		},
		RequestModel: modelFromBody,
		ParseResponse: func(body []byte) (string, telemetry.Usage, string) {
			var resp struct {
				ID    string `json:"id"`
				Model string `json:"model"`
				Usage struct {
					PromptTokens     int `json:"prompt_tokens"`
					CompletionTokens int `json:"completion_tokens"`
				} `json:"usage"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return "", telemetry.Usage{}, ""
			}
			return resp.Model, telemetry.Usage{
				InputTokens:  resp.Usage.PromptTokens,
				OutputTokens: resp.Usage.CompletionTokens,
			}, resp.ID
		},
	}
}

// anthropicCapability matches the messages API shape.
func anthropicCapability() *Capability {
	return &Capability{
		Name: "anthropic",
		Match: func(req *http.Request) bool {
			return strings.HasSuffix(req.URL.Path, "/v1/messages")
		},
		RequestModel: modelFromBody,
		ParseResponse: func(body []byte) (string, telemetry.Usage, string) {
			var resp struct {
				ID    string `json:"id"`
				Model string `json:"model"`
				Usage struct {
					InputTokens  int `json:"input_tokens"`
					OutputTokens int `json:"output_tokens"`
				} `json:"usage"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return "", telemetry.Usage{}, ""
			}
			return resp.Model, telemetry.Usage{
				InputTokens:  resp.Usage.InputTokens,
				OutputTokens: resp.Usage.OutputTokens,
			}, resp.ID
		},
	}
}

// googleCapability matches the generate-content API shape. The model name
// is part of the URL path ("/models/<model>:generateContent"), not the
// request body.
func googleCapability() *Capability {
	return &Capability{
		Name: "google",
		Match: func(req *http.Request) bool {
			return strings.Contains(req.URL.Path, ":generateContent") ||
				strings.Contains(req.URL.Path, ":streamGenerateContent")
		},
		RequestModel: func(req *http.Request, _ []byte) string {
			path := req.URL.Path
			i := strings.LastIndex(path, "/models/")
			if i < 0 {
				return ""
			}
			model := path[i+len("/models/"):]
			if j := strings.IndexByte(model, ':'); j >= 0 {
				model = model[:j]
			}
			return model
		},
		ParseResponse: func(body []byte) (string, telemetry.Usage, string) {
			var resp struct {
				ModelVersion  string `json:"modelVersion"`
				ResponseID    string `json:"responseId"`
				UsageMetadata struct {
					PromptTokenCount     int `json:"promptTokenCount"`
					CandidatesTokenCount int `json:"candidatesTokenCount"`
				} `json:"usageMetadata"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return "", telemetry.Usage{}, ""
			}
			return resp.ModelVersion, telemetry.Usage{
				InputTokens:  resp.UsageMetadata.PromptTokenCount,
				OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			}, resp.ResponseID
		},
	}
}

// modelFromBody reads the "model" field common to the JSON request bodies
// of the chat-completions and messages APIs.
func modelFromBody(_ *http.Request, body []byte) string {
	var req struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return ""
	}
	return req.Model
}

package telemetry

import (
	"time"

	"github.com/google/uuid"

	"github.com/mynitor/mynitor-go/pkg/callsite"
)

// EventVersion is the schema version stamped on every event.
const EventVersion = "1.0"

// Status reports the outcome of the wrapped provider call.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Usage holds the token counts extracted from a provider response.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Event is the canonical telemetry record for one intercepted call. The
// field set and JSON names are the wire contract with the MyNitor
// collector; they are identical across providers.
type Event struct {
	EventVersion string    `json:"event_version"`
	Timestamp    time.Time `json:"timestamp"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Agent        string    `json:"agent"`
	Workflow     string    `json:"workflow"`
	File         string    `json:"file"`
	FunctionName string    `json:"function_name"`
	LineNumber   int       `json:"line_number"`
	CallsiteHash string    `json:"callsite_hash,omitempty"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	RetryCount   int       `json:"retry_count,omitempty"`
	LatencyMS    int64     `json:"latency_ms"`
	Status       Status    `json:"status"`
	ErrorType    string    `json:"error_type,omitempty"`
	Environment  string    `json:"environment"`
	RequestID    string    `json:"request_id"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// Settings is the per-event slice of the process configuration: the agent
// label, the optional explicit workflow override, and the environment tag.
type Settings struct {
	Agent       string
	Workflow    string
	Environment string
}

// Outcome describes one settled provider call, as observed by an
// interceptor, before normalization into an Event.
type Outcome struct {
	Provider  string
	Model     string
	Usage     Usage
	RequestID string
	Latency   time.Duration
	Site      callsite.Site
	// Retries and Metadata are only populated by manual tracking and by
	// error capture; the interceptor path leaves them empty.
	Retries  int
	Metadata map[string]any
	// Workflow carries an explicit per-call tag (context override).
	// Empty means "fall back to configuration, then to the call site".
	Workflow string
	// ErrorType is non-empty when the wrapped call failed; its presence
	// switches the event to StatusError and zeroes the token counts.
	ErrorType string
}

// NewEvent normalizes an Outcome into the canonical Event shape.
//
// Workflow precedence: per-call tag, then configured override, then the
// call site's inferred label. A missing provider request id is replaced
// with a generated UUID so every event is individually addressable.
func NewEvent(s Settings, o Outcome) Event {
	workflow := o.Workflow
	if workflow == "" {
		workflow = s.Workflow
	}
	if workflow == "" {
		workflow = o.Site.Workflow
	}

	requestID := o.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	ev := Event{
		EventVersion: EventVersion,
		Timestamp:    time.Now().UTC(),
		Provider:     o.Provider,
		Model:        o.Model,
		Agent:        s.Agent,
		Workflow:     workflow,
		File:         o.Site.File,
		FunctionName: o.Site.Function,
		LineNumber:   o.Site.Line,
		CallsiteHash: o.Site.Hash,
		InputTokens:  o.Usage.InputTokens,
		OutputTokens: o.Usage.OutputTokens,
		RetryCount:   o.Retries,
		Metadata:     o.Metadata,
		LatencyMS:    o.Latency.Milliseconds(),
		Status:       StatusSuccess,
		Environment:  s.Environment,
		RequestID:    requestID,
	}

	if o.ErrorType != "" {
		ev.Status = StatusError
		ev.ErrorType = o.ErrorType
		ev.InputTokens = 0
		ev.OutputTokens = 0
	}

	return ev
}

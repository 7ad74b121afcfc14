package mynitor

import "os"

// DefaultEndpoint is the MyNitor Cloud events ingestion endpoint.
const DefaultEndpoint = "https://app.mynitor.ai/api/v1/events"

const (
	defaultEnvironment = "production"
	defaultAgent       = "default-agent"
)

// Environment variables consulted for unset Config fields.
const (
	EnvAPIKey      = "MYNITOR_API_KEY"
	EnvEndpoint    = "MYNITOR_API_URL"
	EnvEnvironment = "MYNITOR_ENVIRONMENT"
	EnvWorkflow    = "MYNITOR_WORKFLOW"
)

// Config holds the process-wide instrumentation settings. The zero value
// is valid: credentials and endpoint fall back to the environment, and a
// missing credential is tolerated until dispatch time.
type Config struct {
	// APIKey authenticates against the collector (Bearer token).
	APIKey string
	// Endpoint overrides the collector URL.
	Endpoint string
	// Environment tags every event (default "production").
	Environment string
	// Workflow, when set, overrides call-site workflow inference for
	// every event.
	Workflow string
	// Agent labels the emitting application (default "default-agent").
	Agent string
}

// configFromEnv builds the baseline configuration: environment variables
// merged over compile-time defaults.
func configFromEnv() Config {
	return Config{
		APIKey:      os.Getenv(EnvAPIKey),
		Endpoint:    firstNonEmpty(os.Getenv(EnvEndpoint), DefaultEndpoint),
		Environment: firstNonEmpty(os.Getenv(EnvEnvironment), defaultEnvironment),
		Workflow:    os.Getenv(EnvWorkflow),
		Agent:       defaultAgent,
	}
}

// merge overlays the set fields of override onto c, last write wins per
// field. Unset (empty) fields keep their previous value.
func (c Config) merge(override Config) Config {
	c.APIKey = firstNonEmpty(override.APIKey, c.APIKey)
	c.Endpoint = firstNonEmpty(override.Endpoint, c.Endpoint)
	c.Environment = firstNonEmpty(override.Environment, c.Environment)
	c.Workflow = firstNonEmpty(override.Workflow, c.Workflow)
	c.Agent = firstNonEmpty(override.Agent, c.Agent)
	return c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package root

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusEndpoint(t *testing.T) {
	assert.Equal(t,
		"https://app.mynitor.ai/api/v1/onboarding/status",
		statusEndpoint("https://app.mynitor.ai/api/v1/events"))
	assert.Equal(t,
		"https://staging.mynitor.test/api/v1/onboarding/status",
		statusEndpoint("https://staging.mynitor.test/api/v1/events"))
	assert.Equal(t,
		"https://collector.internal/api/v1/onboarding/status",
		statusEndpoint("https://collector.internal/"))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "mn-live-...f9c2", maskKey("mn-live-0123456789abf9c2"))
	assert.Equal(t, "****", maskKey("short"))
	assert.Equal(t, "****", maskKey(""))
}

func TestRootCommandWiring(t *testing.T) {
	cmd := NewRootCmd()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"doctor", "ping", "mock", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

package instrument

import (
	"net/http"
	"sync"

	"github.com/mynitor/mynitor-go/pkg/telemetry"
)

var installMu sync.Mutex

// Install wraps http.DefaultTransport with the interceptor so hosts that
// use default-configured provider clients are covered without further
// wiring. It reports whether it wrapped the transport now; a transport
// that is already a *Transport is left alone, which makes repeated
// instrument() calls and multiple SDK handles safe.
//
// Clients built with an explicit transport are not reached from here; use
// the per-SDK adapters (instrument/openai, instrument/anthropic,
// instrument/gemini) for those.
func Install(c *telemetry.Client) bool {
	installMu.Lock()
	defer installMu.Unlock()

	if _, ok := http.DefaultTransport.(*Transport); ok {
		return false
	}
	http.DefaultTransport = NewTransport(http.DefaultTransport, c)
	return true
}

// Installed reports whether http.DefaultTransport is currently wrapped.
func Installed() bool {
	installMu.Lock()
	defer installMu.Unlock()
	_, ok := http.DefaultTransport.(*Transport)
	return ok
}

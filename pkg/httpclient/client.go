package httpclient

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/mynitor/mynitor-go/pkg/version"
)

// UserAgent identifies this SDK on every outbound request.
var UserAgent = fmt.Sprintf("mynitor-go/%s (%s; %s)", version.Version, runtime.GOOS, runtime.GOARCH)

type userAgentTransport struct {
	agent string
	rt    http.RoundTripper
}

func (u *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r2 := req.Clone(req.Context())
	r2.Header.Set("User-Agent", u.agent)
	return u.rt.RoundTrip(r2)
}

// New returns an HTTP client that stamps the SDK User-Agent on each request.
func New() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &userAgentTransport{
			agent: UserAgent,
			rt:    http.DefaultTransport,
		},
	}
}

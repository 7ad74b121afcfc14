package mynitor

import (
	"os"
	"os/signal"
	"syscall"
)

// serverlessMarkers identify managed short-lived execution contexts where
// pre-exit notifications are unreliable. When one is present, no shutdown
// hook is installed and the handler must call Flush before returning.
var serverlessMarkers = []string{
	"AWS_LAMBDA_FUNCTION_NAME",
	"FUNCTION_TARGET",
	"FUNCTIONS_WORKER_RUNTIME",
	"VERCEL",
}

func runningServerless() bool {
	for _, marker := range serverlessMarkers {
		if os.Getenv(marker) != "" {
			return true
		}
	}
	return false
}

// installExitHook registers a best-effort flush on SIGINT/SIGTERM. After
// flushing, the signal is re-delivered with this handler removed so the
// process terminates exactly as it would have without the SDK. Go has no
// pre-exit notification for a plain os.Exit or a clean main return, so
// hosts that exit those ways should defer Flush themselves.
func installExitHook(m *Monitor) {
	if runningServerless() {
		return
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-ch
		m.Flush(DefaultFlushTimeout)
		signal.Stop(ch)
		if p, err := os.FindProcess(os.Getpid()); err == nil {
			_ = p.Signal(sig)
		}
	}()
}

package telemetry

import (
	"sync"
	"time"
)

// inflight tracks dispatches that have started but not yet settled. It is
// the quiescence primitive Flush waits on: an entry exists exactly from the
// moment a dispatch begins until the moment it settles, success or failure.
type inflight struct {
	mu    sync.Mutex
	n     int
	quiet chan struct{} // closed when n drops to zero; nil while idle
}

func (f *inflight) add() {
	f.mu.Lock()
	f.n++
	if f.n == 1 {
		f.quiet = make(chan struct{})
	}
	f.mu.Unlock()
}

func (f *inflight) done() {
	f.mu.Lock()
	f.n--
	if f.n == 0 {
		close(f.quiet)
		f.quiet = nil
	}
	f.mu.Unlock()
}

func (f *inflight) pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

// quiesce waits until every dispatch tracked at the time of the call has
// settled, or until the timeout elapses. It reports whether quiescence was
// reached. The timeout is a deadline, not a cancellation: dispatches still
// outstanding keep running after quiesce returns.
//
// Quiescence means the tracked set drained to empty at least once during
// the wait; dispatches started after that point belong to a later
// generation and do not extend it.
func (f *inflight) quiesce(timeout time.Duration) bool {
	f.mu.Lock()
	if f.n == 0 {
		f.mu.Unlock()
		return true
	}
	quiet := f.quiet
	f.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-quiet:
		return true
	case <-timer.C:
		return false
	}
}

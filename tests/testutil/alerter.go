package testutil

import "sync"

// AlertCall records one raised alert.
type AlertCall struct {
	Count   int
	Message string
}

// RecordingAlerter captures alerts raised by the poller. Safe for use
// from the poller's background goroutine.
type RecordingAlerter struct {
	mu    sync.Mutex
	calls []AlertCall
}

func (r *RecordingAlerter) Alert(count int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, AlertCall{Count: count, Message: message})
}

// Calls returns a copy of the recorded alerts.
func (r *RecordingAlerter) Calls() []AlertCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]AlertCall, len(r.calls))
	copy(out, r.calls)
	return out
}

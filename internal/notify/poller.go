package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/plateful/recipe-companion/internal/api"
)

// Alerter is the local notification surface. The host application
// implements it to raise a platform alert; tests substitute a fake.
type Alerter interface {
	// Alert raises a single local alert summarizing count new items.
	Alert(count int, message string)
}

// DefaultInterval is the polling interval used when none is configured.
const DefaultInterval = 30 * time.Second

// fetchTimeout is the maximum time allowed for a single fetch cycle.
const fetchTimeout = 30 * time.Second

// Poller periodically fetches the notification list and raises one
// local alert when previously unseen unread notifications appear. Ids
// surfaced once are never alerted again until ClearKnown. At most one
// polling loop is active per Poller.
//
// The loop is self-rescheduling: each cycle runs to completion before
// the next wait begins, so a slow fetch delays the following tick
// rather than overlapping it.
type Poller struct {
	svc     api.Service
	alerter Alerter
	logger  *slog.Logger

	mu         sync.Mutex
	interval   time.Duration
	known      map[string]struct{}
	stopCh     chan struct{}
	generation int
	token      string
	running    bool
}

// NewPoller creates a stopped Poller. Call Start to begin polling.
func NewPoller(
	svc api.Service,
	alerter Alerter,
	interval time.Duration,
	logger *slog.Logger,
) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		svc:      svc,
		alerter:  alerter,
		logger:   logger,
		interval: interval,
		known:    make(map[string]struct{}),
	}
}

// Start begins the polling loop with the given auth token. An empty
// token is a no-op: nothing is scheduled. If a loop is already running
// it is fully stopped first, so at most one timer is ever pending.
func (p *Poller) Start(token string) {
	if token == "" {
		p.logger.Debug("poller start skipped: empty token")
		return
	}
	p.Stop()

	p.mu.Lock()
	p.token = token
	p.running = true
	p.generation++
	gen := p.generation
	stopCh := make(chan struct{})
	p.stopCh = stopCh
	p.mu.Unlock()

	go p.loop(gen, token, stopCh)
}

// Stop prevents the next scheduled tick. A fetch already in flight is
// allowed to complete; its result is discarded.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	close(p.stopCh)
	p.stopCh = nil
	p.running = false
	p.generation++
}

// SetInterval changes the polling interval. A running loop is
// restarted, losing only the remainder of the current wait.
func (p *Poller) SetInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultInterval
	}

	p.mu.Lock()
	p.interval = d
	running := p.running
	token := p.token
	p.mu.Unlock()

	if running {
		p.Start(token)
	}
}

// Running reports whether a polling loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// ClearKnown forgets every surfaced notification id. Called on logout
// so a re-login is alerted for notifications the new session has not
// seen.
func (p *Poller) ClearKnown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.known = make(map[string]struct{})
}

// RunOnce performs a single fetch-and-diff cycle synchronously. The
// background loop runs it on every tick; it can also be invoked
// directly for an immediate check.
func (p *Poller) RunOnce(ctx context.Context, token string) {
	p.mu.Lock()
	gen := p.generation
	p.mu.Unlock()

	p.runCycle(ctx, gen, token)
}

// loop runs one cycle, then waits for the configured interval before
// the next. Rescheduling happens after the cycle completes, never
// concurrently with it.
func (p *Poller) loop(gen int, token string, stopCh chan struct{}) {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		p.runCycle(ctx, gen, token)
		cancel()

		timer := time.NewTimer(p.currentInterval())
		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// runCycle fetches the notification list and diffs it against the
// known-id set. Results that complete after Stop or a restart
// (generation mismatch) are discarded.
func (p *Poller) runCycle(ctx context.Context, gen int, token string) {
	records, err := p.svc.FetchNotifications(ctx, token)
	if err != nil {
		// No retry here; the next scheduled tick will try again.
		p.logger.Warn("notification fetch failed, skipping cycle", "error", err)
		return
	}

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		return
	}

	fresh := 0
	for _, n := range records {
		if _, seen := p.known[n.ID]; seen {
			continue
		}
		// A record that first appears already read is remembered but
		// not counted, so it can never be alerted later.
		if !n.Read {
			fresh++
		}
		p.known[n.ID] = struct{}{}
	}
	p.mu.Unlock()

	if fresh > 0 {
		p.alerter.Alert(fresh, alertMessage(fresh))
	}
}

func (p *Poller) currentInterval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// alertMessage summarizes a batch of new notifications in one line.
func alertMessage(count int) string {
	if count == 1 {
		return "You have 1 new notification"
	}
	return fmt.Sprintf("You have %d new notifications", count)
}

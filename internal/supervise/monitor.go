package supervise

import (
	"context"
	"sync"
	"time"

	"github.com/Paintersrp/reap/internal/inspect"
	"github.com/Paintersrp/reap/internal/metrics"
)

// DefaultInterval is the monitor cadence when none is configured.
const DefaultInterval = 3 * time.Second

// Snapshot is one periodic observation of the target process set.
type Snapshot struct {
	Taken   time.Time
	Targets []inspect.Record
}

// Session tracks an active monitor loop: its cadence, its cancellation
// handle, and the last snapshot taken.
type Session struct {
	interval time.Duration
	cancel   context.CancelFunc

	mu   sync.Mutex
	last Snapshot
}

// Interval returns the session cadence.
func (m *Session) Interval() time.Duration {
	return m.interval
}

// Last returns the most recent snapshot.
func (m *Session) Last() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Cancel stops the monitor loop.
func (m *Session) Cancel() {
	m.cancel()
}

func (m *Session) store(snap Snapshot) {
	m.mu.Lock()
	m.last = snap
	m.mu.Unlock()
}

// Monitor snapshots the target set immediately and then every interval,
// delivering each snapshot to sink, until ctx is cancelled. The ticker is
// always released on return; cancellation leaves no timer behind.
func (s *Supervisor) Monitor(ctx context.Context, interval time.Duration, sink func(Snapshot)) *Session {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	session := &Session{interval: interval, cancel: cancel}

	go func() {
		defer cancel()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.observe(ctx, session, sink)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.observe(ctx, session, sink)
			}
		}
	}()

	return session
}

// MonitorWait is Monitor for callers that want to block until cancellation.
func (s *Supervisor) MonitorWait(ctx context.Context, interval time.Duration, sink func(Snapshot)) {
	session := s.Monitor(ctx, interval, sink)
	defer session.Cancel()
	<-ctx.Done()
}

func (s *Supervisor) observe(ctx context.Context, session *Session, sink func(Snapshot)) {
	snap := Snapshot{Taken: time.Now(), Targets: s.List(ctx, true)}
	session.store(snap)
	metrics.SetMonitoredTargets(len(snap.Targets))
	if sink != nil {
		sink(snap)
	}
}

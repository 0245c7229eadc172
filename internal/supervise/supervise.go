// Package supervise exposes the supervisor's public contract: kill,
// graceful shutdown, bulk target termination, listing, and monitoring.
package supervise

import (
	"context"
	"fmt"
	"time"

	"github.com/Paintersrp/reap/internal/escalate"
	"github.com/Paintersrp/reap/internal/inspect"
)

// Event is one human-readable progress line emitted by a supervisor
// operation.
type Event struct {
	Timestamp time.Time
	PID       int
	Level     string
	Message   string
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithEmitter installs a sink for progress events.
func WithEmitter(emit func(Event)) Option {
	return func(s *Supervisor) {
		if emit != nil {
			s.emit = emit
		}
	}
}

// Supervisor orchestrates the inspector and escalator. It retains no
// mutable state between calls beyond an optional active monitor session.
type Supervisor struct {
	inspector inspect.Inspector
	escalator *escalate.Escalator
	emit      func(Event)
}

// New constructs a supervisor over the provided inspector and escalator.
func New(inspector inspect.Inspector, escalator *escalate.Escalator, opts ...Option) *Supervisor {
	s := &Supervisor{
		inspector: inspector,
		escalator: escalator,
		emit:      func(Event) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kill delivers a single signal with one verification pass and no
// escalation.
func (s *Supervisor) Kill(ctx context.Context, pid int, sig escalate.Signal) escalate.Result {
	s.eventf(pid, "info", "sending %s", sig)
	res := s.escalator.Kill(ctx, pid, sig)
	s.report(res)
	return res
}

// GracefulShutdown runs the bounded escalation loop: graceful signal,
// 500ms-cadence verification until the timeout budget is spent, then one
// forced kill.
func (s *Supervisor) GracefulShutdown(ctx context.Context, pid int, timeout time.Duration) escalate.Result {
	s.eventf(pid, "info", "graceful shutdown, budget %s", timeout)
	res := s.escalator.GracefulShutdown(ctx, pid, timeout)
	s.report(res)
	return res
}

// KillAllTargets enumerates target processes and kills them one at a time.
// Strictly sequential: parallel delivery risks signal storms against
// processes sharing a parent.
func (s *Supervisor) KillAllTargets(ctx context.Context, sig escalate.Signal) []escalate.Result {
	targets := s.List(ctx, true)
	if len(targets) == 0 {
		s.eventf(0, "info", "no target processes found")
		return nil
	}
	s.eventf(0, "info", "killing %d target process(es)", len(targets))
	results := make([]escalate.Result, 0, len(targets))
	for _, target := range targets {
		s.eventf(target.PID, "info", "target: %s", target.Command)
		results = append(results, s.Kill(ctx, target.PID, sig))
	}
	return results
}

// List snapshots the current process table, optionally filtered to target
// processes. An unavailable process table yields an empty snapshot.
func (s *Supervisor) List(ctx context.Context, targetsOnly bool) []inspect.Record {
	records := s.inspector.List(ctx)
	if !targetsOnly {
		return records
	}
	targets := make([]inspect.Record, 0, len(records))
	for _, rec := range records {
		if rec.Target {
			targets = append(targets, rec)
		}
	}
	return targets
}

func (s *Supervisor) report(res escalate.Result) {
	switch res.State {
	case escalate.StateNotFound:
		s.eventf(res.PID, "info", "no such process")
	case escalate.StateTerminated:
		switch {
		case res.Reused:
			s.eventf(res.PID, "info", "terminated (%s stage); pid reused by an unrelated process", res.Stage)
		case res.Stage == escalate.StageForced:
			s.eventf(res.PID, "info", "terminated by forced kill")
		default:
			s.eventf(res.PID, "info", "terminated")
		}
	case escalate.StateStillRunning:
		s.eventf(res.PID, "warn", "still running after %s", res.Stage)
	case escalate.StateFailed:
		s.eventf(res.PID, "error", "failed (%s stage): %v", res.Stage, res.Reason)
	}
}

func (s *Supervisor) eventf(pid int, level, format string, args ...any) {
	s.emit(Event{
		Timestamp: time.Now(),
		PID:       pid,
		Level:     level,
		Message:   fmt.Sprintf(format, args...),
	})
}

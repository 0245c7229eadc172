// Package escalate implements the termination state machine: send a signal,
// wait, verify through the process-identity check, and optionally escalate
// to a forced signal.
package escalate

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/Paintersrp/reap/internal/identity"
	"github.com/Paintersrp/reap/internal/inspect"
	"github.com/Paintersrp/reap/internal/metrics"
)

// ErrPermission reports that the OS refused signal delivery.
var ErrPermission = errors.New("permission denied")

// State is the resolved condition of a kill request.
type State string

const (
	// StateNotFound: the PID had no live process before any signal was
	// sent. Success for termination intent, but distinguishable from an
	// actual kill.
	StateNotFound State = "not-found"
	// StateTerminated: the original process is gone.
	StateTerminated State = "terminated"
	// StateStillRunning: the graceful signal was delivered but the same
	// process instance is still alive.
	StateStillRunning State = "still-running"
	// StateFailed: delivery was refused or the process survived SIGKILL.
	StateFailed State = "failed"
)

// Stage names which escalation step resolved the request.
type Stage string

const (
	StageGraceful Stage = "graceful"
	StageForced   Stage = "forced"
)

// Result describes the outcome of one kill or graceful-shutdown request.
type Result struct {
	PID    int
	State  State
	Stage  Stage
	Reused bool // the PID was reclaimed by an unrelated process
	Reason error
}

// Terminated reports whether the original process is confirmed gone.
func (r Result) Terminated() bool {
	return r.State == StateTerminated
}

const (
	// DefaultGraceWait is how long a delivered signal is given to take
	// effect before the first verification pass.
	DefaultGraceWait = time.Second
	// DefaultPollInterval is the graceful-shutdown verification cadence.
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultTimeout bounds a graceful shutdown before the forced signal.
	DefaultTimeout = 5 * time.Second
)

// Option configures an Escalator.
type Option func(*Escalator)

// WithGraceWait overrides the post-signal settle period.
func WithGraceWait(d time.Duration) Option {
	return func(e *Escalator) {
		if d > 0 {
			e.graceWait = d
		}
	}
}

// WithPollInterval overrides the graceful-shutdown polling cadence.
func WithPollInterval(d time.Duration) Option {
	return func(e *Escalator) {
		if d > 0 {
			e.pollInterval = d
		}
	}
}

// WithSendFunc replaces the signal delivery primitive.
func WithSendFunc(send func(pid int, sig Signal) error) Option {
	return func(e *Escalator) {
		if send != nil {
			e.send = send
		}
	}
}

// Escalator drives the termination state machine. Within one request the
// steps are strictly ordered: capture fingerprint, send, wait, verify,
// optionally escalate, verify. The pre-send fingerprint is the sole basis
// for the identity check, so the order is never reshuffled.
type Escalator struct {
	inspector    inspect.Inspector
	verifier     *identity.Verifier
	send         func(pid int, sig Signal) error
	graceWait    time.Duration
	pollInterval time.Duration
}

// New constructs an escalator over the provided inspector and verifier.
func New(inspector inspect.Inspector, verifier *identity.Verifier, opts ...Option) *Escalator {
	e := &Escalator{
		inspector:    inspector,
		verifier:     verifier,
		send:         defaultSend,
		graceWait:    DefaultGraceWait,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Kill delivers a single signal and runs one verification pass. It never
// escalates: a process that survives the signal resolves StillRunning.
func (e *Escalator) Kill(ctx context.Context, pid int, sig Signal) Result {
	stage := StageGraceful
	if sig == SignalKill {
		stage = StageForced
	}
	captured, res, ok := e.capture(ctx, pid)
	if !ok {
		return res
	}
	if res, ok := e.deliver(pid, sig, stage); !ok {
		return res
	}
	time.Sleep(e.graceWait)
	return e.verify(ctx, pid, captured, stage)
}

// GracefulShutdown delivers the graceful signal, polls for termination
// until the timeout budget is exhausted, then performs exactly one forced
// SIGKILL escalation with a final verification. The call always runs to
// completion bounded by its own timeout; it is intentionally not
// cancellable mid-flight.
func (e *Escalator) GracefulShutdown(ctx context.Context, pid int, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	captured, res, ok := e.capture(ctx, pid)
	if !ok {
		return res
	}
	if res, ok := e.deliver(pid, SignalTerm, StageGraceful); !ok {
		return res
	}

	deadline := time.Now().Add(timeout)
	for {
		wait := e.pollInterval
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
		if wait > 0 {
			time.Sleep(wait)
		}
		res := e.verify(ctx, pid, captured, StageGraceful)
		if res.State != StateStillRunning {
			return res
		}
		if !time.Now().Before(deadline) {
			break
		}
	}

	// Budget exhausted: one forced escalation, then a final verdict.
	if res, ok := e.deliver(pid, SignalKill, StageForced); !ok {
		return res
	}
	time.Sleep(e.graceWait)
	res = e.verify(ctx, pid, captured, StageForced)
	if res.State == StateStillRunning {
		// Surviving SIGKILL needs operator attention, never a retry loop.
		res.State = StateFailed
		res.Reason = fmt.Errorf("pid %d survived %s", pid, SignalKill)
	}
	return res
}

// capture records the pre-send fingerprint. A missing process resolves the
// request immediately as NotFound.
func (e *Escalator) capture(ctx context.Context, pid int) (time.Time, Result, bool) {
	rec, err := e.inspector.Inspect(ctx, pid)
	if err != nil {
		return time.Time{}, Result{PID: pid, State: StateNotFound}, false
	}
	return rec.StartedAt, Result{}, true
}

// deliver sends one signal and maps OS errors onto the outcome taxonomy.
// The returned bool is false when the request is already resolved. Only a
// delivery the OS accepted counts as sent.
func (e *Escalator) deliver(pid int, sig Signal, stage Stage) (Result, bool) {
	err := e.send(pid, sig)
	switch {
	case err == nil:
		metrics.AddSignalSent(sig.String())
		return Result{}, true
	case errors.Is(err, syscall.ESRCH):
		// Exited between capture and delivery: already terminated.
		metrics.AddTermination(string(stage))
		return Result{PID: pid, State: StateTerminated, Stage: stage}, false
	case errors.Is(err, syscall.EPERM):
		return Result{
			PID:    pid,
			State:  StateFailed,
			Stage:  stage,
			Reason: fmt.Errorf("send %s to pid %d: %w", sig, pid, ErrPermission),
		}, false
	default:
		return Result{
			PID:    pid,
			State:  StateFailed,
			Stage:  stage,
			Reason: fmt.Errorf("send %s to pid %d: %w", sig, pid, err),
		}, false
	}
}

// verify decides whether the original process instance is gone. The PID
// being occupied is not enough to call it alive: only a fingerprint match
// within tolerance counts. The fingerprint comparison uses the record from
// the single lookup here, so a process exiting mid-verification reads as
// gone on the next pass rather than as a pid reuse.
func (e *Escalator) verify(ctx context.Context, pid int, captured time.Time, stage Stage) Result {
	rec, err := e.inspector.Inspect(ctx, pid)
	if err != nil {
		metrics.AddTermination(string(stage))
		return Result{PID: pid, State: StateTerminated, Stage: stage}
	}
	if !e.verifier.Matches(rec.StartedAt, captured) {
		metrics.AddTermination(string(stage))
		return Result{PID: pid, State: StateTerminated, Stage: stage, Reused: true}
	}
	return Result{PID: pid, State: StateStillRunning, Stage: stage}
}

package escalate

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Paintersrp/reap/internal/identity"
	"github.com/Paintersrp/reap/internal/inspect"
	"github.com/Paintersrp/reap/internal/metrics"
)

// fakeTable is an in-memory process table shared by the inspector fake and
// the send hooks, so tests can script exits and pid reuse.
type fakeTable struct {
	mu   sync.Mutex
	recs map[int]inspect.Record
}

func newFakeTable(recs ...inspect.Record) *fakeTable {
	table := &fakeTable{recs: make(map[int]inspect.Record)}
	for _, rec := range recs {
		table.recs[rec.PID] = rec
	}
	return table
}

func (f *fakeTable) Inspect(ctx context.Context, pid int) (inspect.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[pid]
	if !ok {
		return inspect.Record{}, inspect.ErrNotFound
	}
	return rec, nil
}

func (f *fakeTable) List(ctx context.Context) []inspect.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	records := make([]inspect.Record, 0, len(f.recs))
	for _, rec := range f.recs {
		records = append(records, rec)
	}
	return records
}

func (f *fakeTable) remove(pid int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.recs, pid)
}

func (f *fakeTable) setStart(pid int, started time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.recs[pid]
	rec.PID = pid
	rec.StartedAt = started
	f.recs[pid] = rec
}

// sendRecorder captures delivered signals and delegates to a scripted hook.
type sendRecorder struct {
	mu   sync.Mutex
	sent []Signal
	hook func(pid int, sig Signal) error
}

func (r *sendRecorder) send(pid int, sig Signal) error {
	r.mu.Lock()
	r.sent = append(r.sent, sig)
	r.mu.Unlock()
	if r.hook != nil {
		return r.hook(pid, sig)
	}
	return nil
}

func (r *sendRecorder) signals() []Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Signal(nil), r.sent...)
}

func newTestEscalator(table *fakeTable, rec *sendRecorder) *Escalator {
	verifier := identity.New(table, 100*time.Millisecond)
	return New(table, verifier,
		WithGraceWait(10*time.Millisecond),
		WithPollInterval(25*time.Millisecond),
		WithSendFunc(rec.send),
	)
}

func TestKillMissingPIDIsNotFoundAndIdempotent(t *testing.T) {
	rec := &sendRecorder{}
	e := newTestEscalator(newFakeTable(), rec)

	first := e.Kill(context.Background(), 4242, SignalTerm)
	second := e.Kill(context.Background(), 4242, SignalTerm)

	if first.State != StateNotFound || second.State != StateNotFound {
		t.Fatalf("got states %s/%s, want not-found both times", first.State, second.State)
	}
	if len(rec.signals()) != 0 {
		t.Fatalf("no signal may be sent for a missing pid, got %v", rec.signals())
	}
}

func TestKillTerminatesCooperativeProcess(t *testing.T) {
	table := newFakeTable(inspect.Record{PID: 7, StartedAt: time.Now().Add(-time.Minute)})
	rec := &sendRecorder{}
	rec.hook = func(pid int, sig Signal) error {
		table.remove(pid)
		return nil
	}
	e := newTestEscalator(table, rec)

	res := e.Kill(context.Background(), 7, SignalTerm)
	if !res.Terminated() || res.Reused {
		t.Fatalf("got %+v, want clean termination", res)
	}
	if res.Stage != StageGraceful {
		t.Fatalf("got stage %s, want graceful", res.Stage)
	}
}

func TestKillDetectsPIDReuse(t *testing.T) {
	started := time.Now().Add(-time.Minute)
	table := newFakeTable(inspect.Record{PID: 7, StartedAt: started})
	rec := &sendRecorder{}
	rec.hook = func(pid int, sig Signal) error {
		// The target exits and an unrelated process claims the pid.
		table.setStart(pid, started.Add(time.Hour))
		return nil
	}
	e := newTestEscalator(table, rec)

	res := e.Kill(context.Background(), 7, SignalTerm)
	if !res.Terminated() {
		t.Fatalf("got %+v, want termination", res)
	}
	if !res.Reused {
		t.Fatal("expected the reused pid to be flagged")
	}
}

func TestKillNeverEscalates(t *testing.T) {
	table := newFakeTable(inspect.Record{PID: 7, StartedAt: time.Now()})
	rec := &sendRecorder{}
	e := newTestEscalator(table, rec)

	res := e.Kill(context.Background(), 7, SignalTerm)
	if res.State != StateStillRunning {
		t.Fatalf("got state %s, want still-running", res.State)
	}
	if got := rec.signals(); len(got) != 1 || got[0] != SignalTerm {
		t.Fatalf("bare kill sent %v, want exactly one SIGTERM", got)
	}
}

func TestKillRacedExitAtSendIsTerminated(t *testing.T) {
	table := newFakeTable(inspect.Record{PID: 7, StartedAt: time.Now()})
	rec := &sendRecorder{}
	rec.hook = func(pid int, sig Signal) error {
		return syscall.ESRCH
	}
	e := newTestEscalator(table, rec)

	if res := e.Kill(context.Background(), 7, SignalTerm); !res.Terminated() {
		t.Fatalf("got %+v, want termination for ESRCH at send", res)
	}
}

func TestKillPermissionDenied(t *testing.T) {
	table := newFakeTable(inspect.Record{PID: 7, StartedAt: time.Now()})
	rec := &sendRecorder{}
	rec.hook = func(pid int, sig Signal) error {
		return syscall.EPERM
	}
	e := newTestEscalator(table, rec)

	res := e.Kill(context.Background(), 7, SignalTerm)
	if res.State != StateFailed {
		t.Fatalf("got state %s, want failed", res.State)
	}
	if !errors.Is(res.Reason, ErrPermission) {
		t.Fatalf("got reason %v, want ErrPermission", res.Reason)
	}
}

func TestGracefulShutdownEscalatesExactlyOnce(t *testing.T) {
	table := newFakeTable(inspect.Record{PID: 9, StartedAt: time.Now()})
	rec := &sendRecorder{}
	rec.hook = func(pid int, sig Signal) error {
		if sig == SignalKill {
			table.remove(pid)
		}
		// SIGTERM is ignored.
		return nil
	}
	e := newTestEscalator(table, rec)

	res := e.GracefulShutdown(context.Background(), 9, 100*time.Millisecond)
	if !res.Terminated() {
		t.Fatalf("got %+v, want termination", res)
	}
	if res.Stage != StageForced {
		t.Fatalf("got stage %s, want forced", res.Stage)
	}

	sent := rec.signals()
	if len(sent) != 2 || sent[0] != SignalTerm || sent[1] != SignalKill {
		t.Fatalf("got signal sequence %v, want [SIGTERM SIGKILL]", sent)
	}
}

func TestGracefulShutdownFailsWhenProcessSurvivesForcedKill(t *testing.T) {
	table := newFakeTable(inspect.Record{PID: 9, StartedAt: time.Now()})
	rec := &sendRecorder{}
	e := newTestEscalator(table, rec)

	res := e.GracefulShutdown(context.Background(), 9, 80*time.Millisecond)
	if res.State != StateFailed {
		t.Fatalf("got state %s, want failed", res.State)
	}
	if res.Reason == nil || !strings.Contains(res.Reason.Error(), "survived") {
		t.Fatalf("got reason %v, want a survived-SIGKILL report", res.Reason)
	}
}

func TestGracefulShutdownPermissionDeniedSurfaces(t *testing.T) {
	table := newFakeTable(inspect.Record{PID: 9, StartedAt: time.Now()})
	rec := &sendRecorder{}
	rec.hook = func(pid int, sig Signal) error {
		return syscall.EPERM
	}
	e := newTestEscalator(table, rec)

	res := e.GracefulShutdown(context.Background(), 9, 80*time.Millisecond)
	if res.State != StateFailed || !errors.Is(res.Reason, ErrPermission) {
		t.Fatalf("got %+v, want permission failure", res)
	}
}

func TestGracefulShutdownBoundedWait(t *testing.T) {
	table := newFakeTable(inspect.Record{PID: 9, StartedAt: time.Now()})
	rec := &sendRecorder{}
	e := newTestEscalator(table, rec)

	start := time.Now()
	res := e.GracefulShutdown(context.Background(), 9, 200*time.Millisecond)
	elapsed := time.Since(start)

	if res.State != StateFailed {
		t.Fatalf("got state %s, want failed", res.State)
	}
	if elapsed < 200*time.Millisecond {
		t.Fatalf("escalated before the budget elapsed: %s", elapsed)
	}
	if elapsed > time.Second {
		t.Fatalf("graceful shutdown must stay bounded, took %s", elapsed)
	}
}

func TestGracefulShutdownMissingPID(t *testing.T) {
	rec := &sendRecorder{}
	e := newTestEscalator(newFakeTable(), rec)

	if res := e.GracefulShutdown(context.Background(), 9, 80*time.Millisecond); res.State != StateNotFound {
		t.Fatalf("got state %s, want not-found", res.State)
	}
}

// signalsSentTotal reads the current counter value for one signal label off
// the shared metrics registry.
func signalsSentTotal(t *testing.T, signal string) float64 {
	t.Helper()
	rec := httptest.NewRecorder()
	promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}).
		ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	prefix := fmt.Sprintf(`reap_signals_sent_total{signal=%q} `, signal)
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if strings.HasPrefix(line, prefix) {
			value, err := strconv.ParseFloat(strings.TrimPrefix(line, prefix), 64)
			if err != nil {
				t.Fatalf("parse counter line %q: %v", line, err)
			}
			return value
		}
	}
	return 0
}

func TestRefusedDeliveryIsNotCountedAsSent(t *testing.T) {
	table := newFakeTable(inspect.Record{PID: 7, StartedAt: time.Now()})
	rec := &sendRecorder{}
	rec.hook = func(pid int, sig Signal) error {
		return syscall.EPERM
	}
	e := newTestEscalator(table, rec)

	before := signalsSentTotal(t, "SIGTERM")
	e.Kill(context.Background(), 7, SignalTerm)
	if after := signalsSentTotal(t, "SIGTERM"); after != before {
		t.Fatalf("refused delivery moved the sent counter: %v -> %v", before, after)
	}

	rec.hook = nil
	e.Kill(context.Background(), 7, SignalTerm)
	if after := signalsSentTotal(t, "SIGTERM"); after != before+1 {
		t.Fatalf("accepted delivery must count exactly once: %v -> %v", before, after)
	}
}

func TestKillWithForcedSignalReportsForcedStage(t *testing.T) {
	table := newFakeTable(inspect.Record{PID: 7, StartedAt: time.Now().Add(-time.Minute)})
	rec := &sendRecorder{}
	rec.hook = func(pid int, sig Signal) error {
		table.remove(pid)
		return nil
	}
	e := newTestEscalator(table, rec)

	res := e.Kill(context.Background(), 7, SignalKill)
	if !res.Terminated() {
		t.Fatalf("got %+v, want termination", res)
	}
	if res.Stage != StageForced {
		t.Fatalf("got stage %s, want forced for a SIGKILL delivery", res.Stage)
	}
}

// vanishingTable serves a record for a fixed number of lookups and then
// reports the process gone, modelling an exit mid-verification.
type vanishingTable struct {
	*fakeTable
	mu       sync.Mutex
	lookups  int
	lastSeen int
}

func (v *vanishingTable) Inspect(ctx context.Context, pid int) (inspect.Record, error) {
	v.mu.Lock()
	v.lookups++
	gone := v.lookups > v.lastSeen
	v.mu.Unlock()
	if gone {
		return inspect.Record{}, inspect.ErrNotFound
	}
	return v.fakeTable.Inspect(ctx, pid)
}

func TestKillExitDuringVerificationIsNotReportedAsReuse(t *testing.T) {
	started := time.Now().Add(-time.Minute)
	// Lookup 1 is the fingerprint capture, lookup 2 the verification; the
	// process exits immediately after that.
	table := &vanishingTable{
		fakeTable: newFakeTable(inspect.Record{PID: 7, StartedAt: started}),
		lastSeen:  2,
	}
	rec := &sendRecorder{}
	verifier := identity.New(table, 100*time.Millisecond)
	e := New(table, verifier,
		WithGraceWait(10*time.Millisecond),
		WithPollInterval(25*time.Millisecond),
		WithSendFunc(rec.send),
	)

	res := e.Kill(context.Background(), 7, SignalTerm)
	if res.Reused {
		t.Fatalf("got %+v, a plain exit must not be reported as pid reuse", res)
	}
	if res.State != StateStillRunning {
		t.Fatalf("got state %s, want still-running from the single matching observation", res.State)
	}
}

func TestParseSignal(t *testing.T) {
	tests := []struct {
		in      string
		want    Signal
		wantErr bool
	}{
		{in: "", want: SignalTerm},
		{in: "SIGTERM", want: SignalTerm},
		{in: "term", want: SignalTerm},
		{in: "KILL", want: SignalKill},
		{in: "sigint", want: SignalInt},
		{in: "HUP", want: SignalHup},
		{in: "SIGSTOP", wantErr: true},
		{in: "9", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseSignal(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseSignal(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSignal(%q) returned error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSignal(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

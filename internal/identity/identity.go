// Package identity answers whether a PID still refers to the same OS
// process instance that was observed earlier. PID reuse makes bare PID
// equality meaningless across any suspension point.
package identity

import (
	"context"
	"time"

	"github.com/Paintersrp/reap/internal/inspect"
)

// DefaultTolerance absorbs rounding differences between start-time
// measurement methods.
const DefaultTolerance = 100 * time.Millisecond

// Verifier compares captured start fingerprints against the live process
// table.
type Verifier struct {
	inspector inspect.Inspector
	tolerance time.Duration
}

// New constructs a verifier. A non-positive tolerance falls back to
// DefaultTolerance.
func New(inspector inspect.Inspector, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{inspector: inspector, tolerance: tolerance}
}

// SameProcess reports whether pid still refers to the process whose start
// fingerprint was captured earlier. It returns false when the process is
// gone, when the PID has been reused by a different process, and when the
// live fingerprint cannot be determined: sameness is never asserted without
// positive evidence, because misattributing another process's liveness is
// worse than a spurious "already gone".
func (v *Verifier) SameProcess(ctx context.Context, pid int, captured time.Time) bool {
	rec, err := v.inspector.Inspect(ctx, pid)
	if err != nil {
		return false
	}
	return v.Matches(rec.StartedAt, captured)
}

// Matches compares a live start fingerprint against a captured one. Callers
// that already hold a fresh record use this directly so the decision rests
// on a single observation.
func (v *Verifier) Matches(live, captured time.Time) bool {
	if captured.IsZero() || live.IsZero() {
		return false
	}
	drift := live.Sub(captured)
	if drift < 0 {
		drift = -drift
	}
	return drift <= v.tolerance
}

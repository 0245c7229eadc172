package inspect

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports that a PID has no corresponding live process. Every
// failure mode of the underlying introspection tool collapses into this
// sentinel so callers can treat "already gone" and "cannot tell" uniformly.
var ErrNotFound = errors.New("process not found")

// Record describes one live process observed in the OS process table.
type Record struct {
	PID       int
	ParentPID int
	Command   string
	// StartedAt is the process start fingerprint. A bare PID is not a
	// durable identity; the pair (PID, StartedAt) is.
	StartedAt time.Time
	Target    bool
}

// Classifier decides whether a command line belongs to the supervised
// process class.
type Classifier interface {
	IsTarget(commandLine string) bool
}

// Inspector queries the OS process table. The concrete backend is selected
// once at construction time, never per call.
type Inspector interface {
	// Inspect returns the record for exactly one PID, or ErrNotFound if
	// the process has exited or the process table cannot be read.
	Inspect(ctx context.Context, pid int) (Record, error)

	// List enumerates every process on the host in one bulk query. Records
	// are classified before being returned. Introspection failures degrade
	// to an empty slice.
	List(ctx context.Context) []Record
}

package inspect

import (
	"errors"
	"strconv"
	"strings"
)

// statFields holds the pieces of /proc/<pid>/stat the inspector cares about.
type statFields struct {
	comm       string
	ppid       int
	startTicks uint64
}

// parseStat extracts comm, ppid, and starttime from a stat line. The comm
// field may itself contain spaces and parentheses, so everything before the
// last ')' belongs to it and the remaining fields are located relative to
// that delimiter rather than by absolute position.
func parseStat(raw string) (statFields, error) {
	open := strings.Index(raw, "(")
	close := strings.LastIndex(raw, ")")
	if open < 0 || close < open || close+2 > len(raw) {
		return statFields{}, errors.New("malformed stat line")
	}
	fields := strings.Fields(raw[close+1:])
	// After the comm delimiter: state ppid pgrp session tty tpgid flags
	// minflt cminflt majflt cmajflt utime stime cutime cstime priority
	// nice numthreads itrealvalue starttime. starttime is index 19.
	if len(fields) < 20 {
		return statFields{}, errors.New("truncated stat line")
	}
	ppid, err := strconv.Atoi(fields[1])
	if err != nil {
		return statFields{}, err
	}
	ticks, err := strconv.ParseUint(fields[19], 10, 64)
	if err != nil {
		return statFields{}, err
	}
	return statFields{
		comm:       raw[open+1 : close],
		ppid:       ppid,
		startTicks: ticks,
	}, nil
}

// commandFromCmdline renders a NUL-separated cmdline file as a single
// invocation string, falling back to the bracketed comm name for kernel
// threads with an empty cmdline.
func commandFromCmdline(cmdline []byte, comm string) string {
	cmd := strings.TrimSpace(strings.ReplaceAll(string(cmdline), "\x00", " "))
	if cmd == "" {
		return "[" + comm + "]"
	}
	return cmd
}

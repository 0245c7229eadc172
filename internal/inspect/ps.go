package inspect

import (
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// lstart produces tokens like "Mon Jan  2 15:04:05 2006". Fields collapses
// the double space, so the parse layout uses a single-space day.
const lstartLayout = "Mon Jan 2 15:04:05 2006"

// clockToken matches the HH:MM:SS-shaped token that ends the lstart block.
// Column layouts shift across OS versions, so fields are located by content
// pattern instead of positional offsets.
var clockToken = regexp.MustCompile(`^\d{1,2}:\d{2}:\d{2}$`)

// psInspector reads the process table through the BSD-style ps listing.
type psInspector struct {
	classifier Classifier
	run        func(ctx context.Context, args ...string) ([]byte, error)
}

func newPSInspector(classifier Classifier) *psInspector {
	return &psInspector{
		classifier: classifier,
		run: func(ctx context.Context, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, "ps", args...).Output()
		},
	}
}

func (p *psInspector) Inspect(ctx context.Context, pid int) (Record, error) {
	out, err := p.run(ctx, "-o", "pid=,ppid=,lstart=,command=", "-p", strconv.Itoa(pid))
	if err != nil {
		return Record{}, ErrNotFound
	}
	for _, line := range strings.Split(string(out), "\n") {
		rec, ok := parsePSLine(line)
		if !ok || rec.PID != pid {
			continue
		}
		if p.classifier != nil {
			rec.Target = p.classifier.IsTarget(rec.Command)
		}
		return rec, nil
	}
	return Record{}, ErrNotFound
}

func (p *psInspector) List(ctx context.Context) []Record {
	out, err := p.run(ctx, "ax", "-o", "pid=,ppid=,lstart=,command=")
	if err != nil {
		return nil
	}
	lines := strings.Split(string(out), "\n")
	records := make([]Record, 0, len(lines))
	for _, line := range lines {
		rec, ok := parsePSLine(line)
		if !ok {
			continue
		}
		if p.classifier != nil {
			rec.Target = p.classifier.IsTarget(rec.Command)
		}
		records = append(records, rec)
	}
	return records
}

// parsePSLine parses one "pid ppid lstart command" row. Malformed or
// truncated rows are skipped rather than surfaced as errors.
func parsePSLine(line string) (Record, bool) {
	fields := strings.Fields(line)
	if len(fields) < 8 {
		return Record{}, false
	}
	pid, err := strconv.Atoi(fields[0])
	if err != nil || pid <= 0 {
		return Record{}, false
	}
	ppid, err := strconv.Atoi(fields[1])
	if err != nil {
		return Record{}, false
	}

	clock := -1
	for i := 2; i < len(fields)-1; i++ {
		if clockToken.MatchString(fields[i]) {
			clock = i
			break
		}
	}
	// lstart spans [weekday month day HH:MM:SS year]; the clock token sits
	// fourth, followed by the year and then the command.
	if clock < 2 || clock+2 >= len(fields) {
		return Record{}, false
	}
	started, err := time.ParseInLocation(lstartLayout, strings.Join(fields[2:clock+2], " "), time.Local)
	if err != nil {
		return Record{}, false
	}

	return Record{
		PID:       pid,
		ParentPID: ppid,
		Command:   strings.Join(fields[clock+2:], " "),
		StartedAt: started,
	}, true
}

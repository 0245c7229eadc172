//go:build linux

package inspect

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/tklauser/go-sysconf"
)

// procInspector reads the process table from /proc. One readdir sweep plus
// two small file reads per entry; no subprocesses are spawned.
type procInspector struct {
	classifier Classifier
	root       string

	clockOnce sync.Once
	bootTime  time.Time
	ticksPerS float64
}

func newProcInspector(classifier Classifier) *procInspector {
	return &procInspector{classifier: classifier, root: "/proc"}
}

func (p *procInspector) Inspect(ctx context.Context, pid int) (Record, error) {
	if pid <= 0 {
		return Record{}, ErrNotFound
	}
	rec, err := p.read(ctx, pid)
	if err != nil {
		return Record{}, ErrNotFound
	}
	if p.classifier != nil {
		rec.Target = p.classifier.IsTarget(rec.Command)
	}
	return rec, nil
}

func (p *procInspector) List(ctx context.Context) []Record {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return nil
	}
	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		if ctx.Err() != nil {
			return records
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid <= 0 {
			continue
		}
		rec, err := p.read(ctx, pid)
		if err != nil {
			// Raced with process exit mid-sweep.
			continue
		}
		if p.classifier != nil {
			rec.Target = p.classifier.IsTarget(rec.Command)
		}
		records = append(records, rec)
	}
	return records
}

func (p *procInspector) read(ctx context.Context, pid int) (Record, error) {
	dir := filepath.Join(p.root, strconv.Itoa(pid))
	raw, err := os.ReadFile(filepath.Join(dir, "stat"))
	if err != nil {
		return Record{}, err
	}
	stat, err := parseStat(string(raw))
	if err != nil {
		return Record{}, err
	}

	// cmdline is best effort; a process may exit between the two reads.
	cmdline, _ := os.ReadFile(filepath.Join(dir, "cmdline"))

	boot, hz := p.clock(ctx)
	started := boot.Add(time.Duration(float64(stat.startTicks) / hz * float64(time.Second)))

	return Record{
		PID:       pid,
		ParentPID: stat.ppid,
		Command:   commandFromCmdline(cmdline, stat.comm),
		StartedAt: started,
	}, nil
}

// clock resolves the host boot time and the kernel clock tick rate once.
// The tick rate is queried from sysconf rather than assuming the common
// 100Hz default.
func (p *procInspector) clock(ctx context.Context) (time.Time, float64) {
	p.clockOnce.Do(func() {
		p.ticksPerS = 100
		if hz, err := sysconf.Sysconf(sysconf.SC_CLK_TCK); err == nil && hz > 0 {
			p.ticksPerS = float64(hz)
		}
		p.bootTime = time.Now()
		if boot, err := host.BootTimeWithContext(ctx); err == nil {
			p.bootTime = time.Unix(int64(boot), 0)
		}
	})
	return p.bootTime, p.ticksPerS
}

// New constructs the platform process inspector.
func New(classifier Classifier) Inspector {
	return newProcInspector(classifier)
}

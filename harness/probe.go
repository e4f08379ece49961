package harness

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Probe reads process-wide resource counters.
type Probe interface {
	// CPUTime returns user plus system CPU time consumed so far.
	CPUTime(ctx context.Context) (time.Duration, error)
	// RSS returns the current resident set size in bytes.
	RSS(ctx context.Context) (uint64, error)
}

// ProcessProbe reads counters for a single OS process.
type ProcessProbe struct {
	proc *process.Process
}

// NewProcessProbe returns a probe for the current process.
func NewProcessProbe(ctx context.Context) (*ProcessProbe, error) {
	pid := os.Getpid()
	if pid > math.MaxInt32 {
		return nil, fmt.Errorf("pid %d out of range", pid)
	}

	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil, fmt.Errorf("open process %d: %w", pid, err)
	}

	return &ProcessProbe{proc: proc}, nil
}

// CPUTime implements Probe. The reading has microsecond resolution on
// unix and falls back to the OS process times elsewhere.
func (p *ProcessProbe) CPUTime(ctx context.Context) (time.Duration, error) {
	return p.cpuTime(ctx)
}

// RSS implements Probe.
func (p *ProcessProbe) RSS(ctx context.Context) (uint64, error) {
	mem, err := p.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("read memory info: %w", err)
	}

	return mem.RSS, nil
}

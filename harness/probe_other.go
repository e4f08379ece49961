//go:build !unix

package harness

import (
	"context"
	"fmt"
	"time"
)

func (p *ProcessProbe) cpuTime(ctx context.Context) (time.Duration, error) {
	times, err := p.proc.TimesWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("read cpu times: %w", err)
	}

	secs := times.User + times.System

	return time.Duration(secs * float64(time.Second)), nil
}

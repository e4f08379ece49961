package harness

import (
	"fmt"

	"github.com/weiihann/headbench/stats"
)

// Summarize collapses the samples of one mode into a SummaryRecord by
// taking the trimmed mean of each metric independently.
func Summarize(mode Mode, samples []RawSample) (SummaryRecord, error) {
	if len(samples) == 0 {
		return SummaryRecord{}, fmt.Errorf(
			"summarize %s: no samples: %w", mode, stats.ErrInvalidInput,
		)
	}

	cpu := make([]int64, len(samples))
	mem := make([]int64, len(samples))
	elapsed := make([]int64, len(samples))

	for i, s := range samples {
		if s.Mode != mode {
			return SummaryRecord{}, fmt.Errorf(
				"summarize %s: sample %d has mode %s: %w",
				mode, i, s.Mode, stats.ErrInvalidInput,
			)
		}

		cpu[i] = s.CPUTimeMs
		mem[i] = s.MemoryDeltaKB
		elapsed[i] = s.ElapsedMs
	}

	rec := SummaryRecord{Mode: mode}

	var err error

	if rec.CPUTotal, err = stats.TrimmedMeanRound(cpu); err != nil {
		return SummaryRecord{}, fmt.Errorf("summarize %s cpu: %w", mode, err)
	}

	if rec.Memory, err = stats.TrimmedMeanRound(mem); err != nil {
		return SummaryRecord{}, fmt.Errorf("summarize %s memory: %w", mode, err)
	}

	if rec.TimeMs, err = stats.TrimmedMeanRound(elapsed); err != nil {
		return SummaryRecord{}, fmt.Errorf("summarize %s time: %w", mode, err)
	}

	return rec, nil
}

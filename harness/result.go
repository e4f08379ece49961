// Package harness runs browser launch trials and summarizes their cost.
package harness

import (
	"fmt"
	"strings"
)

// Mode selects whether the browser renders a visible UI.
type Mode string

const (
	Headful  Mode = "Headful"
	Headless Mode = "Headless"
)

// Modes returns the supported modes in the default run order.
func Modes() []Mode {
	return []Mode{Headful, Headless}
}

// ParseMode maps a case-insensitive mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "headful":
		return Headful, nil
	case "headless":
		return Headless, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// Headless reports whether the browser should be launched without a UI.
func (m Mode) Headless() bool {
	return m == Headless
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m == Headful || m == Headless
}

// RawSample is the measured cost of a single trial.
type RawSample struct {
	Mode          Mode  `json:"mode"`
	CPUTimeMs     int64 `json:"cpuTimeMs"`
	MemoryDeltaKB int64 `json:"memoryDeltaKb"`
	ElapsedMs     int64 `json:"elapsedMs"`
}

// SummaryRecord is the trimmed-mean cost of all trials for one mode.
type SummaryRecord struct {
	Mode     Mode  `json:"mode"`
	CPUTotal int64 `json:"cpuTotal"`
	Memory   int64 `json:"memory"`
	TimeMs   int64 `json:"timeMs"`
}

// ResultSet holds one SummaryRecord per mode in the order the modes ran.
type ResultSet []SummaryRecord

// Validate checks that the set is non-empty and holds at most one record
// per known mode.
func (s ResultSet) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("result set is empty")
	}

	seen := make(map[Mode]bool, len(s))

	for i, r := range s {
		if !r.Mode.Valid() {
			return fmt.Errorf("record %d: unknown mode %q", i, r.Mode)
		}

		if seen[r.Mode] {
			return fmt.Errorf("record %d: duplicate mode %s", i, r.Mode)
		}

		seen[r.Mode] = true
	}

	return nil
}

// Modes returns the modes of the set in order.
func (s ResultSet) Modes() []Mode {
	modes := make([]Mode, len(s))
	for i, r := range s {
		modes[i] = r.Mode
	}

	return modes
}

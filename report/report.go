// Package report formats benchmark summaries into comparison tables.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/weiihann/headbench/harness"
)

// Generate writes a markdown comparison table for the given results.
func Generate(w io.Writer, results harness.ResultSet) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to report")
	}

	fastestMs := findFastest(results)

	fmt.Fprintln(w, "## Launch Cost Results")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trimmed mean per mode (highest and lowest trial dropped).")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "| Mode | CPU Total | Memory | Elapsed | Relative |")
	fmt.Fprintln(w, "|------|-----------|--------|---------|----------|")

	for _, r := range results {
		relative := 1.0
		if fastestMs > 0 && r.TimeMs > 0 {
			relative = float64(r.TimeMs) / float64(fastestMs)
		}

		fmt.Fprintf(w, "| %s | %s | %s | %s | %.2fx |\n",
			r.Mode,
			formatMs(r.CPUTotal),
			formatKB(r.Memory),
			formatMs(r.TimeMs),
			relative,
		)
	}

	return nil
}

// GenerateJSON writes results as JSON to w.
func GenerateJSON(w io.Writer, results harness.ResultSet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(results)
}

func findFastest(results harness.ResultSet) int64 {
	fastest := int64(math.MaxInt64)
	for _, r := range results {
		if r.TimeMs > 0 && r.TimeMs < fastest {
			fastest = r.TimeMs
		}
	}

	if fastest == math.MaxInt64 {
		return 0
	}

	return fastest
}

func formatMs(ms int64) string {
	if ms > -1000 && ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}

	return fmt.Sprintf("%.2fs", float64(ms)/1000)
}

// formatKB renders a signed kilobyte count with a binary unit. Memory
// deltas can be negative.
func formatKB(kb int64) string {
	sign := ""
	if kb < 0 {
		sign = "-"
		kb = -kb
	}

	units := []string{"KB", "MB", "GB", "TB"}
	size := float64(kb)
	unit := 0

	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}

	formatted := fmt.Sprintf("%.1f", size)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimRight(formatted, ".")

	return sign + formatted + " " + units[unit]
}

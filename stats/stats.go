// Package stats reduces noisy benchmark samples to a single representative
// value.
package stats

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// ErrInvalidInput is returned when a statistic is requested over an empty
// or otherwise unusable sample set.
var ErrInvalidInput = errors.New("invalid input")

// Number is the set of sample types TrimmedMeanRound accepts.
type Number interface {
	~int | ~int32 | ~int64 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// TrimmedMeanRound returns the arithmetic mean of values rounded half away
// from zero. With more than two values, the smallest and largest are
// dropped first by sorted position, so duplicated extremes lose only one
// occurrence each. The input slice is not modified.
func TrimmedMeanRound[T Number](values []T) (int64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("trimmed mean of empty sample set: %w", ErrInvalidInput)
	}

	kept := make([]float64, len(values))
	for i, v := range values {
		kept[i] = float64(v)
	}

	if len(kept) > 2 {
		slices.Sort(kept)
		kept = kept[1 : len(kept)-1]
	}

	var sum float64
	for _, v := range kept {
		sum += v
	}

	mean := sum / float64(len(kept))
	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		return 0, fmt.Errorf("trimmed mean is not finite: %w", ErrInvalidInput)
	}

	return int64(math.Round(mean)), nil
}

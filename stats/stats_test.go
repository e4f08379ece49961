package stats

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimmedMeanRound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []int64
		want   int64
	}{
		{name: "single", values: []int64{10}, want: 10},
		{name: "pair uses plain mean", values: []int64{10, 20}, want: 15},
		{name: "pair rounds half away from zero", values: []int64{1, 2}, want: 2},
		{name: "extremes dropped wherever they sit", values: []int64{1, 100, 2, 3, 4}, want: 3},
		{name: "one duplicate extreme dropped", values: []int64{5, 5, 5, 5, 9}, want: 5},
		{name: "three values keep the median", values: []int64{7, 1, 1000}, want: 7},
		{name: "outlier suppressed", values: []int64{100, 120, 110, 500, 115}, want: 111},
		{name: "negative deltas", values: []int64{-10, -3, -4, -5, 2}, want: -4},
		{name: "negative half rounds away from zero", values: []int64{-1, -2}, want: -2},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := TrimmedMeanRound(tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTrimmedMeanRoundFloats(t *testing.T) {
	t.Parallel()

	got, err := TrimmedMeanRound([]float64{0.4, 2.5, 2.5, 9.9})
	require.NoError(t, err)
	assert.Equal(t, int64(3), got)
}

func TestTrimmedMeanRoundOrderInvariant(t *testing.T) {
	t.Parallel()

	perms := [][]int{
		{3, 9, 1, 4, 4},
		{9, 4, 4, 3, 1},
		{1, 3, 4, 4, 9},
		{4, 1, 9, 4, 3},
		{4, 4, 3, 1, 9},
	}

	want, err := TrimmedMeanRound(perms[0])
	require.NoError(t, err)

	for _, p := range perms[1:] {
		got, err := TrimmedMeanRound(p)
		require.NoError(t, err)
		assert.Equal(t, want, got, "permutation %v", p)
	}
}

func TestTrimmedMeanRoundDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	values := []int64{9, 1, 5}
	_, err := TrimmedMeanRound(values)
	require.NoError(t, err)
	assert.Equal(t, []int64{9, 1, 5}, values)
}

func TestTrimmedMeanRoundEmpty(t *testing.T) {
	t.Parallel()

	_, err := TrimmedMeanRound([]int64{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = TrimmedMeanRound[float64](nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

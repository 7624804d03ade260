package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elicita/delphi-engine/pkg/apperrors"
)

func TestToFuzzy_Table(t *testing.T) {
	expected := map[int]FuzzyVector{
		1: {A: 0, B: 0, C: 0.1},
		2: {A: 0, B: 0.1, C: 0.3},
		3: {A: 0.1, B: 0.3, C: 0.5},
		4: {A: 0.3, B: 0.5, C: 0.7},
		5: {A: 0.5, B: 0.7, C: 0.9},
		6: {A: 0.7, B: 0.9, C: 1},
		7: {A: 0.9, B: 1, C: 1},
	}

	for rating, want := range expected {
		got, err := ToFuzzy(rating)
		require.NoError(t, err)
		assert.Equal(t, want, got, "rating %d", rating)
	}
}

func TestToFuzzy_OrderedAndMonotonic(t *testing.T) {
	prev := FuzzyVector{}
	for rating := 1; rating <= 7; rating++ {
		v, err := ToFuzzy(rating)
		require.NoError(t, err)

		assert.LessOrEqual(t, v.A, v.B, "rating %d", rating)
		assert.LessOrEqual(t, v.B, v.C, "rating %d", rating)
		assert.GreaterOrEqual(t, v.A, 0.0, "rating %d", rating)
		assert.LessOrEqual(t, v.C, 1.0, "rating %d", rating)

		// Non-decreasing center across the scale.
		assert.GreaterOrEqual(t, v.B, prev.B, "rating %d", rating)
		prev = v
	}
}

func TestToFuzzy_RejectsOutOfRange(t *testing.T) {
	for _, rating := range []int{-1, 0, 8, 100} {
		_, err := ToFuzzy(rating)
		assert.ErrorIs(t, err, apperrors.ErrInvalidRating, "rating %d", rating)
	}
}

func TestFuzzyVector_Distance(t *testing.T) {
	v := FuzzyVector{A: 0.1, B: 0.3, C: 0.5}

	assert.Zero(t, v.Distance(v))

	// Uniform offset of 0.2 on each component gives exactly 0.2.
	other := FuzzyVector{A: 0.3, B: 0.5, C: 0.7}
	assert.InDelta(t, 0.2, v.Distance(other), 1e-9)
	assert.InDelta(t, v.Distance(other), other.Distance(v), 1e-9)
}

func TestMeanVector(t *testing.T) {
	_, ok := MeanVector(nil)
	assert.False(t, ok)

	mean, ok := MeanVector([]FuzzyVector{
		{A: 0, B: 0.1, C: 0.3},
		{A: 0.1, B: 0.3, C: 0.5},
	})
	require.True(t, ok)
	assert.InDelta(t, 0.05, mean.A, 1e-9)
	assert.InDelta(t, 0.2, mean.B, 1e-9)
	assert.InDelta(t, 0.4, mean.C, 1e-9)
}

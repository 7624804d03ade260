// Package models contains domain types for delphi-engine.
package models

import (
	"math"

	"github.com/elicita/delphi-engine/pkg/apperrors"
)

// FuzzyVector is a triangular fuzzy number (a, b, c) with 0 <= a <= b <= c <= 1.
// Immutable once created.
type FuzzyVector struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
}

// likertTable maps the 7-point Likert scale onto triangular fuzzy numbers.
// Index 0 corresponds to rating 1.
var likertTable = [7]FuzzyVector{
	{A: 0, B: 0, C: 0.1},
	{A: 0, B: 0.1, C: 0.3},
	{A: 0.1, B: 0.3, C: 0.5},
	{A: 0.3, B: 0.5, C: 0.7},
	{A: 0.5, B: 0.7, C: 0.9},
	{A: 0.7, B: 0.9, C: 1},
	{A: 0.9, B: 1, C: 1},
}

// ToFuzzy converts a Likert rating in [1,7] to its fuzzy vector.
// A rating of 0 means "not yet rated" and is rejected like any other
// out-of-range value, never mapped to (0,0,0).
func ToFuzzy(rating int) (FuzzyVector, error) {
	if rating < 1 || rating > 7 {
		return FuzzyVector{}, apperrors.ErrInvalidRating
	}
	return likertTable[rating-1], nil
}

// Distance returns the vertex distance between two triangular fuzzy numbers:
// sqrt(((a1-a2)^2 + (b1-b2)^2 + (c1-c2)^2) / 3).
func (v FuzzyVector) Distance(other FuzzyVector) float64 {
	da := v.A - other.A
	db := v.B - other.B
	dc := v.C - other.C
	return math.Sqrt((da*da + db*db + dc*dc) / 3)
}

// MeanVector returns the componentwise arithmetic mean of the given vectors.
// Returns the zero vector and false when the slice is empty.
func MeanVector(vectors []FuzzyVector) (FuzzyVector, bool) {
	if len(vectors) == 0 {
		return FuzzyVector{}, false
	}
	var sum FuzzyVector
	for _, v := range vectors {
		sum.A += v.A
		sum.B += v.B
		sum.C += v.C
	}
	n := float64(len(vectors))
	return FuzzyVector{A: sum.A / n, B: sum.B / n, C: sum.C / n}, true
}

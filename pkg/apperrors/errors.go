package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidRating   = errors.New("rating outside the 1..7 Likert scale")
	ErrStaleRoundWrite = errors.New("submission targets a round that is no longer current")
	ErrCaseClosed      = errors.New("case is closed")
	ErrAlreadyAnalyzed = errors.New("round has already been analyzed")
)

package models

import (
	"time"

	"github.com/google/uuid"
)

// Evaluation is one expert's Likert rating for a criterion, or for a
// technology x criterion cell, in a specific round. A nil TechnologyID marks
// a pure criterion-importance rating. At most one evaluation exists per
// (user, case, round, criterion, technology); resubmission within the
// current round overwrites, prior rounds are immutable history.
type Evaluation struct {
	ID           uuid.UUID  `json:"id"`
	CaseID       uuid.UUID  `json:"case_id"`
	UserID       uuid.UUID  `json:"user_id"`
	Round        int        `json:"round"`
	CriterionID  uuid.UUID  `json:"criterion_id"`
	TechnologyID *uuid.UUID `json:"technology_id,omitempty"`

	// Score is the raw 1..7 Likert value; the UI redisplays it.
	Score       int         `json:"score"`
	FuzzyVector FuzzyVector `json:"fuzzy_vector"`

	// NeedsReevaluation is set by round analysis on the round that produced
	// the evaluation and consumed by carry-forward into the next round.
	NeedsReevaluation bool `json:"needs_reevaluation"`

	CreatedAt time.Time `json:"created_at"`
}

// IsCriterionRating reports whether this is a criterion-importance rating
// rather than a technology performance cell.
func (e *Evaluation) IsCriterionRating() bool {
	return e.TechnologyID == nil
}

// TechCell identifies one technology x criterion cell of the rating matrix.
type TechCell struct {
	TechnologyID uuid.UUID `json:"technology_id"`
	CriterionID  uuid.UUID `json:"criterion_id"`
}

// ReevaluationSet lists the items an expert must re-rate in the current
// round: criteria and matrix cells that did not converge in the previous one.
type ReevaluationSet struct {
	Criteria   []uuid.UUID `json:"criteria"`
	TechMatrix []TechCell  `json:"tech_matrix"`
}

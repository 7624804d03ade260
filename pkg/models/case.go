package models

import (
	"time"

	"github.com/google/uuid"
)

// Case type constants.
const (
	CaseTypeInternal = "internal"
	CaseTypeExternal = "external"
)

// Case status constants. A case is open while rounds are running and closed
// once a round analysis passes. There is no un-closing operation.
const (
	CaseStatusOpen   = "open"
	CaseStatusClosed = "closed"
)

// Default convergence thresholds applied to new cases.
const (
	DefaultThresholdDistanceMean    = 1.0 / 6.0
	DefaultThresholdCriteriaPercent = 75.0
	DefaultThresholdTechPercent     = 75.0
)

// Case is one evaluation round-set: a set of technologies rated against
// weighted criteria by a panel of assigned experts.
type Case struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	CaseType    string    `json:"case_type"`
	Status      string    `json:"status"`
	ShowResults bool      `json:"show_results"`

	// CurrentRound starts at 1 and only ever advances via a failed analysis.
	CurrentRound int `json:"current_round"`

	ThresholdDistanceMean    float64 `json:"threshold_distance_mean"`
	ThresholdCriteriaPercent float64 `json:"threshold_criteria_percent"`
	ThresholdTechPercent     float64 `json:"threshold_tech_percent"`

	Criteria      []Criterion  `json:"criteria,omitempty"`
	Technologies  []Technology `json:"technologies,omitempty"`
	AssignedUsers []uuid.UUID  `json:"assigned_users,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsClosed reports whether the case accepts no further writes.
func (c *Case) IsClosed() bool {
	return c.Status == CaseStatusClosed
}

// Round describes one round of a case and whether it has been analyzed.
type Round struct {
	RoundNumber int  `json:"round_number"`
	Completed   bool `json:"completed"`
}

// Rounds returns the round history for the case. Every round below the
// current one was analyzed and failed; the current round is completed only
// once a passing analysis closed the case.
func (c *Case) Rounds() []Round {
	rounds := make([]Round, 0, c.CurrentRound)
	for n := 1; n <= c.CurrentRound; n++ {
		rounds = append(rounds, Round{
			RoundNumber: n,
			Completed:   n < c.CurrentRound || c.IsClosed(),
		})
	}
	return rounds
}

// Criterion belongs to exactly one case and is immutable after creation.
type Criterion struct {
	ID     uuid.UUID `json:"id"`
	CaseID uuid.UUID `json:"case_id"`
	Name   string    `json:"name"`
}

// Technology belongs to exactly one case and is immutable after creation.
type Technology struct {
	ID     uuid.UUID `json:"id"`
	CaseID uuid.UUID `json:"case_id"`
	Name   string    `json:"name"`
}

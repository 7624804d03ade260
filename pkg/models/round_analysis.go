package models

import (
	"time"

	"github.com/google/uuid"
)

// RoundAnalysis is the persisted outcome of analyzing one round of a case.
// Exactly one exists per (case, round_number); it is append-only history and
// never mutated after creation.
type RoundAnalysis struct {
	ID          uuid.UUID `json:"id"`
	CaseID      uuid.UUID `json:"case_id"`
	RoundNumber int       `json:"round_number"`

	CriteriaOKCount    int     `json:"criteria_ok_count"`
	CriteriaTotalCount int     `json:"criteria_total_count"`
	CriteriaOKPercent  float64 `json:"criteria_ok_percent"`
	CriteriaPassed     bool    `json:"criteria_passed"`

	TechOKCount    int     `json:"tech_ok_count"`
	TechTotalCount int     `json:"tech_total_count"`
	TechOKPercent  float64 `json:"tech_ok_percent"`
	TechPassed     bool    `json:"tech_passed"`

	CriteriaMeanDistanceValue float64 `json:"criteria_mean_distance_value"`
	CriteriaMeanDistanceOK    bool    `json:"criteria_mean_distance_ok"`
	TechMeanDistanceValue     float64 `json:"tech_mean_distance_value"`
	TechMeanDistanceOK        bool    `json:"tech_mean_distance_ok"`

	// MeanDistanceValue is the legacy combined field: the mean of per-item
	// group distances across criteria and tech cells together.
	MeanDistanceValue float64 `json:"mean_distance_value"`
	MeanDistanceOK    bool    `json:"mean_distance_ok"`

	// PassedAnalysis is true only when both percent thresholds and the
	// distance threshold pass; it closes the case.
	PassedAnalysis bool `json:"passed_analysis"`

	CreatedAt time.Time `json:"created_at"`
}

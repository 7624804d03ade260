// Package services contains the business logic of delphi-engine.
package services

import (
	"github.com/google/uuid"

	"github.com/elicita/delphi-engine/pkg/models"
)

// ItemStats holds the group statistics for one rated item: a criterion, or a
// technology x criterion cell.
type ItemStats struct {
	// Mean is the componentwise mean fuzzy vector across respondents.
	Mean models.FuzzyVector

	// MeanDistance is the mean of respondent distances to the group mean.
	MeanDistance float64

	// RespondentCount is the number of experts who rated the item.
	RespondentCount int

	// OK reports whether MeanDistance is within the case's distance threshold.
	OK bool
}

// RoundAggregation is the outcome of aggregating one round's evaluations.
// Items with zero submissions never appear in the maps, so they are excluded
// from numerator and denominator of every percent computation.
type RoundAggregation struct {
	Criteria  map[uuid.UUID]ItemStats
	TechCells map[models.TechCell]ItemStats
}

// AggregateRound computes per-item group statistics over all experts'
// evaluations of one round. threshold is the case's distance-to-mean
// threshold; items whose group mean distance exceeds it did not converge.
func AggregateRound(evals []*models.Evaluation, threshold float64) *RoundAggregation {
	criterionVectors := make(map[uuid.UUID][]models.FuzzyVector)
	cellVectors := make(map[models.TechCell][]models.FuzzyVector)

	for _, e := range evals {
		if e.IsCriterionRating() {
			criterionVectors[e.CriterionID] = append(criterionVectors[e.CriterionID], e.FuzzyVector)
			continue
		}
		cell := models.TechCell{TechnologyID: *e.TechnologyID, CriterionID: e.CriterionID}
		cellVectors[cell] = append(cellVectors[cell], e.FuzzyVector)
	}

	agg := &RoundAggregation{
		Criteria:  make(map[uuid.UUID]ItemStats, len(criterionVectors)),
		TechCells: make(map[models.TechCell]ItemStats, len(cellVectors)),
	}
	for id, vectors := range criterionVectors {
		agg.Criteria[id] = computeItemStats(vectors, threshold)
	}
	for cell, vectors := range cellVectors {
		agg.TechCells[cell] = computeItemStats(vectors, threshold)
	}
	return agg
}

func computeItemStats(vectors []models.FuzzyVector, threshold float64) ItemStats {
	mean, _ := models.MeanVector(vectors)

	var distanceSum float64
	for _, v := range vectors {
		distanceSum += v.Distance(mean)
	}
	meanDistance := distanceSum / float64(len(vectors))

	return ItemStats{
		Mean:            mean,
		MeanDistance:    meanDistance,
		RespondentCount: len(vectors),
		OK:              meanDistance <= threshold,
	}
}

// NonConvergedCriteria returns the criteria whose group distance exceeded the
// threshold; these must be re-rated in the next round.
func (a *RoundAggregation) NonConvergedCriteria() []uuid.UUID {
	var out []uuid.UUID
	for id, stats := range a.Criteria {
		if !stats.OK {
			out = append(out, id)
		}
	}
	return out
}

// NonConvergedTechCells returns the technology x criterion cells whose group
// distance exceeded the threshold.
func (a *RoundAggregation) NonConvergedTechCells() []models.TechCell {
	var out []models.TechCell
	for cell, stats := range a.TechCells {
		if !stats.OK {
			out = append(out, cell)
		}
	}
	return out
}

// CriteriaSummary returns (ok count, total count, ok percent, mean of group
// distances) over criteria with at least one submission. With no rated
// criteria the percent is 100 and the mean distance 0: an empty set cannot
// block convergence.
func (a *RoundAggregation) CriteriaSummary() (okCount, totalCount int, okPercent, meanDistance float64) {
	return summarize(mapValues(a.Criteria))
}

// TechSummary is CriteriaSummary over technology x criterion cells.
func (a *RoundAggregation) TechSummary() (okCount, totalCount int, okPercent, meanDistance float64) {
	return summarize(mapValues(a.TechCells))
}

// CombinedMeanDistance is the mean of per-item group distances across
// criteria and tech cells together (the legacy combined field).
func (a *RoundAggregation) CombinedMeanDistance() float64 {
	all := append(mapValues(a.Criteria), mapValues(a.TechCells)...)
	_, _, _, meanDistance := summarize(all)
	return meanDistance
}

func summarize(items []ItemStats) (okCount, totalCount int, okPercent, meanDistance float64) {
	totalCount = len(items)
	if totalCount == 0 {
		return 0, 0, 100, 0
	}

	var distanceSum float64
	for _, stats := range items {
		if stats.OK {
			okCount++
		}
		distanceSum += stats.MeanDistance
	}
	okPercent = float64(okCount) / float64(totalCount) * 100
	meanDistance = distanceSum / float64(totalCount)
	return okCount, totalCount, okPercent, meanDistance
}

func mapValues[K comparable](m map[K]ItemStats) []ItemStats {
	out := make([]ItemStats, 0, len(m))
	for _, stats := range m {
		out = append(out, stats)
	}
	return out
}

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elicita/delphi-engine/pkg/apperrors"
	"github.com/elicita/delphi-engine/pkg/models"
	"github.com/elicita/delphi-engine/pkg/repositories"
)

// AnalysisResult is returned by TriggerAnalysis.
type AnalysisResult struct {
	RoundNumber    int  `json:"round_number"`
	PassedAnalysis bool `json:"passed_analysis"`

	// NextRound is set when the analysis failed and a new round was opened.
	NextRound *int `json:"next_round,omitempty"`
}

// AnalysisService runs round convergence analysis and drives the round state
// machine: a passed analysis closes the case, a failed one opens the next
// round and carries converged evaluations forward.
type AnalysisService interface {
	// TriggerAnalysis analyzes the case's current round. Re-running it for an
	// already-analyzed round fails with ErrAlreadyAnalyzed; a concurrent race
	// produces one winner and one such failure, never two analyses.
	TriggerAnalysis(ctx context.Context, caseID uuid.UUID) (*AnalysisResult, error)

	// GetRoundAnalyses returns the case's analysis history ordered by round.
	GetRoundAnalyses(ctx context.Context, caseID uuid.UUID) ([]*models.RoundAnalysis, error)
}

type analysisService struct {
	caseRepo     repositories.CaseRepository
	evalRepo     repositories.EvaluationRepository
	analysisRepo repositories.RoundAnalysisRepository
	logger       *zap.Logger
}

// NewAnalysisService creates a new analysis service.
func NewAnalysisService(
	caseRepo repositories.CaseRepository,
	evalRepo repositories.EvaluationRepository,
	analysisRepo repositories.RoundAnalysisRepository,
	logger *zap.Logger,
) AnalysisService {
	return &analysisService{
		caseRepo:     caseRepo,
		evalRepo:     evalRepo,
		analysisRepo: analysisRepo,
		logger:       logger,
	}
}

func (s *analysisService) TriggerAnalysis(ctx context.Context, caseID uuid.UUID) (*AnalysisResult, error) {
	c, err := s.caseRepo.Get(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load case: %w", err)
	}
	if c.IsClosed() {
		return nil, apperrors.ErrCaseClosed
	}

	round := c.CurrentRound
	evals, err := s.evalRepo.ListForRound(ctx, caseID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to load evaluations: %w", err)
	}

	agg := AggregateRound(evals, c.ThresholdDistanceMean)
	analysis := buildRoundAnalysis(c, round, agg)

	// Atomic check-and-insert: persisting the row is the idempotency guard,
	// so it happens before any state transition.
	if err := s.analysisRepo.Create(ctx, analysis); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyAnalyzed) {
			return nil, apperrors.ErrAlreadyAnalyzed
		}
		return nil, fmt.Errorf("failed to persist round analysis: %w", err)
	}

	err = s.evalRepo.SetReevaluationFlags(ctx, caseID, round,
		agg.NonConvergedCriteria(), agg.NonConvergedTechCells())
	if err != nil {
		return nil, fmt.Errorf("failed to flag non-converged items: %w", err)
	}

	result := &AnalysisResult{
		RoundNumber:    round,
		PassedAnalysis: analysis.PassedAnalysis,
	}

	if analysis.PassedAnalysis {
		if err := s.caseRepo.Close(ctx, caseID); err != nil {
			return nil, fmt.Errorf("failed to close case: %w", err)
		}
		s.logger.Info("Case converged and closed",
			zap.String("case_id", caseID.String()),
			zap.Int("round", round))
		return result, nil
	}

	nextRound := round + 1
	if err := s.caseRepo.AdvanceRound(ctx, caseID, round, nextRound); err != nil {
		return nil, fmt.Errorf("failed to open next round: %w", err)
	}
	if err := s.evalRepo.CarryForward(ctx, caseID, round, nextRound); err != nil {
		return nil, fmt.Errorf("failed to carry forward evaluations: %w", err)
	}

	result.NextRound = &nextRound
	s.logger.Info("Round analysis failed thresholds, next round opened",
		zap.String("case_id", caseID.String()),
		zap.Int("round", round),
		zap.Int("next_round", nextRound),
		zap.Float64("criteria_ok_percent", analysis.CriteriaOKPercent),
		zap.Float64("tech_ok_percent", analysis.TechOKPercent),
		zap.Float64("mean_distance", analysis.MeanDistanceValue))

	return result, nil
}

// buildRoundAnalysis applies the case thresholds to the aggregated round
// statistics. passed_analysis requires both percent thresholds and the
// combined distance threshold to pass.
func buildRoundAnalysis(c *models.Case, round int, agg *RoundAggregation) *models.RoundAnalysis {
	criteriaOK, criteriaTotal, criteriaPercent, criteriaMeanDistance := agg.CriteriaSummary()
	techOK, techTotal, techPercent, techMeanDistance := agg.TechSummary()
	combined := agg.CombinedMeanDistance()

	analysis := &models.RoundAnalysis{
		CaseID:      c.ID,
		RoundNumber: round,

		CriteriaOKCount:    criteriaOK,
		CriteriaTotalCount: criteriaTotal,
		CriteriaOKPercent:  criteriaPercent,
		CriteriaPassed:     criteriaPercent >= c.ThresholdCriteriaPercent,

		TechOKCount:    techOK,
		TechTotalCount: techTotal,
		TechOKPercent:  techPercent,
		TechPassed:     techPercent >= c.ThresholdTechPercent,

		CriteriaMeanDistanceValue: criteriaMeanDistance,
		CriteriaMeanDistanceOK:    criteriaMeanDistance <= c.ThresholdDistanceMean,
		TechMeanDistanceValue:     techMeanDistance,
		TechMeanDistanceOK:        techMeanDistance <= c.ThresholdDistanceMean,

		MeanDistanceValue: combined,
		MeanDistanceOK:    combined <= c.ThresholdDistanceMean,
	}
	analysis.PassedAnalysis = analysis.CriteriaPassed && analysis.TechPassed && analysis.MeanDistanceOK
	return analysis
}

func (s *analysisService) GetRoundAnalyses(ctx context.Context, caseID uuid.UUID) ([]*models.RoundAnalysis, error) {
	if _, err := s.caseRepo.Get(ctx, caseID); err != nil {
		return nil, fmt.Errorf("failed to load case: %w", err)
	}
	return s.analysisRepo.ListByCase(ctx, caseID)
}

// Ensure analysisService implements AnalysisService at compile time.
var _ AnalysisService = (*analysisService)(nil)

package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elicita/delphi-engine/pkg/apperrors"
	"github.com/elicita/delphi-engine/pkg/jsonutil"
	"github.com/elicita/delphi-engine/pkg/models"
	"github.com/elicita/delphi-engine/pkg/repositories"
)

// EvaluationSubmission is one item of a batch submission.
type EvaluationSubmission struct {
	UserID       uuid.UUID  `json:"user_id"`
	CriterionID  uuid.UUID  `json:"criterion_id"`
	TechnologyID *uuid.UUID `json:"technology_id,omitempty"`
	Score        int        `json:"score"`
	Round        int        `json:"round"`
}

// UnmarshalJSON tolerates scores sent as quoted numbers, which some survey
// clients produce.
func (s *EvaluationSubmission) UnmarshalJSON(data []byte) error {
	type alias EvaluationSubmission
	aux := struct {
		Score json.RawMessage `json:"score"`
		*alias
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	score, err := jsonutil.FlexibleIntValue(aux.Score)
	if err != nil {
		return fmt.Errorf("invalid score: %w", err)
	}
	s.Score = score
	return nil
}

// RejectedSubmission pairs a rejected item with the reason it was refused.
type RejectedSubmission struct {
	Submission EvaluationSubmission `json:"submission"`
	Reason     string               `json:"reason"`
}

// SubmitResult reports item-level granularity for a batch: valid items are
// stored, offending items are rejected individually without blocking the rest.
type SubmitResult struct {
	Accepted []*models.Evaluation `json:"accepted"`
	Rejected []RejectedSubmission `json:"rejected"`
}

// UserProgress reports how far one expert has come in the current round.
type UserProgress struct {
	UserID    uuid.UUID `json:"user_id"`
	Submitted int       `json:"submitted"`
	Total     int       `json:"total"`
	Complete  bool      `json:"complete"`
}

// EvaluationService manages expert rating submissions.
type EvaluationService interface {
	// SubmitEvaluations validates and stores a batch of ratings for a case.
	// Each item is independently validated and fuzzy-mapped; resubmission
	// within the current round overwrites (last write wins). The whole batch
	// fails only when the case is unknown or closed.
	SubmitEvaluations(ctx context.Context, caseID uuid.UUID, items []EvaluationSubmission) (*SubmitResult, error)

	// ListForUserRound returns one expert's evaluations for a round.
	ListForUserRound(ctx context.Context, caseID, userID uuid.UUID, round int) ([]*models.Evaluation, error)

	// GetReevaluationSet returns the items the expert must re-rate in the
	// case's current round: everything flagged by the previous round's
	// analysis. Empty in round 1 and for converged items.
	GetReevaluationSet(ctx context.Context, caseID, userID uuid.UUID) (*models.ReevaluationSet, error)

	// GetProgress reports per assigned expert how many items of the current
	// round have been submitted.
	GetProgress(ctx context.Context, caseID uuid.UUID) ([]UserProgress, error)
}

type evaluationService struct {
	caseRepo repositories.CaseRepository
	evalRepo repositories.EvaluationRepository
	logger   *zap.Logger
}

// NewEvaluationService creates a new evaluation service.
func NewEvaluationService(
	caseRepo repositories.CaseRepository,
	evalRepo repositories.EvaluationRepository,
	logger *zap.Logger,
) EvaluationService {
	return &evaluationService{
		caseRepo: caseRepo,
		evalRepo: evalRepo,
		logger:   logger,
	}
}

func (s *evaluationService) SubmitEvaluations(ctx context.Context, caseID uuid.UUID, items []EvaluationSubmission) (*SubmitResult, error) {
	c, err := s.caseRepo.Get(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load case: %w", err)
	}
	if c.IsClosed() {
		return nil, apperrors.ErrCaseClosed
	}

	criteria := make(map[uuid.UUID]bool, len(c.Criteria))
	for _, cr := range c.Criteria {
		criteria[cr.ID] = true
	}
	technologies := make(map[uuid.UUID]bool, len(c.Technologies))
	for _, t := range c.Technologies {
		technologies[t.ID] = true
	}
	assigned := make(map[uuid.UUID]bool, len(c.AssignedUsers))
	for _, u := range c.AssignedUsers {
		assigned[u] = true
	}

	result := &SubmitResult{}
	for _, item := range items {
		if reason := s.validateSubmission(c, item, criteria, technologies, assigned); reason != "" {
			result.Rejected = append(result.Rejected, RejectedSubmission{Submission: item, Reason: reason})
			continue
		}

		vector, err := models.ToFuzzy(item.Score)
		if err != nil {
			result.Rejected = append(result.Rejected, RejectedSubmission{Submission: item, Reason: err.Error()})
			continue
		}

		eval := &models.Evaluation{
			CaseID:       caseID,
			UserID:       item.UserID,
			Round:        item.Round,
			CriterionID:  item.CriterionID,
			TechnologyID: item.TechnologyID,
			Score:        item.Score,
			FuzzyVector:  vector,
		}
		if err := s.evalRepo.Upsert(ctx, eval); err != nil {
			return nil, fmt.Errorf("failed to store evaluation: %w", err)
		}
		result.Accepted = append(result.Accepted, eval)
	}

	s.logger.Info("Evaluations submitted",
		zap.String("case_id", caseID.String()),
		zap.Int("accepted", len(result.Accepted)),
		zap.Int("rejected", len(result.Rejected)))

	return result, nil
}

// validateSubmission returns an empty string for a valid item, otherwise the
// rejection reason. Score validity is checked separately by the fuzzy mapper.
func (s *evaluationService) validateSubmission(c *models.Case, item EvaluationSubmission, criteria, technologies, assigned map[uuid.UUID]bool) string {
	if item.Round != c.CurrentRound {
		return apperrors.ErrStaleRoundWrite.Error()
	}
	if !assigned[item.UserID] {
		return "user is not assigned to this case"
	}
	if !criteria[item.CriterionID] {
		return "unknown criterion for this case"
	}
	if item.TechnologyID != nil && !technologies[*item.TechnologyID] {
		return "unknown technology for this case"
	}
	return ""
}

func (s *evaluationService) ListForUserRound(ctx context.Context, caseID, userID uuid.UUID, round int) ([]*models.Evaluation, error) {
	if _, err := s.caseRepo.Get(ctx, caseID); err != nil {
		return nil, fmt.Errorf("failed to load case: %w", err)
	}
	return s.evalRepo.ListForUserRound(ctx, caseID, userID, round)
}

func (s *evaluationService) GetReevaluationSet(ctx context.Context, caseID, userID uuid.UUID) (*models.ReevaluationSet, error) {
	c, err := s.caseRepo.Get(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load case: %w", err)
	}

	set := &models.ReevaluationSet{
		Criteria:   []uuid.UUID{},
		TechMatrix: []models.TechCell{},
	}

	// Round 1 has no analyzed predecessor; nothing needs re-rating yet.
	if c.CurrentRound <= 1 {
		return set, nil
	}

	flagged, err := s.evalRepo.ListFlagged(ctx, caseID, userID, c.CurrentRound-1)
	if err != nil {
		return nil, fmt.Errorf("failed to load flagged evaluations: %w", err)
	}

	seenCriteria := make(map[uuid.UUID]bool)
	seenCells := make(map[models.TechCell]bool)
	for _, e := range flagged {
		if e.IsCriterionRating() {
			if !seenCriteria[e.CriterionID] {
				seenCriteria[e.CriterionID] = true
				set.Criteria = append(set.Criteria, e.CriterionID)
			}
			continue
		}
		cell := models.TechCell{TechnologyID: *e.TechnologyID, CriterionID: e.CriterionID}
		if !seenCells[cell] {
			seenCells[cell] = true
			set.TechMatrix = append(set.TechMatrix, cell)
		}
	}

	return set, nil
}

func (s *evaluationService) GetProgress(ctx context.Context, caseID uuid.UUID) ([]UserProgress, error) {
	c, err := s.caseRepo.Get(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load case: %w", err)
	}

	evals, err := s.evalRepo.ListForRound(ctx, caseID, c.CurrentRound)
	if err != nil {
		return nil, fmt.Errorf("failed to load evaluations: %w", err)
	}

	counts := make(map[uuid.UUID]int)
	for _, e := range evals {
		counts[e.UserID]++
	}

	// One rating per criterion plus one per technology x criterion cell.
	total := len(c.Criteria) + len(c.Criteria)*len(c.Technologies)

	progress := make([]UserProgress, 0, len(c.AssignedUsers))
	for _, userID := range c.AssignedUsers {
		submitted := counts[userID]
		progress = append(progress, UserProgress{
			UserID:    userID,
			Submitted: submitted,
			Total:     total,
			Complete:  total > 0 && submitted >= total,
		})
	}
	return progress, nil
}

// Ensure evaluationService implements EvaluationService at compile time.
var _ EvaluationService = (*evaluationService)(nil)

package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elicita/delphi-engine/pkg/apperrors"
	"github.com/elicita/delphi-engine/pkg/models"
	"github.com/elicita/delphi-engine/pkg/repositories"
)

// CreateCaseInput carries everything needed to set up a new case. Criteria
// and technologies are created with the case and immutable afterwards.
type CreateCaseInput struct {
	Name          string      `json:"name"`
	CaseType      string      `json:"case_type"`
	ShowResults   bool        `json:"show_results"`
	Criteria      []string    `json:"criteria"`
	Technologies  []string    `json:"technologies"`
	AssignedUsers []uuid.UUID `json:"assigned_users"`
}

// ThresholdsInput carries a threshold update. Values take effect on the next
// analysis, never retroactively.
type ThresholdsInput struct {
	ThresholdDistanceMean    float64 `json:"threshold_distance_mean"`
	ThresholdCriteriaPercent float64 `json:"threshold_criteria_percent"`
	ThresholdTechPercent     float64 `json:"threshold_tech_percent"`
}

// UpdateCaseInput carries the mutable case fields.
type UpdateCaseInput struct {
	Name        string `json:"name"`
	CaseType    string `json:"case_type"`
	ShowResults bool   `json:"show_results"`
}

// CaseService manages case lifecycle and configuration.
type CaseService interface {
	CreateCase(ctx context.Context, input CreateCaseInput) (*models.Case, error)
	GetCase(ctx context.Context, id uuid.UUID) (*models.Case, error)
	ListCases(ctx context.Context, status string) ([]*models.Case, error)
	UpdateCase(ctx context.Context, id uuid.UUID, input UpdateCaseInput) (*models.Case, error)
	UpdateThresholds(ctx context.Context, id uuid.UUID, input ThresholdsInput) error
	AssignUsers(ctx context.Context, id uuid.UUID, userIDs []uuid.UUID) error
	DeleteCase(ctx context.Context, id uuid.UUID) error
}

type caseService struct {
	caseRepo repositories.CaseRepository
	logger   *zap.Logger
}

// NewCaseService creates a new case service.
func NewCaseService(caseRepo repositories.CaseRepository, logger *zap.Logger) CaseService {
	return &caseService{caseRepo: caseRepo, logger: logger}
}

func (s *caseService) CreateCase(ctx context.Context, input CreateCaseInput) (*models.Case, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("case name is required: %w", apperrors.ErrConflict)
	}
	if input.CaseType != models.CaseTypeInternal && input.CaseType != models.CaseTypeExternal {
		return nil, fmt.Errorf("case_type must be internal or external: %w", apperrors.ErrConflict)
	}
	if len(input.Criteria) == 0 {
		return nil, fmt.Errorf("at least one criterion is required: %w", apperrors.ErrConflict)
	}

	c := &models.Case{
		Name:          input.Name,
		CaseType:      input.CaseType,
		ShowResults:   input.ShowResults,
		AssignedUsers: input.AssignedUsers,
	}
	for _, name := range input.Criteria {
		c.Criteria = append(c.Criteria, models.Criterion{Name: name})
	}
	for _, name := range input.Technologies {
		c.Technologies = append(c.Technologies, models.Technology{Name: name})
	}

	if err := s.caseRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("Case created",
		zap.String("case_id", c.ID.String()),
		zap.String("case_type", c.CaseType),
		zap.Int("criteria", len(c.Criteria)),
		zap.Int("technologies", len(c.Technologies)),
		zap.Int("assigned_users", len(c.AssignedUsers)))

	return c, nil
}

func (s *caseService) GetCase(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	return s.caseRepo.Get(ctx, id)
}

func (s *caseService) ListCases(ctx context.Context, status string) ([]*models.Case, error) {
	if status != "" && status != models.CaseStatusOpen && status != models.CaseStatusClosed {
		return nil, fmt.Errorf("unknown status filter %q: %w", status, apperrors.ErrConflict)
	}
	return s.caseRepo.List(ctx, status)
}

func (s *caseService) UpdateCase(ctx context.Context, id uuid.UUID, input UpdateCaseInput) (*models.Case, error) {
	c, err := s.caseRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.IsClosed() {
		return nil, apperrors.ErrCaseClosed
	}
	if input.CaseType != models.CaseTypeInternal && input.CaseType != models.CaseTypeExternal {
		return nil, fmt.Errorf("case_type must be internal or external: %w", apperrors.ErrConflict)
	}
	if input.Name == "" {
		return nil, fmt.Errorf("case name is required: %w", apperrors.ErrConflict)
	}

	c.Name = input.Name
	c.CaseType = input.CaseType
	c.ShowResults = input.ShowResults

	if err := s.caseRepo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *caseService) UpdateThresholds(ctx context.Context, id uuid.UUID, input ThresholdsInput) error {
	c, err := s.caseRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.IsClosed() {
		return apperrors.ErrCaseClosed
	}

	if input.ThresholdDistanceMean <= 0 || input.ThresholdDistanceMean > 1 {
		return fmt.Errorf("threshold_distance_mean must be in (0,1]: %w", apperrors.ErrConflict)
	}
	if input.ThresholdCriteriaPercent < 0 || input.ThresholdCriteriaPercent > 100 {
		return fmt.Errorf("threshold_criteria_percent must be in [0,100]: %w", apperrors.ErrConflict)
	}
	if input.ThresholdTechPercent < 0 || input.ThresholdTechPercent > 100 {
		return fmt.Errorf("threshold_tech_percent must be in [0,100]: %w", apperrors.ErrConflict)
	}

	return s.caseRepo.UpdateThresholds(ctx, id,
		input.ThresholdDistanceMean, input.ThresholdCriteriaPercent, input.ThresholdTechPercent)
}

func (s *caseService) AssignUsers(ctx context.Context, id uuid.UUID, userIDs []uuid.UUID) error {
	c, err := s.caseRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.IsClosed() {
		return apperrors.ErrCaseClosed
	}
	if len(userIDs) == 0 {
		return nil
	}
	return s.caseRepo.AssignUsers(ctx, id, userIDs)
}

func (s *caseService) DeleteCase(ctx context.Context, id uuid.UUID) error {
	if err := s.caseRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Case deleted", zap.String("case_id", id.String()))
	return nil
}

// Ensure caseService implements CaseService at compile time.
var _ CaseService = (*caseService)(nil)

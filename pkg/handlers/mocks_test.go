package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/elicita/delphi-engine/pkg/models"
	"github.com/elicita/delphi-engine/pkg/services"
)

// mockCaseService implements services.CaseService for handler tests.
type mockCaseService struct {
	created       *models.Case
	createErr     error
	getCase       *models.Case
	getErr        error
	cases         []*models.Case
	listErr       error
	updated       *models.Case
	updateErr     error
	thresholdsErr error
	assignErr     error
	deleteErr     error

	lastStatus string
}

func (m *mockCaseService) CreateCase(ctx context.Context, input services.CreateCaseInput) (*models.Case, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.created, nil
}

func (m *mockCaseService) GetCase(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.getCase, nil
}

func (m *mockCaseService) ListCases(ctx context.Context, status string) ([]*models.Case, error) {
	m.lastStatus = status
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.cases, nil
}

func (m *mockCaseService) UpdateCase(ctx context.Context, id uuid.UUID, input services.UpdateCaseInput) (*models.Case, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return m.updated, nil
}

func (m *mockCaseService) UpdateThresholds(ctx context.Context, id uuid.UUID, input services.ThresholdsInput) error {
	return m.thresholdsErr
}

func (m *mockCaseService) AssignUsers(ctx context.Context, id uuid.UUID, userIDs []uuid.UUID) error {
	return m.assignErr
}

func (m *mockCaseService) DeleteCase(ctx context.Context, id uuid.UUID) error {
	return m.deleteErr
}

var _ services.CaseService = (*mockCaseService)(nil)

// mockEvaluationService implements services.EvaluationService for handler tests.
type mockEvaluationService struct {
	submitResult *services.SubmitResult
	submitErr    error
	evals        []*models.Evaluation
	listErr      error
	reevalSet    *models.ReevaluationSet
	reevalErr    error
	progress     []services.UserProgress
	progressErr  error

	lastRound int
}

func (m *mockEvaluationService) SubmitEvaluations(ctx context.Context, caseID uuid.UUID, items []services.EvaluationSubmission) (*services.SubmitResult, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return m.submitResult, nil
}

func (m *mockEvaluationService) ListForUserRound(ctx context.Context, caseID, userID uuid.UUID, round int) ([]*models.Evaluation, error) {
	m.lastRound = round
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.evals, nil
}

func (m *mockEvaluationService) GetReevaluationSet(ctx context.Context, caseID, userID uuid.UUID) (*models.ReevaluationSet, error) {
	if m.reevalErr != nil {
		return nil, m.reevalErr
	}
	return m.reevalSet, nil
}

func (m *mockEvaluationService) GetProgress(ctx context.Context, caseID uuid.UUID) ([]services.UserProgress, error) {
	if m.progressErr != nil {
		return nil, m.progressErr
	}
	return m.progress, nil
}

var _ services.EvaluationService = (*mockEvaluationService)(nil)

// mockAnalysisService implements services.AnalysisService for handler tests.
type mockAnalysisService struct {
	result     *services.AnalysisResult
	triggerErr error
	analyses   []*models.RoundAnalysis
	listErr    error
}

func (m *mockAnalysisService) TriggerAnalysis(ctx context.Context, caseID uuid.UUID) (*services.AnalysisResult, error) {
	if m.triggerErr != nil {
		return nil, m.triggerErr
	}
	return m.result, nil
}

func (m *mockAnalysisService) GetRoundAnalyses(ctx context.Context, caseID uuid.UUID) ([]*models.RoundAnalysis, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.analyses, nil
}

var _ services.AnalysisService = (*mockAnalysisService)(nil)

package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/elicita/delphi-engine/pkg/apperrors"
	"github.com/elicita/delphi-engine/pkg/models"
	"github.com/elicita/delphi-engine/pkg/repositories"
)

// ============================================================================
// Mock Implementations for Service Tests
// ============================================================================

type mockCaseRepo struct {
	mu    sync.Mutex
	cases map[uuid.UUID]*models.Case
}

func newMockCaseRepo() *mockCaseRepo {
	return &mockCaseRepo{cases: make(map[uuid.UUID]*models.Case)}
}

func (m *mockCaseRepo) Create(ctx context.Context, c *models.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = models.CaseStatusOpen
	}
	if c.CurrentRound == 0 {
		c.CurrentRound = 1
	}
	if c.ThresholdDistanceMean == 0 {
		c.ThresholdDistanceMean = models.DefaultThresholdDistanceMean
	}
	if c.ThresholdCriteriaPercent == 0 {
		c.ThresholdCriteriaPercent = models.DefaultThresholdCriteriaPercent
	}
	if c.ThresholdTechPercent == 0 {
		c.ThresholdTechPercent = models.DefaultThresholdTechPercent
	}
	for i := range c.Criteria {
		if c.Criteria[i].ID == uuid.Nil {
			c.Criteria[i].ID = uuid.New()
		}
		c.Criteria[i].CaseID = c.ID
	}
	for i := range c.Technologies {
		if c.Technologies[i].ID == uuid.Nil {
			c.Technologies[i].ID = uuid.New()
		}
		c.Technologies[i].CaseID = c.ID
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.cases[c.ID] = c
	return nil
}

func (m *mockCaseRepo) Get(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCaseRepo) List(ctx context.Context, status string) ([]*models.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Case
	for _, c := range m.cases {
		if status == "" || c.Status == status {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockCaseRepo) Update(ctx context.Context, c *models.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.cases[c.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	stored.Name = c.Name
	stored.CaseType = c.CaseType
	stored.ShowResults = c.ShowResults
	return nil
}

func (m *mockCaseRepo) UpdateThresholds(ctx context.Context, id uuid.UUID, distanceMean, criteriaPercent, techPercent float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	c.ThresholdDistanceMean = distanceMean
	c.ThresholdCriteriaPercent = criteriaPercent
	c.ThresholdTechPercent = techPercent
	return nil
}

func (m *mockCaseRepo) AssignUsers(ctx context.Context, caseID uuid.UUID, userIDs []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[caseID]
	if !ok {
		return apperrors.ErrNotFound
	}
	existing := make(map[uuid.UUID]bool, len(c.AssignedUsers))
	for _, u := range c.AssignedUsers {
		existing[u] = true
	}
	for _, u := range userIDs {
		if !existing[u] {
			c.AssignedUsers = append(c.AssignedUsers, u)
		}
	}
	return nil
}

func (m *mockCaseRepo) AdvanceRound(ctx context.Context, caseID uuid.UUID, fromRound, toRound int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[caseID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if c.CurrentRound != fromRound || c.Status != models.CaseStatusOpen {
		return apperrors.ErrConflict
	}
	c.CurrentRound = toRound
	return nil
}

func (m *mockCaseRepo) Close(ctx context.Context, caseID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[caseID]
	if !ok {
		return apperrors.ErrNotFound
	}
	c.Status = models.CaseStatusClosed
	return nil
}

func (m *mockCaseRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.cases, id)
	return nil
}

var _ repositories.CaseRepository = (*mockCaseRepo)(nil)

type evalKey struct {
	caseID      uuid.UUID
	round       int
	userID      uuid.UUID
	criterionID uuid.UUID
	techID      uuid.UUID // uuid.Nil for criterion-importance ratings
}

func keyFor(e *models.Evaluation) evalKey {
	k := evalKey{
		caseID:      e.CaseID,
		round:       e.Round,
		userID:      e.UserID,
		criterionID: e.CriterionID,
	}
	if e.TechnologyID != nil {
		k.techID = *e.TechnologyID
	}
	return k
}

type mockEvalRepo struct {
	mu    sync.Mutex
	evals map[evalKey]*models.Evaluation
}

func newMockEvalRepo() *mockEvalRepo {
	return &mockEvalRepo{evals: make(map[evalKey]*models.Evaluation)}
}

func (m *mockEvalRepo) Upsert(ctx context.Context, e *models.Evaluation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()
	cp := *e
	cp.NeedsReevaluation = false
	m.evals[keyFor(e)] = &cp
	return nil
}

func (m *mockEvalRepo) ListForRound(ctx context.Context, caseID uuid.UUID, round int) ([]*models.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Evaluation
	for _, e := range m.evals {
		if e.CaseID == caseID && e.Round == round {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockEvalRepo) ListForUserRound(ctx context.Context, caseID, userID uuid.UUID, round int) ([]*models.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Evaluation
	for _, e := range m.evals {
		if e.CaseID == caseID && e.Round == round && e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockEvalRepo) ListFlagged(ctx context.Context, caseID, userID uuid.UUID, round int) ([]*models.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Evaluation
	for _, e := range m.evals {
		if e.CaseID == caseID && e.Round == round && e.UserID == userID && e.NeedsReevaluation {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockEvalRepo) SetReevaluationFlags(ctx context.Context, caseID uuid.UUID, round int, criteria []uuid.UUID, cells []models.TechCell) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	flaggedCriteria := make(map[uuid.UUID]bool, len(criteria))
	for _, id := range criteria {
		flaggedCriteria[id] = true
	}
	flaggedCells := make(map[models.TechCell]bool, len(cells))
	for _, cell := range cells {
		flaggedCells[cell] = true
	}
	for _, e := range m.evals {
		if e.CaseID != caseID || e.Round != round {
			continue
		}
		if e.TechnologyID == nil {
			e.NeedsReevaluation = flaggedCriteria[e.CriterionID]
			continue
		}
		cell := models.TechCell{TechnologyID: *e.TechnologyID, CriterionID: e.CriterionID}
		e.NeedsReevaluation = flaggedCells[cell]
	}
	return nil
}

func (m *mockEvalRepo) CarryForward(ctx context.Context, caseID uuid.UUID, fromRound, toRound int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.evals {
		if e.CaseID != caseID || e.Round != fromRound || e.NeedsReevaluation {
			continue
		}
		cp := *e
		cp.ID = uuid.New()
		cp.Round = toRound
		cp.NeedsReevaluation = false
		k := keyFor(&cp)
		if _, exists := m.evals[k]; !exists {
			m.evals[k] = &cp
		}
	}
	return nil
}

var _ repositories.EvaluationRepository = (*mockEvalRepo)(nil)

type mockAnalysisRepo struct {
	mu       sync.Mutex
	analyses map[uuid.UUID]map[int]*models.RoundAnalysis
}

func newMockAnalysisRepo() *mockAnalysisRepo {
	return &mockAnalysisRepo{analyses: make(map[uuid.UUID]map[int]*models.RoundAnalysis)}
}

func (m *mockAnalysisRepo) Create(ctx context.Context, ra *models.RoundAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byRound, ok := m.analyses[ra.CaseID]
	if !ok {
		byRound = make(map[int]*models.RoundAnalysis)
		m.analyses[ra.CaseID] = byRound
	}
	if _, exists := byRound[ra.RoundNumber]; exists {
		return apperrors.ErrAlreadyAnalyzed
	}
	if ra.ID == uuid.Nil {
		ra.ID = uuid.New()
	}
	ra.CreatedAt = time.Now()
	cp := *ra
	byRound[ra.RoundNumber] = &cp
	return nil
}

func (m *mockAnalysisRepo) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*models.RoundAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byRound := m.analyses[caseID]
	out := make([]*models.RoundAnalysis, 0, len(byRound))
	for round := 1; round <= len(byRound); round++ {
		if ra, ok := byRound[round]; ok {
			cp := *ra
			out = append(out, &cp)
		}
	}
	return out, nil
}

var _ repositories.RoundAnalysisRepository = (*mockAnalysisRepo)(nil)

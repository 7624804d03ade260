package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elicita/delphi-engine/pkg/apperrors"
	"github.com/elicita/delphi-engine/pkg/models"
)

func newCaseService(t *testing.T) (CaseService, *mockCaseRepo) {
	t.Helper()
	repo := newMockCaseRepo()
	return NewCaseService(repo, zap.NewNop()), repo
}

func TestCreateCase_AppliesDefaults(t *testing.T) {
	svc, _ := newCaseService(t)

	c, err := svc.CreateCase(context.Background(), CreateCaseInput{
		Name:         "Framework evaluation",
		CaseType:     models.CaseTypeInternal,
		Criteria:     []string{"Maturity", "Community"},
		Technologies: []string{"React", "Vue"},
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.Equal(t, models.CaseStatusOpen, c.Status)
	assert.Equal(t, 1, c.CurrentRound)
	assert.InDelta(t, models.DefaultThresholdDistanceMean, c.ThresholdDistanceMean, 1e-9)
	assert.InDelta(t, models.DefaultThresholdCriteriaPercent, c.ThresholdCriteriaPercent, 1e-9)
	assert.InDelta(t, models.DefaultThresholdTechPercent, c.ThresholdTechPercent, 1e-9)
	assert.Len(t, c.Criteria, 2)
	assert.Len(t, c.Technologies, 2)
}

func TestCreateCase_Validation(t *testing.T) {
	svc, _ := newCaseService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateCaseInput
	}{
		{"missing name", CreateCaseInput{CaseType: models.CaseTypeInternal, Criteria: []string{"A"}}},
		{"bad case type", CreateCaseInput{Name: "x", CaseType: "hybrid", Criteria: []string{"A"}}},
		{"no criteria", CreateCaseInput{Name: "x", CaseType: models.CaseTypeInternal}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateCase(ctx, tc.input)
			assert.ErrorIs(t, err, apperrors.ErrConflict)
		})
	}
}

func TestUpdateThresholds(t *testing.T) {
	svc, repo := newCaseService(t)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, CreateCaseInput{
		Name: "t", CaseType: models.CaseTypeInternal, Criteria: []string{"A"},
	})
	require.NoError(t, err)

	err = svc.UpdateThresholds(ctx, c.ID, ThresholdsInput{
		ThresholdDistanceMean:    0.2,
		ThresholdCriteriaPercent: 80,
		ThresholdTechPercent:     60,
	})
	require.NoError(t, err)

	updated, err := svc.GetCase(ctx, c.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, updated.ThresholdDistanceMean, 1e-9)
	assert.InDelta(t, 80.0, updated.ThresholdCriteriaPercent, 1e-9)
	assert.InDelta(t, 60.0, updated.ThresholdTechPercent, 1e-9)

	// Out-of-range values are rejected.
	err = svc.UpdateThresholds(ctx, c.ID, ThresholdsInput{
		ThresholdDistanceMean:    0,
		ThresholdCriteriaPercent: 80,
		ThresholdTechPercent:     60,
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	err = svc.UpdateThresholds(ctx, c.ID, ThresholdsInput{
		ThresholdDistanceMean:    0.2,
		ThresholdCriteriaPercent: 101,
		ThresholdTechPercent:     60,
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	// A closed case rejects threshold edits.
	require.NoError(t, repo.Close(ctx, c.ID))
	err = svc.UpdateThresholds(ctx, c.ID, ThresholdsInput{
		ThresholdDistanceMean:    0.2,
		ThresholdCriteriaPercent: 80,
		ThresholdTechPercent:     60,
	})
	assert.ErrorIs(t, err, apperrors.ErrCaseClosed)
}

func TestUpdateCase_ClosedCaseRejected(t *testing.T) {
	svc, repo := newCaseService(t)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, CreateCaseInput{
		Name: "t", CaseType: models.CaseTypeInternal, Criteria: []string{"A"},
	})
	require.NoError(t, err)
	require.NoError(t, repo.Close(ctx, c.ID))

	_, err = svc.UpdateCase(ctx, c.ID, UpdateCaseInput{
		Name: "renamed", CaseType: models.CaseTypeExternal,
	})
	assert.ErrorIs(t, err, apperrors.ErrCaseClosed)

	err = svc.AssignUsers(ctx, c.ID, []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, apperrors.ErrCaseClosed)
}

func TestListCases_StatusFilter(t *testing.T) {
	svc, repo := newCaseService(t)
	ctx := context.Background()

	open, err := svc.CreateCase(ctx, CreateCaseInput{
		Name: "open", CaseType: models.CaseTypeInternal, Criteria: []string{"A"},
	})
	require.NoError(t, err)
	closed, err := svc.CreateCase(ctx, CreateCaseInput{
		Name: "closed", CaseType: models.CaseTypeInternal, Criteria: []string{"A"},
	})
	require.NoError(t, err)
	require.NoError(t, repo.Close(ctx, closed.ID))

	openCases, err := svc.ListCases(ctx, models.CaseStatusOpen)
	require.NoError(t, err)
	require.Len(t, openCases, 1)
	assert.Equal(t, open.ID, openCases[0].ID)

	all, err := svc.ListCases(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.ListCases(ctx, "archived")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestDeleteCase(t *testing.T) {
	svc, _ := newCaseService(t)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, CreateCaseInput{
		Name: "t", CaseType: models.CaseTypeInternal, Criteria: []string{"A"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCase(ctx, c.ID))

	_, err = svc.GetCase(ctx, c.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = svc.DeleteCase(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// Package repositories contains PostgreSQL data access for delphi-engine.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/elicita/delphi-engine/pkg/apperrors"
	"github.com/elicita/delphi-engine/pkg/database"
	"github.com/elicita/delphi-engine/pkg/models"
)

// CaseRepository defines the interface for case data access.
type CaseRepository interface {
	// Create inserts a case together with its criteria, technologies and
	// assigned users in one transaction.
	Create(ctx context.Context, c *models.Case) error

	// Get retrieves a case by ID including criteria, technologies and
	// assigned users.
	Get(ctx context.Context, id uuid.UUID) (*models.Case, error)

	// List returns cases filtered by status. An empty status returns all.
	List(ctx context.Context, status string) ([]*models.Case, error)

	// Update persists name, case_type and show_results.
	Update(ctx context.Context, c *models.Case) error

	// UpdateThresholds sets the three convergence thresholds.
	UpdateThresholds(ctx context.Context, id uuid.UUID, distanceMean, criteriaPercent, techPercent float64) error

	// AssignUsers adds the given users to the case panel (idempotent).
	AssignUsers(ctx context.Context, caseID uuid.UUID, userIDs []uuid.UUID) error

	// AdvanceRound moves current_round from fromRound to toRound. Fails with
	// ErrConflict when the case is no longer on fromRound.
	AdvanceRound(ctx context.Context, caseID uuid.UUID, fromRound, toRound int) error

	// Close marks the case closed.
	Close(ctx context.Context, caseID uuid.UUID) error

	// Delete removes a case; evaluations and analyses cascade.
	Delete(ctx context.Context, id uuid.UUID) error
}

// caseRepository implements CaseRepository using PostgreSQL.
type caseRepository struct {
	db *database.DB
}

// NewCaseRepository creates a new case repository.
func NewCaseRepository(db *database.DB) CaseRepository {
	return &caseRepository{db: db}
}

func (r *caseRepository) Create(ctx context.Context, c *models.Case) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
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

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO cases (id, name, case_type, status, show_results, current_round,
			threshold_distance_mean, threshold_criteria_percent, threshold_tech_percent,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = tx.Exec(ctx, query,
		c.ID, c.Name, c.CaseType, c.Status, c.ShowResults, c.CurrentRound,
		c.ThresholdDistanceMean, c.ThresholdCriteriaPercent, c.ThresholdTechPercent,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create case: %w", err)
	}

	for i := range c.Criteria {
		if c.Criteria[i].ID == uuid.Nil {
			c.Criteria[i].ID = uuid.New()
		}
		c.Criteria[i].CaseID = c.ID
		_, err = tx.Exec(ctx,
			`INSERT INTO criteria (id, case_id, name) VALUES ($1, $2, $3)`,
			c.Criteria[i].ID, c.ID, c.Criteria[i].Name)
		if err != nil {
			return fmt.Errorf("failed to create criterion: %w", err)
		}
	}

	for i := range c.Technologies {
		if c.Technologies[i].ID == uuid.Nil {
			c.Technologies[i].ID = uuid.New()
		}
		c.Technologies[i].CaseID = c.ID
		_, err = tx.Exec(ctx,
			`INSERT INTO technologies (id, case_id, name) VALUES ($1, $2, $3)`,
			c.Technologies[i].ID, c.ID, c.Technologies[i].Name)
		if err != nil {
			return fmt.Errorf("failed to create technology: %w", err)
		}
	}

	for _, userID := range c.AssignedUsers {
		_, err = tx.Exec(ctx,
			`INSERT INTO case_users (case_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			c.ID, userID)
		if err != nil {
			return fmt.Errorf("failed to assign user: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit case creation: %w", err)
	}

	return nil
}

func (r *caseRepository) Get(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	query := `
		SELECT id, name, case_type, status, show_results, current_round,
			threshold_distance_mean, threshold_criteria_percent, threshold_tech_percent,
			created_at, updated_at
		FROM cases
		WHERE id = $1`

	var c models.Case
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.CaseType, &c.Status, &c.ShowResults, &c.CurrentRound,
		&c.ThresholdDistanceMean, &c.ThresholdCriteriaPercent, &c.ThresholdTechPercent,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get case: %w", err)
	}

	if c.Criteria, err = r.listCriteria(ctx, id); err != nil {
		return nil, err
	}
	if c.Technologies, err = r.listTechnologies(ctx, id); err != nil {
		return nil, err
	}
	if c.AssignedUsers, err = r.listAssignedUsers(ctx, id); err != nil {
		return nil, err
	}

	return &c, nil
}

func (r *caseRepository) listCriteria(ctx context.Context, caseID uuid.UUID) ([]models.Criterion, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, case_id, name FROM criteria WHERE case_id = $1 ORDER BY name`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list criteria: %w", err)
	}
	defer rows.Close()

	var criteria []models.Criterion
	for rows.Next() {
		var c models.Criterion
		if err := rows.Scan(&c.ID, &c.CaseID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan criterion: %w", err)
		}
		criteria = append(criteria, c)
	}
	return criteria, rows.Err()
}

func (r *caseRepository) listTechnologies(ctx context.Context, caseID uuid.UUID) ([]models.Technology, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, case_id, name FROM technologies WHERE case_id = $1 ORDER BY name`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list technologies: %w", err)
	}
	defer rows.Close()

	var techs []models.Technology
	for rows.Next() {
		var t models.Technology
		if err := rows.Scan(&t.ID, &t.CaseID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan technology: %w", err)
		}
		techs = append(techs, t)
	}
	return techs, rows.Err()
}

func (r *caseRepository) listAssignedUsers(ctx context.Context, caseID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM case_users WHERE case_id = $1 ORDER BY user_id`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned users: %w", err)
	}
	defer rows.Close()

	var users []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

func (r *caseRepository) List(ctx context.Context, status string) ([]*models.Case, error) {
	query := `
		SELECT id, name, case_type, status, show_results, current_round,
			threshold_distance_mean, threshold_criteria_percent, threshold_tech_percent,
			created_at, updated_at
		FROM cases`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()

	var cases []*models.Case
	for rows.Next() {
		var c models.Case
		err := rows.Scan(
			&c.ID, &c.Name, &c.CaseType, &c.Status, &c.ShowResults, &c.CurrentRound,
			&c.ThresholdDistanceMean, &c.ThresholdCriteriaPercent, &c.ThresholdTechPercent,
			&c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		cases = append(cases, &c)
	}
	return cases, rows.Err()
}

func (r *caseRepository) Update(ctx context.Context, c *models.Case) error {
	c.UpdatedAt = time.Now()

	query := `
		UPDATE cases
		SET name = $2, case_type = $3, show_results = $4, updated_at = $5
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, c.ID, c.Name, c.CaseType, c.ShowResults, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update case: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *caseRepository) UpdateThresholds(ctx context.Context, id uuid.UUID, distanceMean, criteriaPercent, techPercent float64) error {
	query := `
		UPDATE cases
		SET threshold_distance_mean = $2, threshold_criteria_percent = $3,
			threshold_tech_percent = $4, updated_at = $5
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, distanceMean, criteriaPercent, techPercent, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update thresholds: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *caseRepository) AssignUsers(ctx context.Context, caseID uuid.UUID, userIDs []uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, userID := range userIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO case_users (case_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			caseID, userID)
		if err != nil {
			return fmt.Errorf("failed to assign user: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit user assignment: %w", err)
	}
	return nil
}

// AdvanceRound is guarded by the expected current round so concurrent
// transitions cannot skip a round.
func (r *caseRepository) AdvanceRound(ctx context.Context, caseID uuid.UUID, fromRound, toRound int) error {
	query := `
		UPDATE cases
		SET current_round = $3, updated_at = $4
		WHERE id = $1 AND current_round = $2 AND status = 'open'`

	result, err := r.db.Exec(ctx, query, caseID, fromRound, toRound, time.Now())
	if err != nil {
		return fmt.Errorf("failed to advance round: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func (r *caseRepository) Close(ctx context.Context, caseID uuid.UUID) error {
	query := `UPDATE cases SET status = 'closed', updated_at = $2 WHERE id = $1`

	result, err := r.db.Exec(ctx, query, caseID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to close case: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *caseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM cases WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete case: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Ensure caseRepository implements CaseRepository at compile time.
var _ CaseRepository = (*caseRepository)(nil)

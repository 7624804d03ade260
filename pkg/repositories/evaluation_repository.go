package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/elicita/delphi-engine/pkg/database"
	"github.com/elicita/delphi-engine/pkg/models"
)

// EvaluationRepository defines the interface for evaluation data access.
type EvaluationRepository interface {
	// Upsert stores an evaluation, overwriting any prior record with the same
	// (case, round, user, criterion, technology) key. Last write wins.
	Upsert(ctx context.Context, e *models.Evaluation) error

	// ListForRound returns all evaluations of a case for one round,
	// across all users.
	ListForRound(ctx context.Context, caseID uuid.UUID, round int) ([]*models.Evaluation, error)

	// ListForUserRound returns one user's evaluations for a round.
	ListForUserRound(ctx context.Context, caseID, userID uuid.UUID, round int) ([]*models.Evaluation, error)

	// ListFlagged returns a user's evaluations for a round that carry the
	// needs_reevaluation flag.
	ListFlagged(ctx context.Context, caseID, userID uuid.UUID, round int) ([]*models.Evaluation, error)

	// SetReevaluationFlags marks the given criteria and tech cells of a round
	// as needing re-evaluation and clears the flag everywhere else.
	SetReevaluationFlags(ctx context.Context, caseID uuid.UUID, round int, criteria []uuid.UUID, cells []models.TechCell) error

	// CarryForward copies every fromRound evaluation whose needs_reevaluation
	// flag is false into toRound, so converged items count as already rated.
	// Flagged items are intentionally not copied; the expert must resubmit.
	CarryForward(ctx context.Context, caseID uuid.UUID, fromRound, toRound int) error
}

// evaluationRepository implements EvaluationRepository using PostgreSQL.
type evaluationRepository struct {
	db *database.DB
}

// NewEvaluationRepository creates a new evaluation repository.
func NewEvaluationRepository(db *database.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) Upsert(ctx context.Context, e *models.Evaluation) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()

	query := `
		INSERT INTO evaluations (id, case_id, user_id, round, criterion_id, technology_id,
			score, fuzzy_a, fuzzy_b, fuzzy_c, needs_reevaluation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE, $11)
		ON CONFLICT ON CONSTRAINT evaluations_identity_key DO UPDATE
		SET score = EXCLUDED.score,
		    fuzzy_a = EXCLUDED.fuzzy_a,
		    fuzzy_b = EXCLUDED.fuzzy_b,
		    fuzzy_c = EXCLUDED.fuzzy_c,
		    needs_reevaluation = FALSE,
		    created_at = EXCLUDED.created_at`

	_, err := r.db.Exec(ctx, query,
		e.ID, e.CaseID, e.UserID, e.Round, e.CriterionID, e.TechnologyID,
		e.Score, e.FuzzyVector.A, e.FuzzyVector.B, e.FuzzyVector.C, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert evaluation: %w", err)
	}
	return nil
}

const evaluationColumns = `id, case_id, user_id, round, criterion_id, technology_id,
	score, fuzzy_a, fuzzy_b, fuzzy_c, needs_reevaluation, created_at`

func (r *evaluationRepository) ListForRound(ctx context.Context, caseID uuid.UUID, round int) ([]*models.Evaluation, error) {
	query := fmt.Sprintf(`SELECT %s FROM evaluations WHERE case_id = $1 AND round = $2`, evaluationColumns)
	return r.queryEvaluations(ctx, query, caseID, round)
}

func (r *evaluationRepository) ListForUserRound(ctx context.Context, caseID, userID uuid.UUID, round int) ([]*models.Evaluation, error) {
	query := fmt.Sprintf(`SELECT %s FROM evaluations WHERE case_id = $1 AND round = $2 AND user_id = $3`, evaluationColumns)
	return r.queryEvaluations(ctx, query, caseID, round, userID)
}

func (r *evaluationRepository) ListFlagged(ctx context.Context, caseID, userID uuid.UUID, round int) ([]*models.Evaluation, error) {
	query := fmt.Sprintf(`SELECT %s FROM evaluations
		WHERE case_id = $1 AND round = $2 AND user_id = $3 AND needs_reevaluation`, evaluationColumns)
	return r.queryEvaluations(ctx, query, caseID, round, userID)
}

func (r *evaluationRepository) queryEvaluations(ctx context.Context, query string, args ...any) ([]*models.Evaluation, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()

	var evals []*models.Evaluation
	for rows.Next() {
		var e models.Evaluation
		err := rows.Scan(
			&e.ID, &e.CaseID, &e.UserID, &e.Round, &e.CriterionID, &e.TechnologyID,
			&e.Score, &e.FuzzyVector.A, &e.FuzzyVector.B, &e.FuzzyVector.C,
			&e.NeedsReevaluation, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		evals = append(evals, &e)
	}
	return evals, rows.Err()
}

func (r *evaluationRepository) SetReevaluationFlags(ctx context.Context, caseID uuid.UUID, round int, criteria []uuid.UUID, cells []models.TechCell) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`UPDATE evaluations SET needs_reevaluation = FALSE WHERE case_id = $1 AND round = $2`,
		caseID, round)
	if err != nil {
		return fmt.Errorf("failed to clear reevaluation flags: %w", err)
	}

	if len(criteria) > 0 {
		_, err = tx.Exec(ctx, `
			UPDATE evaluations SET needs_reevaluation = TRUE
			WHERE case_id = $1 AND round = $2 AND technology_id IS NULL AND criterion_id = ANY($3)`,
			caseID, round, criteria)
		if err != nil {
			return fmt.Errorf("failed to flag criteria: %w", err)
		}
	}

	for _, cell := range cells {
		_, err = tx.Exec(ctx, `
			UPDATE evaluations SET needs_reevaluation = TRUE
			WHERE case_id = $1 AND round = $2 AND technology_id = $3 AND criterion_id = $4`,
			caseID, round, cell.TechnologyID, cell.CriterionID)
		if err != nil {
			return fmt.Errorf("failed to flag tech cell: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reevaluation flags: %w", err)
	}
	return nil
}

func (r *evaluationRepository) CarryForward(ctx context.Context, caseID uuid.UUID, fromRound, toRound int) error {
	// ON CONFLICT DO NOTHING keeps a resubmission made in the new round ahead
	// of the carried-forward copy.
	query := `
		INSERT INTO evaluations (id, case_id, user_id, round, criterion_id, technology_id,
			score, fuzzy_a, fuzzy_b, fuzzy_c, needs_reevaluation, created_at)
		SELECT gen_random_uuid(), case_id, user_id, $3, criterion_id, technology_id,
			score, fuzzy_a, fuzzy_b, fuzzy_c, FALSE, now()
		FROM evaluations
		WHERE case_id = $1 AND round = $2 AND NOT needs_reevaluation
		ON CONFLICT ON CONSTRAINT evaluations_identity_key DO NOTHING`

	_, err := r.db.Exec(ctx, query, caseID, fromRound, toRound)
	if err != nil {
		return fmt.Errorf("failed to carry forward evaluations: %w", err)
	}
	return nil
}

// Ensure evaluationRepository implements EvaluationRepository at compile time.
var _ EvaluationRepository = (*evaluationRepository)(nil)

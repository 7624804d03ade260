package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/elicita/delphi-engine/pkg/apperrors"
	"github.com/elicita/delphi-engine/pkg/database"
	"github.com/elicita/delphi-engine/pkg/models"
)

// RoundAnalysisRepository defines the interface for round analysis data access.
type RoundAnalysisRepository interface {
	// Create inserts the analysis row for (case, round). It is the atomic
	// check-and-insert guarding concurrent double-analysis: when a row for
	// that round already exists the call fails with ErrAlreadyAnalyzed.
	Create(ctx context.Context, ra *models.RoundAnalysis) error

	// ListByCase returns all analyses of a case ordered by round number.
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*models.RoundAnalysis, error)
}

// roundAnalysisRepository implements RoundAnalysisRepository using PostgreSQL.
type roundAnalysisRepository struct {
	db *database.DB
}

// NewRoundAnalysisRepository creates a new round analysis repository.
func NewRoundAnalysisRepository(db *database.DB) RoundAnalysisRepository {
	return &roundAnalysisRepository{db: db}
}

func (r *roundAnalysisRepository) Create(ctx context.Context, ra *models.RoundAnalysis) error {
	if ra.ID == uuid.Nil {
		ra.ID = uuid.New()
	}
	ra.CreatedAt = time.Now()

	query := `
		INSERT INTO round_analyses (id, case_id, round_number,
			criteria_ok_count, criteria_total_count, criteria_ok_percent, criteria_passed,
			tech_ok_count, tech_total_count, tech_ok_percent, tech_passed,
			criteria_mean_distance_value, criteria_mean_distance_ok,
			tech_mean_distance_value, tech_mean_distance_ok,
			mean_distance_value, mean_distance_ok, passed_analysis, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT ON CONSTRAINT round_analyses_case_round_key DO NOTHING`

	result, err := r.db.Exec(ctx, query,
		ra.ID, ra.CaseID, ra.RoundNumber,
		ra.CriteriaOKCount, ra.CriteriaTotalCount, ra.CriteriaOKPercent, ra.CriteriaPassed,
		ra.TechOKCount, ra.TechTotalCount, ra.TechOKPercent, ra.TechPassed,
		ra.CriteriaMeanDistanceValue, ra.CriteriaMeanDistanceOK,
		ra.TechMeanDistanceValue, ra.TechMeanDistanceOK,
		ra.MeanDistanceValue, ra.MeanDistanceOK, ra.PassedAnalysis, ra.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create round analysis: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrAlreadyAnalyzed
	}
	return nil
}

func (r *roundAnalysisRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*models.RoundAnalysis, error) {
	query := `
		SELECT id, case_id, round_number,
			criteria_ok_count, criteria_total_count, criteria_ok_percent, criteria_passed,
			tech_ok_count, tech_total_count, tech_ok_percent, tech_passed,
			criteria_mean_distance_value, criteria_mean_distance_ok,
			tech_mean_distance_value, tech_mean_distance_ok,
			mean_distance_value, mean_distance_ok, passed_analysis, created_at
		FROM round_analyses
		WHERE case_id = $1
		ORDER BY round_number`

	rows, err := r.db.Query(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list round analyses: %w", err)
	}
	defer rows.Close()

	var analyses []*models.RoundAnalysis
	for rows.Next() {
		var ra models.RoundAnalysis
		err := rows.Scan(
			&ra.ID, &ra.CaseID, &ra.RoundNumber,
			&ra.CriteriaOKCount, &ra.CriteriaTotalCount, &ra.CriteriaOKPercent, &ra.CriteriaPassed,
			&ra.TechOKCount, &ra.TechTotalCount, &ra.TechOKPercent, &ra.TechPassed,
			&ra.CriteriaMeanDistanceValue, &ra.CriteriaMeanDistanceOK,
			&ra.TechMeanDistanceValue, &ra.TechMeanDistanceOK,
			&ra.MeanDistanceValue, &ra.MeanDistanceOK, &ra.PassedAnalysis, &ra.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round analysis: %w", err)
		}
		analyses = append(analyses, &ra)
	}
	return analyses, rows.Err()
}

// Ensure roundAnalysisRepository implements RoundAnalysisRepository at compile time.
var _ RoundAnalysisRepository = (*roundAnalysisRepository)(nil)

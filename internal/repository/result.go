package repository

import (
	"context"
	"database/sql"
	"fmt"

	"fightsync/internal/domain"

	"github.com/rs/zerolog"
)

type ResultRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewResultRepository(sqlDB *sql.DB, logger zerolog.Logger) *ResultRepository {
	return &ResultRepository{
		db:     sqlDB,
		logger: logger,
	}
}

const upsertResultQuery = `
INSERT INTO results (bout_external_id, winner, method, end_round, end_time, details, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now(), now())
ON CONFLICT (bout_external_id) DO UPDATE SET
    winner     = EXCLUDED.winner,
    method     = EXCLUDED.method,
    end_round  = EXCLUDED.end_round,
    end_time   = EXCLUDED.end_time,
    details    = EXCLUDED.details,
    updated_at = now()
RETURNING (xmax = 0)`

func (r *ResultRepository) Upsert(ctx context.Context, result *domain.Result) (UpsertOutcome, error) {
	var inserted bool
	err := r.db.QueryRowContext(ctx, upsertResultQuery,
		result.BoutExternalID,
		string(result.Winner),
		result.Method,
		result.EndRound,
		result.EndTime,
		result.Details,
	).Scan(&inserted)
	if err != nil {
		return 0, fmt.Errorf("upsert result for bout %s: %w", result.BoutExternalID, err)
	}
	if inserted {
		return OutcomeInserted, nil
	}
	return OutcomeUpdated, nil
}

// GetByBout returns the graded outcome for one bout, or nil when the bout has
// not been graded yet.
func (r *ResultRepository) GetByBout(ctx context.Context, boutExternalID string) (*domain.Result, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT bout_external_id, winner, method, end_round, end_time, details, created_at, updated_at
FROM results
WHERE bout_external_id = $1`, boutExternalID)

	var result domain.Result
	var winner string
	err := row.Scan(
		&result.BoutExternalID,
		&winner,
		&result.Method,
		&result.EndRound,
		&result.EndTime,
		&result.Details,
		&result.CreatedAt,
		&result.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result for bout %s: %w", boutExternalID, err)
	}
	result.Winner = domain.Winner(winner)
	return &result, nil
}

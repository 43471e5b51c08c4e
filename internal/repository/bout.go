package repository

import (
	"context"
	"database/sql"
	"fmt"

	"fightsync/internal/domain"

	"github.com/rs/zerolog"
)

type BoutRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewBoutRepository(sqlDB *sql.DB, logger zerolog.Logger) *BoutRepository {
	return &BoutRepository{
		db:     sqlDB,
		logger: logger,
	}
}

const upsertBoutQuery = `
INSERT INTO bouts (external_id, event_external_id, bout_order,
                   red_name, red_fighter_id, blue_name, blue_fighter_id,
                   weight_class, scheduled_rounds, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
ON CONFLICT (external_id) DO UPDATE SET
    event_external_id = EXCLUDED.event_external_id,
    bout_order        = EXCLUDED.bout_order,
    red_name          = EXCLUDED.red_name,
    red_fighter_id    = EXCLUDED.red_fighter_id,
    blue_name         = EXCLUDED.blue_name,
    blue_fighter_id   = EXCLUDED.blue_fighter_id,
    weight_class      = EXCLUDED.weight_class,
    scheduled_rounds  = EXCLUDED.scheduled_rounds,
    updated_at        = now()
RETURNING (xmax = 0)`

func (r *BoutRepository) Upsert(ctx context.Context, bout *domain.Bout) (UpsertOutcome, error) {
	var inserted bool
	err := r.db.QueryRowContext(ctx, upsertBoutQuery,
		bout.ExternalID,
		bout.EventExternalID,
		bout.BoutOrder,
		bout.RedName,
		bout.RedFighterID,
		bout.BlueName,
		bout.BlueFighterID,
		bout.WeightClass,
		bout.ScheduledRounds,
	).Scan(&inserted)
	if err != nil {
		return 0, fmt.Errorf("upsert bout %s: %w", bout.ExternalID, err)
	}
	if inserted {
		return OutcomeInserted, nil
	}
	return OutcomeUpdated, nil
}

// ForEvent returns an event's card in card order, main event first.
func (r *BoutRepository) ForEvent(ctx context.Context, eventExternalID string) ([]domain.Bout, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT external_id, event_external_id, bout_order,
       red_name, red_fighter_id, blue_name, blue_fighter_id,
       weight_class, scheduled_rounds, created_at, updated_at
FROM bouts
WHERE event_external_id = $1
ORDER BY bout_order ASC`, eventExternalID)
	if err != nil {
		return nil, fmt.Errorf("select bouts for event %s: %w", eventExternalID, err)
	}
	defer rows.Close()

	var bouts []domain.Bout
	for rows.Next() {
		var bout domain.Bout
		err := rows.Scan(
			&bout.ExternalID,
			&bout.EventExternalID,
			&bout.BoutOrder,
			&bout.RedName,
			&bout.RedFighterID,
			&bout.BlueName,
			&bout.BlueFighterID,
			&bout.WeightClass,
			&bout.ScheduledRounds,
			&bout.CreatedAt,
			&bout.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		bouts = append(bouts, bout)
	}
	return bouts, rows.Err()
}

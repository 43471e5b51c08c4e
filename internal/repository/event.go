package repository

import (
	"context"
	"database/sql"
	"fmt"

	"fightsync/internal/domain"

	"github.com/rs/zerolog"
)

// UpsertOutcome reports whether a natural-key upsert created a new row or
// rewrote an existing one. Replaying an unchanged scrape reports Updated.
type UpsertOutcome int

const (
	OutcomeInserted UpsertOutcome = iota
	OutcomeUpdated
)

func (o UpsertOutcome) String() string {
	if o == OutcomeInserted {
		return "inserted"
	}
	return "updated"
}

type EventRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewEventRepository(sqlDB *sql.DB, logger zerolog.Logger) *EventRepository {
	return &EventRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// xmax = 0 only holds for rows created by this statement, which is how the
// upsert distinguishes insert from update without a second round trip.
const upsertEventQuery = `
INSERT INTO events (external_id, name, event_date, status, location, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, now(), now())
ON CONFLICT (external_id) DO UPDATE SET
    name       = EXCLUDED.name,
    event_date = EXCLUDED.event_date,
    status     = EXCLUDED.status,
    location   = EXCLUDED.location,
    updated_at = now()
RETURNING (xmax = 0)`

func (r *EventRepository) Upsert(ctx context.Context, event *domain.Event) (UpsertOutcome, error) {
	var inserted bool
	err := r.db.QueryRowContext(ctx, upsertEventQuery,
		event.ExternalID,
		event.Name,
		event.Date,
		string(event.Status),
		event.Location,
	).Scan(&inserted)
	if err != nil {
		return 0, fmt.Errorf("upsert event %s: %w", event.ExternalID, err)
	}
	if inserted {
		return OutcomeInserted, nil
	}
	return OutcomeUpdated, nil
}

const selectEventColumns = `
SELECT external_id, name, event_date, status, location, created_at, updated_at
FROM events`

// LastCompleted returns the n most recent completed events, newest first.
func (r *EventRepository) LastCompleted(ctx context.Context, n int) ([]domain.Event, error) {
	rows, err := r.db.QueryContext(ctx, selectEventColumns+`
WHERE status = $1
ORDER BY event_date DESC
LIMIT $2`, string(domain.EventCompleted), n)
	if err != nil {
		return nil, fmt.Errorf("select last completed events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

// NextUpcoming returns the nearest upcoming event, or nil when none is
// scheduled.
func (r *EventRepository) NextUpcoming(ctx context.Context) (*domain.Event, error) {
	row := r.db.QueryRowContext(ctx, selectEventColumns+`
WHERE status = $1
ORDER BY event_date ASC
LIMIT 1`, string(domain.EventUpcoming))

	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select next upcoming event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Event, error) {
	row := r.db.QueryRowContext(ctx, selectEventColumns+`
WHERE external_id = $1`, externalID)

	event, err := scanEvent(row)
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", externalID, err)
	}
	return event, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var event domain.Event
	var status string
	err := row.Scan(
		&event.ExternalID,
		&event.Name,
		&event.Date,
		&status,
		&event.Location,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	event.Status = domain.EventStatus(status)
	return &event, nil
}

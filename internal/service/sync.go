package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fightsync/internal/constants"
	"fightsync/internal/domain"
	"fightsync/internal/repository"
	"fightsync/internal/scrape"

	"github.com/rs/zerolog"
)

var (
	// ErrSyncInProgress is returned when a run is requested while another
	// run holds the run lock. Two concurrent runs would race on the same
	// natural keys.
	ErrSyncInProgress = errors.New("a sync run is already in progress")

	// ErrNoUpcomingEvents is returned by SyncNext when the datastore has
	// no upcoming event to sync.
	ErrNoUpcomingEvents = errors.New("no upcoming events found")
)

// Fetcher is the rate-limited page source. *source.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	CompletedEventsURL() string
	EventURL(eventID string) string
	FightURL(fightID string) string
}

type EventStore interface {
	Upsert(ctx context.Context, event *domain.Event) (repository.UpsertOutcome, error)
	LastCompleted(ctx context.Context, n int) ([]domain.Event, error)
	NextUpcoming(ctx context.Context) (*domain.Event, error)
}

type BoutStore interface {
	Upsert(ctx context.Context, bout *domain.Bout) (repository.UpsertOutcome, error)
}

type ResultStore interface {
	Upsert(ctx context.Context, result *domain.Result) (repository.UpsertOutcome, error)
}

// SyncService sequences the scrape stages. Execution is strictly sequential:
// one request in flight at a time, with the fetcher's inter-request delay as
// the rate-limiting mechanism.
type SyncService struct {
	source  Fetcher
	events  EventStore
	bouts   BoutStore
	results ResultStore
	logger  zerolog.Logger

	running sync.Mutex
}

func NewSyncService(source Fetcher, events EventStore, bouts BoutStore, results ResultStore, logger zerolog.Logger) *SyncService {
	return &SyncService{
		source:  source,
		events:  events,
		bouts:   bouts,
		results: results,
		logger:  logger,
	}
}

// SyncEvents scrapes the full events listing and upserts every event row.
func (s *SyncService) SyncEvents(ctx context.Context) (*RunSummary, error) {
	if !s.running.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.running.Unlock()

	summary := newRunSummary("events")
	if err := s.syncEventsStage(ctx, summary); err != nil {
		return nil, err
	}

	s.finish(summary)
	return summary, nil
}

// SyncHistorical runs the events stage, then backfills cards and results for
// the lastN most recent completed events.
func (s *SyncService) SyncHistorical(ctx context.Context, lastN int) (*RunSummary, error) {
	if !s.running.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.running.Unlock()

	if lastN <= 0 {
		lastN = constants.DefaultHistoryCount
	}

	summary := newRunSummary("historical")
	if err := s.syncEventsStage(ctx, summary); err != nil {
		return nil, err
	}

	events, err := s.events.LastCompleted(ctx, lastN)
	if err != nil {
		return nil, fmt.Errorf("select completed events: %w", err)
	}

	s.logger.Info().Int("count", len(events)).Msg("backfilling completed events")

	for i := range events {
		if err := s.syncEventCard(ctx, &events[i], summary, true); err != nil {
			return nil, err
		}
	}

	s.finish(summary)
	return summary, nil
}

// SyncNext scrapes the card of the nearest upcoming event. No results are
// synced: the event has not happened yet.
func (s *SyncService) SyncNext(ctx context.Context) (*RunSummary, error) {
	if !s.running.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.running.Unlock()

	summary := newRunSummary("next")

	event, err := s.events.NextUpcoming(ctx)
	if err != nil {
		return nil, fmt.Errorf("select next upcoming event: %w", err)
	}
	if event == nil {
		return nil, ErrNoUpcomingEvents
	}

	s.logger.Info().Str("event_id", event.ExternalID).Str("event_name", event.Name).Msg("syncing next event card")

	if err := s.syncEventCard(ctx, event, summary, false); err != nil {
		return nil, err
	}

	s.finish(summary)
	return summary, nil
}

// syncEventsStage fetches the all-events listing and upserts each row. A
// fetch failure for the listing is tallied and the run continues with
// whatever the datastore already holds; a structural parse failure aborts.
func (s *SyncService) syncEventsStage(ctx context.Context, summary *RunSummary) error {
	url := s.source.CompletedEventsURL()

	html, err := s.source.Fetch(ctx, url)
	if err != nil {
		s.logger.Error().Err(err).Str("url", url).Msg("failed to fetch events listing")
		summary.Events.Failed++
		return nil
	}

	rows, err := scrape.ParseEvents(html)
	if err != nil {
		return fmt.Errorf("parse events listing: %w", err)
	}

	s.logger.Info().Int("count", len(rows)).Msg("events listing parsed")

	now := time.Now()
	for _, row := range rows {
		event := &domain.Event{
			ExternalID: row.ExternalID,
			Name:       row.Name,
			Date:       row.Date,
			Status:     domain.StatusForDate(row.Date, now),
			Location:   row.Location,
		}

		outcome, err := s.events.Upsert(ctx, event)
		if err != nil {
			s.logger.Error().Err(err).Str("event_id", event.ExternalID).Msg("failed to upsert event")
			summary.Events.Failed++
			continue
		}
		summary.Events.tally(outcome)
	}

	return nil
}

// syncEventCard scrapes one event's card and upserts its bouts in card
// order. When withResults is set, each concluded bout's detail page is
// scraped and its result upserted. Item-level failures are tallied; only a
// structural parse failure propagates.
func (s *SyncService) syncEventCard(ctx context.Context, event *domain.Event, summary *RunSummary, withResults bool) error {
	url := s.source.EventURL(event.ExternalID)

	html, err := s.source.Fetch(ctx, url)
	if err != nil {
		s.logger.Error().Err(err).Str("event_id", event.ExternalID).Msg("failed to fetch event card")
		summary.Bouts.Failed++
		return nil
	}

	rows, err := scrape.ParseCard(html)
	if err != nil {
		return fmt.Errorf("parse card for event %s: %w", event.ExternalID, err)
	}

	s.logger.Info().
		Str("event_id", event.ExternalID).
		Str("event_name", event.Name).
		Int("bouts", len(rows)).
		Msg("event card parsed")

	for order, row := range rows {
		bout := &domain.Bout{
			ExternalID:      row.FightID,
			EventExternalID: event.ExternalID,
			BoutOrder:       order,
			RedName:         row.RedName,
			RedFighterID:    row.RedFighterID,
			BlueName:        row.BlueName,
			BlueFighterID:   row.BlueFighterID,
			WeightClass:     row.WeightClass,
			ScheduledRounds: scheduledRounds(order),
		}

		outcome, err := s.bouts.Upsert(ctx, bout)
		if err != nil {
			s.logger.Error().Err(err).Str("fight_id", bout.ExternalID).Msg("failed to upsert bout")
			summary.Bouts.Failed++
			if withResults && row.Completed {
				// No bout row to attach the result to.
				summary.Results.Skipped++
			}
			continue
		}
		summary.Bouts.tally(outcome)

		if !withResults {
			continue
		}
		if !row.Completed {
			summary.Results.Skipped++
			continue
		}
		if err := s.syncFightResult(ctx, row.FightID, summary); err != nil {
			return err
		}
	}

	return nil
}

func (s *SyncService) syncFightResult(ctx context.Context, fightID string, summary *RunSummary) error {
	url := s.source.FightURL(fightID)

	html, err := s.source.Fetch(ctx, url)
	if err != nil {
		s.logger.Error().Err(err).Str("fight_id", fightID).Msg("failed to fetch fight detail")
		summary.Results.Failed++
		return nil
	}

	parsed, err := scrape.ParseResult(html)
	if err != nil {
		if scrape.IsStructureError(err) {
			return fmt.Errorf("parse fight %s: %w", fightID, err)
		}
		s.logger.Warn().Err(err).Str("fight_id", fightID).Msg("failed to grade fight result")
		summary.Results.Failed++
		return nil
	}

	result := &domain.Result{
		BoutExternalID: fightID,
		Winner:         parsed.Winner,
		Method:         parsed.Method,
		EndRound:       parsed.Round,
		EndTime:        parsed.Time,
		Details:        parsed.Details,
	}

	outcome, err := s.results.Upsert(ctx, result)
	if err != nil {
		s.logger.Error().Err(err).Str("fight_id", fightID).Msg("failed to upsert result")
		summary.Results.Failed++
		return nil
	}
	summary.Results.tally(outcome)

	return nil
}

func (s *SyncService) finish(summary *RunSummary) {
	summary.FinishedAt = time.Now()

	s.logger.Info().
		Str("run_id", summary.RunID).
		Str("mode", summary.Mode).
		Dur("duration", summary.FinishedAt.Sub(summary.StartedAt)).
		Int("events_inserted", summary.Events.Inserted).
		Int("events_updated", summary.Events.Updated).
		Int("events_failed", summary.Events.Failed).
		Int("bouts_inserted", summary.Bouts.Inserted).
		Int("bouts_updated", summary.Bouts.Updated).
		Int("bouts_failed", summary.Bouts.Failed).
		Int("results_inserted", summary.Results.Inserted).
		Int("results_updated", summary.Results.Updated).
		Int("results_skipped", summary.Results.Skipped).
		Int("results_failed", summary.Results.Failed).
		Msg("sync run completed")
}

func scheduledRounds(order int) int {
	if order == constants.MainEventOrder {
		return constants.MainEventRounds
	}
	return constants.DefaultBoutRounds
}

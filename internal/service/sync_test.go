package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"fightsync/internal/domain"
	"fightsync/internal/repository"
	"fightsync/internal/scrape"

	"github.com/rs/zerolog"
)

// ---- fakes ----

type fakeFetcher struct {
	pages map[string][]byte
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	page, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("fetch %s: status 404", url)
	}
	return page, nil
}

func (f *fakeFetcher) CompletedEventsURL() string     { return "listing" }
func (f *fakeFetcher) EventURL(eventID string) string { return "event/" + eventID }
func (f *fakeFetcher) FightURL(fightID string) string { return "fight/" + fightID }

type fakeEventStore struct {
	events  map[string]domain.Event
	failIDs map[string]bool
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{events: map[string]domain.Event{}, failIDs: map[string]bool{}}
}

func (s *fakeEventStore) Upsert(_ context.Context, event *domain.Event) (repository.UpsertOutcome, error) {
	if s.failIDs[event.ExternalID] {
		return 0, errors.New("constraint violation")
	}
	_, exists := s.events[event.ExternalID]
	s.events[event.ExternalID] = *event
	if exists {
		return repository.OutcomeUpdated, nil
	}
	return repository.OutcomeInserted, nil
}

func (s *fakeEventStore) LastCompleted(_ context.Context, n int) ([]domain.Event, error) {
	var completed []domain.Event
	for _, e := range s.events {
		if e.Status == domain.EventCompleted {
			completed = append(completed, e)
		}
	}
	sort.Slice(completed, func(i, j int) bool { return completed[i].Date.After(completed[j].Date) })
	if len(completed) > n {
		completed = completed[:n]
	}
	return completed, nil
}

func (s *fakeEventStore) NextUpcoming(_ context.Context) (*domain.Event, error) {
	var next *domain.Event
	for _, e := range s.events {
		if e.Status != domain.EventUpcoming {
			continue
		}
		e := e
		if next == nil || e.Date.Before(next.Date) {
			next = &e
		}
	}
	return next, nil
}

type fakeBoutStore struct {
	bouts   map[string]domain.Bout
	failIDs map[string]bool
}

func newFakeBoutStore() *fakeBoutStore {
	return &fakeBoutStore{bouts: map[string]domain.Bout{}, failIDs: map[string]bool{}}
}

func (s *fakeBoutStore) Upsert(_ context.Context, bout *domain.Bout) (repository.UpsertOutcome, error) {
	if s.failIDs[bout.ExternalID] {
		return 0, errors.New("constraint violation")
	}
	_, exists := s.bouts[bout.ExternalID]
	s.bouts[bout.ExternalID] = *bout
	if exists {
		return repository.OutcomeUpdated, nil
	}
	return repository.OutcomeInserted, nil
}

type fakeResultStore struct {
	results map[string]domain.Result
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{results: map[string]domain.Result{}}
}

func (s *fakeResultStore) Upsert(_ context.Context, result *domain.Result) (repository.UpsertOutcome, error) {
	_, exists := s.results[result.BoutExternalID]
	s.results[result.BoutExternalID] = *result
	if exists {
		return repository.OutcomeUpdated, nil
	}
	return repository.OutcomeInserted, nil
}

// ---- fixtures ----

// Three well-formed rows plus one without an href. Dates are in the past so
// every event grades as completed.
const listingFixture = `
<table class="b-statistics__table-events"><tbody>
<tr class="b-statistics__table-row"><td>
  <a class="b-link" href="http://stats.example/event-details/e1">Event One</a>
  <span class="b-statistics__date">April 13, 2024</span>
</td><td>Las Vegas, Nevada, USA</td></tr>
<tr class="b-statistics__table-row"><td>
  <a class="b-link" href="http://stats.example/event-details/e2">Event Two</a>
  <span class="b-statistics__date">April 6, 2024</span>
</td><td>Sao Paulo, Brazil</td></tr>
<tr class="b-statistics__table-row"><td>
  <a class="b-link">Broken Row</a>
  <span class="b-statistics__date">March 30, 2024</span>
</td><td>Nowhere</td></tr>
<tr class="b-statistics__table-row"><td>
  <a class="b-link" href="http://stats.example/event-details/e3">Event Three</a>
  <span class="b-statistics__date">March 23, 2024</span>
</td><td>Paris, France</td></tr>
</tbody></table>`

func cardFixture(fights ...string) []byte {
	html := `<table class="b-fight-details__table"><tbody>`
	for _, f := range fights {
		html += f
	}
	html += `</tbody></table>`
	return []byte(html)
}

func completedFightRow(fightID, red, blue string) string {
	return fmt.Sprintf(`
<tr class="b-fight-details__table-row" data-link="http://stats.example/fight-details/%s">
<td></td>
<td>
  <p><a href="http://stats.example/fighter-details/%s-id">%s</a></p>
  <p><a href="http://stats.example/fighter-details/%s-id">%s</a></p>
</td>
<td></td><td></td><td></td><td></td>
<td>Lightweight</td>
<td>
  <p>KO/TKO</p>
</td>
<td>2</td>
<td>3:15</td>
</tr>`, fightID, red, red, blue, blue)
}

func upcomingFightRow(fightID, red, blue string) string {
	return fmt.Sprintf(`
<tr class="b-fight-details__table-row" data-link="http://stats.example/fight-details/%s">
<td></td>
<td>
  <p><a href="http://stats.example/fighter-details/%s-id">%s</a></p>
  <p><a href="http://stats.example/fighter-details/%s-id">%s</a></p>
</td>
<td></td><td></td><td></td><td></td>
<td>Welterweight</td>
<td></td>
<td></td>
<td></td>
</tr>`, fightID, red, red, blue, blue)
}

func fightDetailFixture(redStatus, blueStatus string) []byte {
	return []byte(fmt.Sprintf(`
<div class="b-fight-details__person"><i class="b-fight-details__person-status">%s</i></div>
<div class="b-fight-details__person"><i class="b-fight-details__person-status">%s</i></div>
<p class="b-fight-details__text">
  <i class="b-fight-details__text-item_first"><i class="b-fight-details__label">Method:</i> KO/TKO </i>
  <i class="b-fight-details__text-item"><i class="b-fight-details__label">Round:</i> 2 </i>
  <i class="b-fight-details__text-item"><i class="b-fight-details__label">Time:</i> 3:15 </i>
</p>`, redStatus, blueStatus))
}

func newTestService(fetcher *fakeFetcher) (*SyncService, *fakeEventStore, *fakeBoutStore, *fakeResultStore) {
	events := newFakeEventStore()
	bouts := newFakeBoutStore()
	results := newFakeResultStore()
	svc := NewSyncService(fetcher, events, bouts, results, zerolog.Nop())
	return svc, events, bouts, results
}

// ---- tests ----

func TestSyncEventsInsertsWellFormedRows(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][]byte{"listing": []byte(listingFixture)}}
	svc, events, _, _ := newTestService(fetcher)

	summary, err := svc.SyncEvents(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Events.Inserted != 3 || summary.Events.Updated != 0 || summary.Events.Failed != 0 {
		t.Errorf("unexpected counts: %+v", summary.Events)
	}
	if len(events.events) != 3 {
		t.Fatalf("expected 3 events stored, got %d", len(events.events))
	}
	if _, ok := events.events["e1"]; !ok {
		t.Error("expected event e1 to be stored")
	}
	if events.events["e1"].Status != domain.EventCompleted {
		t.Errorf("expected past event to be completed, got %q", events.events["e1"].Status)
	}
}

func TestSyncEventsReplayReportsUpdated(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][]byte{"listing": []byte(listingFixture)}}
	svc, _, _, _ := newTestService(fetcher)

	if _, err := svc.SyncEvents(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	summary, err := svc.SyncEvents(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if summary.Events.Inserted != 0 || summary.Events.Updated != 3 {
		t.Errorf("expected replay to report 0 inserted / 3 updated, got %+v", summary.Events)
	}
}

func TestSyncEventsStructureFailureAborts(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][]byte{"listing": []byte(`<html><body>redesign</body></html>`)}}
	svc, _, _, _ := newTestService(fetcher)

	_, err := svc.SyncEvents(context.Background())
	if err == nil {
		t.Fatal("expected a structure error to abort the run")
	}
	if !scrape.IsStructureError(err) {
		t.Errorf("expected StructureError, got %T: %v", err, err)
	}
}

func TestSyncEventsListingFetchFailureIsTallied(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][]byte{}}
	svc, _, _, _ := newTestService(fetcher)

	summary, err := svc.SyncEvents(context.Background())
	if err != nil {
		t.Fatalf("a transport failure must not abort the run: %v", err)
	}
	if summary.Events.Failed != 1 {
		t.Errorf("expected 1 failed, got %+v", summary.Events)
	}
}

func TestSyncEventsUpsertFailureContinues(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][]byte{"listing": []byte(listingFixture)}}
	svc, events, _, _ := newTestService(fetcher)
	events.failIDs["e2"] = true

	summary, err := svc.SyncEvents(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Events.Inserted != 2 || summary.Events.Failed != 1 {
		t.Errorf("expected 2 inserted / 1 failed, got %+v", summary.Events)
	}
}

func TestSyncHistoricalBackfillsCardAndResults(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][]byte{
		"listing": []byte(listingFixture),
		"event/e1": cardFixture(
			completedFightRow("f1", "Alex Moreno", "Sam Ortiz"),
			completedFightRow("f2", "Dana Petrov", "Lee Campbell"),
			upcomingFightRow("f3", "Nina Silva", "Kim Doyle"),
		),
		"fight/f1": fightDetailFixture("W", "L"),
		"fight/f2": fightDetailFixture("L", "W"),
	}}
	svc, _, bouts, results := newTestService(fetcher)

	summary, err := svc.SyncHistorical(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Bouts.Inserted != 3 || summary.Bouts.Failed != 0 {
		t.Errorf("unexpected bout counts: %+v", summary.Bouts)
	}
	if summary.Results.Inserted != 2 || summary.Results.Skipped != 1 {
		t.Errorf("unexpected result counts: %+v", summary.Results)
	}

	main := bouts.bouts["f1"]
	if main.BoutOrder != 0 {
		t.Errorf("expected f1 at order 0, got %d", main.BoutOrder)
	}
	if main.ScheduledRounds != 5 {
		t.Errorf("expected main event scheduled for 5 rounds, got %d", main.ScheduledRounds)
	}
	if main.RedName != "Alex Moreno" || main.BlueName != "Sam Ortiz" {
		t.Errorf("unexpected corners: %q vs %q", main.RedName, main.BlueName)
	}
	if bouts.bouts["f2"].ScheduledRounds != 3 {
		t.Errorf("expected non-main bout scheduled for 3 rounds, got %d", bouts.bouts["f2"].ScheduledRounds)
	}
	if bouts.bouts["f3"].BoutOrder != 2 {
		t.Errorf("expected contiguous ordering, got %d for f3", bouts.bouts["f3"].BoutOrder)
	}

	if results.results["f1"].Winner != domain.WinnerRed {
		t.Errorf("expected f1 winner red, got %q", results.results["f1"].Winner)
	}
	if results.results["f2"].Winner != domain.WinnerBlue {
		t.Errorf("expected f2 winner blue, got %q", results.results["f2"].Winner)
	}
	if _, ok := results.results["f3"]; ok {
		t.Error("upcoming bout must not have a result")
	}
}

func TestSyncHistoricalCardFetchFailureContinues(t *testing.T) {
	// Card page for e1 missing: the event is tallied as failed and the
	// remaining events still sync.
	fetcher := &fakeFetcher{pages: map[string][]byte{
		"listing":  []byte(listingFixture),
		"event/e2": cardFixture(completedFightRow("f9", "A", "B")),
		"fight/f9": fightDetailFixture("W", "L"),
	}}
	svc, _, bouts, _ := newTestService(fetcher)

	summary, err := svc.SyncHistorical(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Bouts.Failed != 1 {
		t.Errorf("expected 1 failed card, got %+v", summary.Bouts)
	}
	if summary.Bouts.Inserted != 1 {
		t.Errorf("expected e2's card to sync, got %+v", summary.Bouts)
	}
	if _, ok := bouts.bouts["f9"]; !ok {
		t.Error("expected bout f9 to be stored")
	}
}

func TestSyncHistoricalResultFetchFailureContinues(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][]byte{
		"listing": []byte(listingFixture),
		"event/e1": cardFixture(
			completedFightRow("f1", "A", "B"),
			completedFightRow("f2", "C", "D"),
		),
		// fight/f1 missing on purpose
		"fight/f2": fightDetailFixture("W", "L"),
	}}
	svc, _, _, results := newTestService(fetcher)

	summary, err := svc.SyncHistorical(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Results.Failed != 1 || summary.Results.Inserted != 1 {
		t.Errorf("expected 1 failed / 1 inserted result, got %+v", summary.Results)
	}
	if _, ok := results.results["f2"]; !ok {
		t.Error("expected f2's result despite f1 failing")
	}
}

func TestSyncNextSyncsUpcomingCardWithoutResults(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][]byte{
		"event/u1": cardFixture(
			upcomingFightRow("f10", "Nina Silva", "Kim Doyle"),
			upcomingFightRow("f11", "Pat Reyes", "Jo Keller"),
		),
	}}
	svc, events, bouts, _ := newTestService(fetcher)
	events.events["u1"] = domain.Event{
		ExternalID: "u1",
		Name:       "Upcoming Night",
		Status:     domain.EventUpcoming,
	}

	summary, err := svc.SyncNext(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Bouts.Inserted != 2 {
		t.Errorf("expected 2 bouts inserted, got %+v", summary.Bouts)
	}
	if summary.Results.Inserted != 0 || summary.Results.Skipped != 0 {
		t.Errorf("next-event mode must not touch results, got %+v", summary.Results)
	}
	if bouts.bouts["f10"].EventExternalID != "u1" {
		t.Errorf("expected bout owned by u1, got %q", bouts.bouts["f10"].EventExternalID)
	}
}

func TestSyncNextWithoutUpcomingEvent(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][]byte{}}
	svc, _, _, _ := newTestService(fetcher)

	_, err := svc.SyncNext(context.Background())
	if !errors.Is(err, ErrNoUpcomingEvents) {
		t.Fatalf("expected ErrNoUpcomingEvents, got %v", err)
	}
}

func TestConcurrentRunRejected(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][]byte{"listing": []byte(listingFixture)}}
	svc, _, _, _ := newTestService(fetcher)

	svc.running.Lock()
	defer svc.running.Unlock()

	if _, err := svc.SyncEvents(context.Background()); !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("expected ErrSyncInProgress, got %v", err)
	}
	if _, err := svc.SyncNext(context.Background()); !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("expected ErrSyncInProgress, got %v", err)
	}
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"fightsync/internal/constants"
	"fightsync/internal/domain"
	"fightsync/internal/repository"
	"fightsync/internal/service"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// AdminServer exposes the on-demand invocation surface: trigger a sync run,
// read back the last summary. Concurrent triggers of the same mode are
// collapsed onto one run via singleflight; a second mode while a run is in
// flight gets 409 from the service's run lock.
type AdminServer struct {
	sync    *service.SyncService
	events  *repository.EventRepository
	bouts   *repository.BoutRepository
	results *repository.ResultRepository
	logger  zerolog.Logger
	group   singleflight.Group

	mu      sync.RWMutex
	lastRun *service.RunSummary
}

func NewAdminServer(
	syncService *service.SyncService,
	events *repository.EventRepository,
	bouts *repository.BoutRepository,
	results *repository.ResultRepository,
	logger zerolog.Logger,
) *AdminServer {
	return &AdminServer{
		sync:    syncService,
		events:  events,
		bouts:   bouts,
		results: results,
		logger:  logger,
	}
}

func (s *AdminServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sync/events", s.handleSync("events"))
	mux.HandleFunc("POST /sync/historical", s.handleSync("historical"))
	mux.HandleFunc("POST /sync/next", s.handleSync("next"))
	mux.HandleFunc("GET /runs/last", s.handleLastRun)
	mux.HandleFunc("GET /events/next", s.handleNextEvent)
	mux.HandleFunc("GET /events/{id}/card", s.handleEventCard)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

func (s *AdminServer) handleSync(mode string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lastN := constants.DefaultHistoryCount
		if raw := r.URL.Query().Get("n"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				s.writeError(w, http.StatusBadRequest, "n must be a positive integer")
				return
			}
			lastN = n
		}

		v, err, shared := s.group.Do(mode, func() (any, error) {
			// The run outlives the triggering request on purpose: a
			// dropped client must not cancel a half-applied scrape.
			ctx, cancel := context.WithTimeout(context.Background(), constants.RunTimeout)
			defer cancel()

			switch mode {
			case "historical":
				return s.sync.SyncHistorical(ctx, lastN)
			case "next":
				return s.sync.SyncNext(ctx)
			default:
				return s.sync.SyncEvents(ctx)
			}
		})
		if shared {
			s.logger.Debug().Str("mode", mode).Msg("joined in-flight sync run")
		}
		if err != nil {
			if errors.Is(err, service.ErrSyncInProgress) {
				s.writeError(w, http.StatusConflict, err.Error())
				return
			}
			if errors.Is(err, service.ErrNoUpcomingEvents) {
				s.writeError(w, http.StatusNotFound, err.Error())
				return
			}
			s.logger.Error().Err(err).Str("mode", mode).Msg("sync run failed")
			s.writeError(w, http.StatusBadGateway, err.Error())
			return
		}

		summary := v.(*service.RunSummary)

		s.mu.Lock()
		s.lastRun = summary
		s.mu.Unlock()

		s.writeJSON(w, http.StatusOK, summary)
	}
}

func (s *AdminServer) handleLastRun(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	last := s.lastRun
	s.mu.RUnlock()

	if last == nil {
		s.writeError(w, http.StatusNotFound, "no sync run has completed yet")
		return
	}
	s.writeJSON(w, http.StatusOK, last)
}

func (s *AdminServer) handleNextEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()

	event, err := s.events.NextUpcoming(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to select next upcoming event")
		s.writeError(w, http.StatusInternalServerError, "failed to select next upcoming event")
		return
	}
	if event == nil {
		s.writeError(w, http.StatusNotFound, "no upcoming events")
		return
	}
	s.writeJSON(w, http.StatusOK, event)
}

type cardEntry struct {
	Bout   domain.Bout    `json:"bout"`
	Result *domain.Result `json:"result,omitempty"`
}

func (s *AdminServer) handleEventCard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()

	eventID := r.PathValue("id")
	bouts, err := s.bouts.ForEvent(ctx, eventID)
	if err != nil {
		s.logger.Error().Err(err).Str("event_id", eventID).Msg("failed to select event card")
		s.writeError(w, http.StatusInternalServerError, "failed to select event card")
		return
	}
	if len(bouts) == 0 {
		s.writeError(w, http.StatusNotFound, "no card synced for event")
		return
	}

	card := make([]cardEntry, len(bouts))
	for i, bout := range bouts {
		result, err := s.results.GetByBout(ctx, bout.ExternalID)
		if err != nil {
			s.logger.Error().Err(err).Str("fight_id", bout.ExternalID).Msg("failed to select result")
			s.writeError(w, http.StatusInternalServerError, "failed to select result")
			return
		}
		card[i] = cardEntry{Bout: bout, Result: result}
	}
	s.writeJSON(w, http.StatusOK, card)
}

func (s *AdminServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *AdminServer) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *AdminServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

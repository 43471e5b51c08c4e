package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fightsync/internal/config"
	"fightsync/internal/constants"
	"fightsync/internal/database"
	"fightsync/internal/logger"
	"fightsync/internal/repository"
	"fightsync/internal/service"
	"fightsync/internal/source"
)

func main() {
	mode := flag.String("mode", "events", "sync mode: events, historical or next")
	lastN := flag.Int("n", constants.DefaultHistoryCount, "completed events to backfill in historical mode")
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log = logger.SetLevel(cfg.LogLevel)

	db, err := database.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open datastore")
	}
	defer db.Close()

	svc := service.NewSyncService(
		source.New(cfg, log),
		repository.NewEventRepository(db, log),
		repository.NewBoutRepository(db, log),
		repository.NewResultRepository(db, log),
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, constants.RunTimeout)
	defer cancel()

	var summary *service.RunSummary
	switch *mode {
	case "events":
		summary, err = svc.SyncEvents(ctx)
	case "historical":
		summary, err = svc.SyncHistorical(ctx, *lastN)
	case "next":
		summary, err = svc.SyncNext(ctx)
	default:
		log.Fatal().Str("mode", *mode).Msg("unknown sync mode")
	}
	if err != nil {
		log.Fatal().Err(err).Str("mode", *mode).Msg("sync run failed")
	}

	printSummary(summary)
}

func printSummary(s *service.RunSummary) {
	fmt.Printf("run %s (%s) finished in %s\n", s.RunID, s.Mode, s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	printStage("events", s.Events)
	printStage("bouts", s.Bouts)
	printStage("results", s.Results)
}

func printStage(name string, c service.StageCounts) {
	fmt.Printf("  %-8s inserted=%d updated=%d skipped=%d failed=%d\n",
		name, c.Inserted, c.Updated, c.Skipped, c.Failed)
}

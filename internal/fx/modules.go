package fx

import (
	"fightsync/internal/config"
	"fightsync/internal/database"
	"fightsync/internal/logger"
	"fightsync/internal/repository"
	"fightsync/internal/server"
	"fightsync/internal/service"
	"fightsync/internal/source"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func provideSyncService(
	client *source.Client,
	events *repository.EventRepository,
	bouts *repository.BoutRepository,
	results *repository.ResultRepository,
	log zerolog.Logger,
) *service.SyncService {
	return service.NewSyncService(client, events, bouts, results, log)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewEventRepository),
	fx.Provide(repository.NewBoutRepository),
	fx.Provide(repository.NewResultRepository),
	// source client
	fx.Provide(source.New),
	// svc
	fx.Provide(provideSyncService),
	// server
	fx.Provide(server.NewAdminServer),
)

package sync

import (
	"schedshare/core/cache"
	"schedshare/core/config"
	"schedshare/core/crypto"
	"schedshare/core/database"
	"schedshare/core/middleware"
	accountRepository "schedshare/modules/account/repository"
	eventRepository "schedshare/modules/event/repository"
	"schedshare/modules/sync/controller"
	"schedshare/modules/sync/repository"
	"schedshare/modules/sync/router"
	"schedshare/modules/sync/service"

	"github.com/labstack/echo/v4"
)

// Init wires the sync module and returns the service so the background
// worker can drive the same orchestrator the HTTP surface uses.
func Init(e *echo.Echo, db database.IDatabase, c cache.Cache, cipher *crypto.TokenCipher) (service.SyncService, repository.ConnectionRepository) {
	cfg := config.Get()

	// Initialize layers
	accountRepo := accountRepository.NewAccountRepository(db, cipher)
	eventRepo := eventRepository.NewEventRepository(db)
	connectionRepo := repository.NewConnectionRepository(db)
	mappingRepo := repository.NewMappingRepository(db)

	tokens := service.NewGoogleTokenProvider(accountRepo, cfg.GoogleAPI.ClientID, cfg.GoogleAPI.ClientSecret)
	client := service.NewGoogleCalendarClient(tokens)

	pull := service.NewPullEngine(client, connectionRepo, mappingRepo, eventRepo)
	push := service.NewPushEngine(client, connectionRepo, mappingRepo, eventRepo)
	archiver := service.NewS3Archiver(cfg.Sync)

	syncService := service.NewSyncService(pull, push, connectionRepo, mappingRepo, c, archiver)
	syncController := controller.NewSyncController(syncService)

	// Get middleware for auth
	mw := middleware.NewMiddleware()

	// Setup routes
	router.NewSyncRouter(syncController).Setup(e, mw)

	return syncService, connectionRepo
}

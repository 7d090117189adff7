package account

import (
	"schedshare/core/cache"
	"schedshare/core/config"
	"schedshare/core/crypto"
	"schedshare/core/database"
	"schedshare/core/middleware"
	"schedshare/modules/account/controller"
	"schedshare/modules/account/repository"
	"schedshare/modules/account/router"
	"schedshare/modules/account/service"
	syncRepository "schedshare/modules/sync/repository"

	"github.com/labstack/echo/v4"
)

// Init wires the account linking module.
func Init(e *echo.Echo, db database.IDatabase, c cache.Cache, cipher *crypto.TokenCipher) {
	cfg := config.Get()

	accountRepo := repository.NewAccountRepository(db, cipher)
	connectionRepo := syncRepository.NewConnectionRepository(db)

	linkService := service.NewGoogleLinkService(
		accountRepo, connectionRepo, c,
		cfg.GoogleAPI.ClientID, cfg.GoogleAPI.ClientSecret, cfg.GoogleAPI.RedirectURI,
	)
	accountController := controller.NewAccountController(linkService)

	mw := middleware.NewMiddleware()

	router.NewAccountRouter(accountController).Setup(e, mw)
}

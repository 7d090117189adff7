package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"schedshare/core/cache"
	"schedshare/core/config"
	"schedshare/core/crypto"
	"schedshare/core/database"
	"schedshare/core/logger"
	accountModule "schedshare/modules/account"
	syncModule "schedshare/modules/sync"
	syncWorker "schedshare/modules/sync/worker"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 10 * time.Second

// Run boots the HTTP server and, when enabled, the background sync worker.
// Blocks until SIGINT/SIGTERM.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.Server.LogLevel)

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		return err
	}

	cipher, err := crypto.NewTokenCipher(cfg.TokenCipherKey)
	if err != nil {
		return fmt.Errorf("failed to initialize token cipher: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())

	accountModule.Init(e, db, redisCache, cipher)
	syncService, connectionRepo := syncModule.Init(e, db, redisCache, cipher)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Sync.WorkerEnabled {
		go func() {
			if err := syncWorker.RunWorker(ctx, cfg.Redis, syncService); err != nil {
				logger.Error("Sync worker stopped", "error", err)
			}
		}()
		go func() {
			if err := syncWorker.RunScheduler(ctx, cfg, connectionRepo); err != nil {
				logger.Error("Sync scheduler stopped", "error", err)
			}
		}()
	}

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("Server starting", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("Server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

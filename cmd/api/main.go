package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/C4T-BuT-S4D/predlozhka/internal/api"
	"github.com/C4T-BuT-S4D/predlozhka/internal/config"
	"github.com/C4T-BuT-S4D/predlozhka/internal/logging"
	"github.com/C4T-BuT-S4D/predlozhka/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func main() {
	setupConfig()
	logging.Init()

	cfg := config.New()
	logrus.Debugf("config: %+v", cfg)

	if cfg.APIToken == "" {
		logrus.Fatal("api_token is required")
	}

	db, err := storage.OpenDB(cfg.DatabaseDriver, cfg.DSN())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	store := storage.New(db, storage.WithRetry(cfg.StoreRetryAttempts, cfg.StoreRetryDelay))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	initCtx, initCancel := context.WithTimeout(ctx, 10*time.Second)
	defer initCancel()

	if err := store.Migrate(initCtx); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	api.NewService(cfg, store).Register(e)

	go func() {
		if err := e.Start(cfg.APIListen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Failed to serve api: %v", err)
		}
	}()

	<-ctx.Done()

	logrus.Info("shutting down api")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Failed to shut down api: %v", err)
	}
}

func setupConfig() {
	viper.SetDefault("api_listen", ":8080")
	config.SetupCommon()
}

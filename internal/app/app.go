package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/l11223/kiro-ai-gateway/internal/config"
	"github.com/l11223/kiro-ai-gateway/internal/db"
	"github.com/l11223/kiro-ai-gateway/internal/history"
	"github.com/l11223/kiro-ai-gateway/internal/http/api"
	"github.com/l11223/kiro-ai-gateway/internal/remote"
	"github.com/l11223/kiro-ai-gateway/internal/scheduler"
	"github.com/l11223/kiro-ai-gateway/internal/store"
)

// Migrate opens the database from config and runs migrations.
func Migrate(ctx context.Context, configPath string) error {
	cfg, errLoad := config.Load(config.ResolveConfigPath(configPath))
	if errLoad != nil {
		return errLoad
	}
	if cfg.DatabaseDSN == "" {
		return errors.New("app: no database-dsn configured")
	}
	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// RunServer wires the account store, quota history, auto-refresh scheduler,
// and admin API, then serves until ctx is cancelled.
func RunServer(ctx context.Context, configPath string) error {
	resolvedPath := config.ResolveConfigPath(configPath)
	cfg, errLoad := config.Load(resolvedPath)
	if errLoad != nil {
		return errLoad
	}

	var quotaHistory *history.Store
	if cfg.DatabaseDSN != "" {
		conn, errOpen := db.Open(cfg.DatabaseDSN)
		if errOpen != nil {
			return errOpen
		}
		if errMigrate := db.Migrate(conn); errMigrate != nil {
			return errMigrate
		}
		quotaHistory = history.NewStore(conn, nil)
		log.WithField("dialect", db.DialectName(conn)).Info("quota history enabled")
	} else {
		log.Info("no database-dsn configured, quota history disabled")
	}

	client, errClient := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.ManagementKey, cfg.Remote.Timeout)
	if errClient != nil {
		return errClient
	}

	accounts := store.New(client, recorderOrNil(quotaHistory))
	accounts.RefreshAccounts(ctx)
	accounts.RefreshCurrentAccount(ctx)

	autoRefresh := scheduler.NewAutoRefresh(func(tickCtx context.Context) {
		if _, errRefresh := accounts.RefreshAllQuotas(tickCtx); errRefresh != nil {
			log.WithError(errRefresh).Warn("scheduled quota refresh failed")
		}
	})
	autoRefresh.Configure(ctx, cfg.AutoRefresh.Enabled, cfg.AutoRefresh.Interval)
	defer autoRefresh.Stop()

	cfgWatcher, errWatch := config.NewWatcher(resolvedPath, func(next config.Config) {
		log.Info("config reloaded, rearming auto refresh")
		autoRefresh.Configure(ctx, next.AutoRefresh.Enabled, next.AutoRefresh.Interval)
	})
	if errWatch != nil {
		log.WithError(errWatch).Warn("config watcher unavailable, live reload disabled")
	} else {
		defer cfgWatcher.Close()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	api.RegisterRoutes(engine, accounts, quotaHistory, cfg)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler: engine,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("admin API listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		return nil
	case errServe := <-serveErr:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}

// recorderOrNil avoids handing the store a typed-nil recorder interface.
func recorderOrNil(h *history.Store) store.QuotaRecorder {
	if h == nil {
		return nil
	}
	return h
}

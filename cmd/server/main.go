package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pstracker/backend/internal/config"
	"github.com/pstracker/backend/internal/db"
	httpapi "github.com/pstracker/backend/internal/http"
	"github.com/pstracker/backend/internal/importer"
	"github.com/pstracker/backend/internal/powerstore"
	"github.com/pstracker/backend/internal/scheduler"
	"github.com/pstracker/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "pstracker-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	var ps powerstore.Client
	if cfg.PowerStoreURL == "" {
		ps = &powerstore.Mock{}
		logger.Info().Msg("using mock PowerStore client")
	} else {
		ps = &powerstore.HTTPClient{
			BaseURL: cfg.PowerStoreURL,
			Token:   cfg.PowerStoreToken,
			Timeout: cfg.PowerStoreTimeout,
		}
	}

	reconciler := &service.Reconciler{Store: store, PS: ps, Log: logger}
	missions := &service.MissionService{Store: store, Reconciler: reconciler, Log: logger}
	checks := &service.CheckService{Store: store, Log: logger}
	imports := &service.ImportService{
		Store:     store,
		PS:        ps,
		DumpTrack: &importer.DumpTrack{Store: store, Dir: cfg.DumpTrackPath, Log: logger},
		Monitor:   &importer.Monitor{Store: store, Dir: cfg.MonitorPath, Log: logger},
		Log:       logger,
	}

	sched := scheduler.New(imports, logger)
	if err := sched.Start(cfg.ImportSchedule); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.ImportSchedule).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	router := httpapi.Router(cfg, store, missions, checks, imports, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}

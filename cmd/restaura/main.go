package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"restaura/internal/events"
	"restaura/internal/logging"
	"restaura/internal/store"
	"restaura/internal/ws"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		logging.New(logging.Config{}).Fatal(err, "invalid configuration")
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logging.SetGlobalLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal(err, "database unavailable")
	}
	defer db.Close()

	dataStore := store.New(db, []byte(cfg.JWTSecret))

	if err := bootstrapDemoData(ctx, db, dataStore); err != nil {
		logger.Fatal(err, "bootstrap demo data")
	}

	broker := events.NewBroker(logger.Zerolog())
	go broker.Run(ctx)

	hub := ws.NewHub(logger.Zerolog())
	go hub.Run()
	broker.Subscribe(ws.NewSubscriber(hub))

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@hourly", func() {
		n, err := dataStore.PurgeExpiredSessions(context.Background())
		if err != nil {
			logger.Error(err, "purge expired sessions")
			return
		}
		if n > 0 {
			logger.WithFields(map[string]interface{}{"sessions": n}).Info().Msg("purged expired sessions")
		}
	}); err != nil {
		logger.Fatal(err, "schedule session purge")
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: newHTTPHandler(cfg, dataStore, broker, hub, logger),
	}

	go func() {
		logger.WithFields(map[string]interface{}{"addr": cfg.Addr}).Info().Msg("API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err, "server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "shutdown")
	}
	logger.Info("server stopped")
}

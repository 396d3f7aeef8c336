package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recordstore/config"
	"recordstore/config/database"
	"recordstore/internal/record/model"
	"recordstore/internal/record/repository"
	"recordstore/internal/record/store"
	"recordstore/pkg/logger"
	"recordstore/router"
	"recordstore/socket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info")
		logger.Sugar.Fatalf("Invalid configuration: %v", err)
	}
	logger.Init(cfg.LogLevel)
	defer logger.Log.Sync()

	hub := socket.NewHub()
	go hub.Run()

	var (
		journal *repository.EventRepository
		opts    []store.Option
	)
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			logger.Sugar.Fatalf("Database unavailable: %v", err)
		}
		defer db.Close()

		journal = repository.NewEventRepository(db)
		if err := journal.Migrate(context.Background()); err != nil {
			logger.Sugar.Fatalf("Migration failed: %v", err)
		}
		opts = append(opts, store.WithJournal(journal))
	} else {
		logger.Sugar.Warn("DATABASE_URL not set, records are kept in memory only")
	}

	recordStore := store.New(model.Principal(cfg.AdminPrincipal), hub, opts...)
	if journal != nil {
		events, err := journal.Load(context.Background())
		if err != nil {
			logger.Sugar.Fatalf("Failed to load journal: %v", err)
		}
		if err := recordStore.Replay(events); err != nil {
			logger.Sugar.Fatalf("Journal is inconsistent: %v", err)
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Setup(recordStore, hub, router.Options{JWTSecret: []byte(cfg.JWTSecret), AllowedOrigins: cfg.AllowedOrigins}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Sugar.Infof("Record store listening on :%s (admin=%s)", cfg.Port, recordStore.Admin())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar.Errorf("Shutdown error: %v", err)
	}
	logger.Sugar.Info("Server stopped")
}

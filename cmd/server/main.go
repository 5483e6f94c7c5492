package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/spimanov/prdbd/internal/config"
	"github.com/spimanov/prdbd/internal/constants"
	"github.com/spimanov/prdbd/internal/fingerprint"
	httpapp "github.com/spimanov/prdbd/internal/http"
	"github.com/spimanov/prdbd/internal/library"
	"github.com/spimanov/prdbd/internal/logger"
	"github.com/spimanov/prdbd/internal/peer"
	"github.com/spimanov/prdbd/internal/reconcile"
	"github.com/spimanov/prdbd/internal/store"
	"github.com/spimanov/prdbd/internal/worker"
)

func main() {
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize Logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	// Initialize DB
	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to init DB", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	settings := store.NewSettingsRepo(db)

	// Initialize core components
	lib := library.NewDirLibrary(cfg.MusicDir, appLogger)
	provider := fingerprint.NewChromaprint(cfg.FpcalcBin)
	rc := reconcile.New(db, lib, provider, cfg.Workers, appLogger)

	// Peer: env config wins, otherwise the persisted setting applies
	rc.SetPeer(resolvePeer(cfg, settings, appLogger))

	// Background passes
	if cfg.PassInterval > 0 {
		w := worker.NewWorker(rc, cfg.PassInterval, appLogger)
		w.Start()
		defer w.Stop()
	}

	// Initialize Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	h := httpapp.NewHandler(rc, db, settings, appLogger)
	h.RegisterRoutes(r)

	// Start Server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

func resolvePeer(cfg *config.Config, settings *store.SettingsRepo, appLogger *logger.Logger) peer.Peer {
	url := cfg.PeerURL
	file := cfg.PeerFile
	if url == "" && file == "" {
		url, _ = settings.Get(constants.SettingPeerURL)
		file, _ = settings.Get(constants.SettingPeerFile)
	}

	switch {
	case url != "":
		appLogger.Info("remote peer configured", "url", url)
		return peer.NewHTTPPeer(url, nil)
	case file != "":
		appLogger.Info("remote peer configured", "file", file)
		return peer.NewFilePeer(file)
	default:
		return nil
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shortkki/shorts-feed/app/api"
	"github.com/shortkki/shorts-feed/app/cfg"
	"github.com/shortkki/shorts-feed/app/database"
	"github.com/shortkki/shorts-feed/app/ingest"
	"github.com/shortkki/shorts-feed/app/sections"
	"github.com/shortkki/shorts-feed/app/tasks"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	if appCfg.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	if appCfg.Simulate {
		if err := runSimulation(appCfg); err != nil {
			log.Fatalf("Simulation failed: %v", err)
		}
		return
	}

	log.Printf("Starting Shorts Feed server (version %s)...", appCfg.Version)

	// Database connection
	log.Printf("Opening database at %s...", appCfg.DBPath)
	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	log.Printf("Database ready (schema version %d, dirty: %v)", version, dirty)

	// Load section configurations
	log.Printf("Loading section configurations from %s...", appCfg.SectionsDir)
	sectionCache := sections.NewCache(appCfg.SectionsDir)
	if err := sectionCache.Run(); err != nil {
		log.Fatal("Failed to load section configurations:", err)
	}
	log.Printf("Loaded %d section configurations", sectionCache.GetConfigCount())

	// Initialize repositories and ingest components
	sectionRepo := database.NewSectionRepository(db)
	itemRepo := database.NewItemRepository(db)
	bookRepo := database.NewBookRepository(db)

	parser := ingest.NewParser()
	filterer := ingest.NewFilterer()
	extractor := ingest.NewExtractor()
	httpClient := &http.Client{Timeout: 60 * time.Second}

	// Initialize and start scheduler
	log.Printf("Starting background scheduler with %d workers...", appCfg.WorkerCount)
	scheduler := tasks.NewScheduler(sectionCache, sectionRepo, itemRepo, httpClient, parser, filterer, extractor)
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize HTTP server
	apiHandler := api.NewHandler(sectionCache, sectionRepo, itemRepo, bookRepo, filterer, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on port %s", appCfg.Port)
		log.Printf("Endpoints available:")
		log.Printf("  Personalized feed: http://localhost:%s/api/feed/personalized", appCfg.Port)
		log.Printf("  Section items:     http://localhost:%s/api/sections/<id>/items", appCfg.Port)
		log.Printf("  Bookmarks:         http://localhost:%s/api/items/<id>/bookmarks", appCfg.Port)
		log.Printf("  Books:             http://localhost:%s/api/books", appCfg.Port)
		log.Printf("  Health check:      http://localhost:%s/health", appCfg.Port)
		log.Printf("  Statistics:        http://localhost:%s/stats", appCfg.Port)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	log.Println("Shorts Feed server started successfully!")

	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
	case err := <-serverErrChan:
		log.Printf("Server error: %v", err)
	}

	// Graceful shutdown
	log.Println("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	} else {
		log.Println("HTTP server stopped")
	}

	log.Println("Shorts Feed server shutdown complete")
}

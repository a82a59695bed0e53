package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/socialstudio/ugc-collector/internal/apify"
	"github.com/socialstudio/ugc-collector/internal/collector"
	"github.com/socialstudio/ugc-collector/internal/config"
	"github.com/socialstudio/ugc-collector/internal/history"
	"github.com/socialstudio/ugc-collector/internal/media"
	"github.com/socialstudio/ugc-collector/internal/models"
	"github.com/socialstudio/ugc-collector/internal/notifications"
	"github.com/socialstudio/ugc-collector/internal/scheduler"
	"github.com/socialstudio/ugc-collector/internal/storage"
	"github.com/socialstudio/ugc-collector/internal/store"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting UGC collector")

	postStore, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Failed to initialize store: %v", err)
	}
	defer postStore.Close()

	blobStore, err := storage.NewAzureStorage(cfg.StorageAccount, cfg.StorageContainer)
	if err != nil {
		logrus.Fatalf("Failed to initialize blob storage: %v", err)
	}

	scrapeClient := apify.NewClient(cfg)
	rehoster := media.NewRehoster(cfg, blobStore)
	historyLogger := history.NewLogger(postStore)
	notifier := notifications.NewService(cfg)

	collectorService := collector.NewService(scrapeClient, postStore, rehoster, historyLogger, notifier)

	schedulerService, err := scheduler.NewService(cfg, collectorService)
	if err != nil {
		logrus.Fatalf("Failed to initialize scheduler: %v", err)
	}
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	// Set up HTTP server for health checks and collection triggers
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/collections", triggerHandler(collectorService)).Methods("POST")
	router.HandleFunc("/collections/last", lastRunHandler(collectorService)).Methods("GET")
	router.HandleFunc("/collections/progress", progressHandler(collectorService)).Methods("GET")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func triggerHandler(collectorService *collector.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.ScrapeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		if len(req.Targets) == 0 || req.ResultsLimit <= 0 {
			http.Error(w, `{"error":"targets and a positive results_limit are required"}`, http.StatusBadRequest)
			return
		}

		go func() {
			run := collectorService.Run(context.Background(), req)
			if !run.Success {
				logrus.Errorf("Triggered collection run %s failed: %v", run.ID, run.Errors)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"message":"collection started"}`))
	}
}

func lastRunHandler(collectorService *collector.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := collectorService.LastRun()
		if !ok {
			http.Error(w, `{"error":"no runs yet"}`, http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(run)
	}
}

func progressHandler(collectorService *collector.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracker := collectorService.Progress()
		if tracker == nil {
			http.Error(w, `{"error":"no runs yet"}`, http.StatusNotFound)
			return
		}

		response := map[string]interface{}{
			"events":      tracker.History(),
			"eta_seconds": int(tracker.ETA().Seconds()),
		}
		if current, ok := tracker.Current(); ok {
			response["current"] = current
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

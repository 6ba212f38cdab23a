package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/karnataka-health/anemia-platform/internal/anonymize"
	"github.com/karnataka-health/anemia-platform/internal/archive"
	"github.com/karnataka-health/anemia-platform/internal/export"
	"github.com/karnataka-health/anemia-platform/internal/notify"
	"github.com/karnataka-health/anemia-platform/internal/pipeline"
	"github.com/karnataka-health/anemia-platform/internal/record"
	"github.com/karnataka-health/anemia-platform/internal/shared/auth"
	"github.com/karnataka-health/anemia-platform/internal/shared/config"
	"github.com/karnataka-health/anemia-platform/internal/shared/database"
	"github.com/karnataka-health/anemia-platform/internal/shared/metrics"
	secmiddleware "github.com/karnataka-health/anemia-platform/internal/shared/middleware"
	"github.com/karnataka-health/anemia-platform/internal/source"
	syncpkg "github.com/karnataka-health/anemia-platform/internal/sync"
)

// App holds all application dependencies
type App struct {
	Config   *config.Config
	DB       *database.DB
	Pipeline *pipeline.Pipeline
	Archive  *archive.Repository
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Source.URL == "" {
		fmt.Fprintln(os.Stderr, "SOURCE_URL is required")
		os.Exit(1)
	}

	app := &App{Config: cfg}

	// Core pipeline
	fetcher := source.NewFetcher(cfg.Source.URL, cfg.Source.FetchTimeout)
	reconciler := record.NewReconciler(anonymize.New(cfg.Privacy.Salt))
	cache := syncpkg.NewCache(cfg.Sync.CacheFile)
	pusher := syncpkg.NewPusher(cfg.Sync.PushURL, cfg.Sync.PushTimeout, cfg.Sync.RatePerMinute)
	app.Pipeline = pipeline.New(fetcher, reconciler, cache, pusher)

	ledger := notify.NewLedger(cfg.Notify.LedgerFile)

	// Initialize database archive (optional - skip if not available)
	if cfg.Database.Enabled {
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			fmt.Printf("Warning: Database not available: %v\n", err)
			fmt.Println("Running without the subject archive...")
		} else {
			app.DB = db
			defer db.Close()

			if err := database.Migrate(ctx, db.Pool); err != nil {
				fmt.Printf("Warning: Migration failed: %v\n", err)
			}
			app.Archive = archive.NewRepository(db)
			app.Pipeline.SetArchiver(app.Archive)
		}
	}

	// Background refresh scheduler
	go app.Pipeline.Run(ctx, cfg.Refresh.Interval)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.RateLimiter(50, 100))
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware)

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler(app))
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	// API info
	r.Get("/", infoHandler)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes (no auth required for now in dev mode)
		if cfg.Server.Env == "production" {
			r.Use(auth.Middleware(cfg.Auth))
		}

		pipelineHandler := pipeline.NewHandler(app.Pipeline)
		r.Mount("/subjects", pipelineHandler.Routes())

		notifyHandler := notify.NewHandler(ledger, app.Pipeline.Subjects)
		r.Mount("/notifications", notifyHandler.Routes())

		exportHandler := export.NewHandler(app.Pipeline.Subjects)
		r.Mount("/export", exportHandler.Routes())

		if app.Archive != nil {
			archiveHandler := archive.NewHandler(app.Archive)
			r.Mount("/archive", archiveHandler.Routes())
		}
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	go func() {
		<-ctx.Done()
		fmt.Println("\nShutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Server shutdown error: %v\n", err)
		}
		close(done)
	}()

	fmt.Println("============================================")
	fmt.Println("Karnataka Anemia Surveillance Platform")
	fmt.Println("============================================")
	fmt.Printf("Environment:    %s\n", cfg.Server.Env)
	fmt.Printf("Server:         http://localhost:%d\n", cfg.Server.Port)
	fmt.Printf("API:            http://localhost:%d/api/v1\n", cfg.Server.Port)
	fmt.Printf("Health:         http://localhost:%d/health\n", cfg.Server.Port)
	fmt.Printf("Source:         %s\n", cfg.Source.URL)
	fmt.Printf("Refresh:        every %s\n", cfg.Refresh.Interval)
	fmt.Printf("Sync push:      %v\n", cfg.Sync.PushURL != "")
	fmt.Printf("Archive:        %v\n", app.DB != nil)
	fmt.Println("============================================")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}

	<-done
	fmt.Println("Server stopped")
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "Karnataka Anemia Surveillance Platform",
		"version": "0.1.0",
		"docs":    "/api/v1",
	})
}

func healthHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
		})
	}
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		// A snapshot must have been produced at least once
		snap := app.Pipeline.Snapshot()
		switch {
		case snap.Err:
			checks["pipeline"] = "not ready: " + snap.Status
		case snap.LastUpdated.IsZero():
			checks["pipeline"] = "not ready: no snapshot yet"
		default:
			checks["pipeline"] = "ready"
		}

		// Check database
		if app.DB != nil {
			if err := app.DB.Health(r.Context()); err != nil {
				checks["database"] = "not ready: " + err.Error()
			} else {
				checks["database"] = "ready"
			}
		} else {
			checks["database"] = "not configured"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

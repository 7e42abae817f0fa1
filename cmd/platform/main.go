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
	"github.com/zaiqahq/storefront/internal/adapters/legacy"
	"github.com/zaiqahq/storefront/internal/coverage"
	"github.com/zaiqahq/storefront/internal/geo"
	"github.com/zaiqahq/storefront/internal/menu"
	"github.com/zaiqahq/storefront/internal/resolve"
	"github.com/zaiqahq/storefront/internal/shared/auth"
	"github.com/zaiqahq/storefront/internal/shared/config"
	"github.com/zaiqahq/storefront/internal/shared/database"
	"github.com/zaiqahq/storefront/internal/shared/events"
	"github.com/zaiqahq/storefront/internal/shared/metrics"
	secmiddleware "github.com/zaiqahq/storefront/internal/shared/middleware"
)

// App holds all application dependencies
type App struct {
	Config   *config.Config
	DB       *database.DB
	Bus      *events.Bus
	Cache    *resolve.Cache
	Coverage *coverage.Catalog
	Menus    *menu.Catalog
	Importer *legacy.Importer
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	bounds := geo.BoundingBox{
		MinLat: cfg.Region.MinLat,
		MaxLat: cfg.Region.MaxLat,
		MinLng: cfg.Region.MinLng,
		MaxLng: cfg.Region.MaxLng,
	}
	venue := geo.Coordinate{Lat: cfg.Region.VenueLat, Lng: cfg.Region.VenueLng}

	app := &App{
		Config:   cfg,
		Coverage: coverage.NewCatalog(),
		Menus:    menu.NewCatalog(),
	}

	// Initialize database (optional - skip if not available)
	var coverageRepo *coverage.Repository
	var menuRepo *menu.Repository
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		fmt.Printf("Warning: Database not available: %v\n", err)
		fmt.Println("Running with in-memory catalogs only...")
	} else {
		app.DB = db
		defer db.Close()

		// Run migrations
		if err := database.Migrate(ctx, db.Pool); err != nil {
			fmt.Printf("Warning: Migration failed: %v\n", err)
		}

		coverageRepo = coverage.NewRepository(db.Pool)
		menuRepo = menu.NewRepository(db.Pool)

		// Warm the catalogs from persisted state
		areas, zones, err := coverageRepo.LoadAll(ctx)
		if err != nil {
			fmt.Printf("Warning: Failed to load coverage catalog: %v\n", err)
		} else {
			app.Coverage.Replace(areas, zones)
			fmt.Printf("Coverage catalog loaded (%d areas, %d zones)\n", len(areas), len(zones))
		}
		items, err := menuRepo.LoadAll(ctx)
		if err != nil {
			fmt.Printf("Warning: Failed to load menu catalog: %v\n", err)
		} else {
			app.Menus.Replace(items)
			fmt.Printf("Menu catalog loaded (%d items)\n", len(items))
		}
	}

	// Initialize event bus (optional - skip if not available)
	if cfg.EventStore.Enabled {
		bus, err := events.NewBus(ctx, cfg.EventStore)
		if err != nil {
			fmt.Printf("Warning: EventStore not available: %v\n", err)
			fmt.Println("Running without event streaming...")
		} else {
			app.Bus = bus
			defer bus.Close()
			fmt.Println("EventStore bus initialized")
		}
	}

	// Initialize resolution cache (optional)
	if cfg.Redis.Enabled {
		cache, err := resolve.NewCache(ctx, cfg.Redis)
		if err != nil {
			fmt.Printf("Warning: Redis not available: %v\n", err)
			fmt.Println("Running without resolution cache...")
		} else {
			app.Cache = cache
			defer cache.Close()
			fmt.Println("Resolution cache initialized")
		}
	}

	// Legacy importer (migration window only)
	if cfg.Legacy.Enabled {
		importer := legacy.New(cfg.Legacy, app.Coverage, app.Menus, bounds)
		if err := importer.Start(ctx); err != nil {
			fmt.Printf("Warning: Legacy importer failed to start: %v\n", err)
		} else {
			app.Importer = importer
			defer importer.Stop()
			fmt.Println("Legacy importer started")
		}
	}

	resolver := resolve.NewResolver(app.Coverage, bounds, venue)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware)

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler(app))
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	// API info
	r.Get("/", infoHandler)

	r.Route("/api/v1", func(r chi.Router) {
		// Public storefront endpoints: per-IP rate limited, no auth
		r.Group(func(r chi.Router) {
			ipLimiter := secmiddleware.NewIPRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
			r.Use(ipLimiter.Middleware)

			resolveAPI := resolve.NewAPI(resolver, app.Menus, app.Cache)
			r.Mount("/delivery", resolveAPI.Routes())
		})

		// Admin endpoints: authenticated in production
		r.Group(func(r chi.Router) {
			if cfg.Server.Env == "production" {
				r.Use(auth.Middleware(cfg.Auth))
				r.Use(auth.RequireRoles("admin"))
			}

			var resolutionCache coverage.ResolutionCache
			if app.Cache != nil {
				resolutionCache = app.Cache
			}
			coverageHandler := coverage.NewHandler(app.Coverage, coverageRepo, app.Bus, resolutionCache, bounds)
			r.Mount("/admin/coverage", coverageHandler.Routes())

			menuHandler := menu.NewHandler(app.Menus, menuRepo, app.Bus)
			r.Mount("/admin/menu", menuHandler.Routes())
		})
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
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		fmt.Println("\nShutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			fmt.Printf("Server shutdown error: %v\n", err)
		}
		close(done)
	}()

	fmt.Println("============================================")
	fmt.Println("Zaiqa Storefront Delivery Platform")
	fmt.Println("============================================")
	fmt.Printf("Environment:  %s\n", cfg.Server.Env)
	fmt.Printf("Server:       http://localhost:%d\n", cfg.Server.Port)
	fmt.Printf("Resolve:      http://localhost:%d/api/v1/delivery/resolve\n", cfg.Server.Port)
	fmt.Printf("Health:       http://localhost:%d/health\n", cfg.Server.Port)
	fmt.Printf("Venue:        %.4f, %.4f\n", cfg.Region.VenueLat, cfg.Region.VenueLng)
	fmt.Printf("Region:       lat [%.1f, %.1f] lng [%.1f, %.1f]\n",
		cfg.Region.MinLat, cfg.Region.MaxLat, cfg.Region.MinLng, cfg.Region.MaxLng)
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
		"name":    "Zaiqa Storefront Delivery Platform",
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

		// Check event bus
		if app.Bus != nil {
			if err := app.Bus.Health(); err != nil {
				checks["eventstore"] = "not ready: " + err.Error()
			} else {
				checks["eventstore"] = "ready"
			}
		} else {
			checks["eventstore"] = "not configured"
		}

		// A storefront with no coverage areas cannot serve orders
		areaCount, _ := app.Coverage.Size()
		if areaCount == 0 {
			checks["coverage"] = "not ready: no areas loaded"
		} else {
			checks["coverage"] = "ready"
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
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

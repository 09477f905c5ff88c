package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/qalileo/qalileo/internal/api/handlers"
	mw "github.com/qalileo/qalileo/internal/api/middleware"
	"github.com/qalileo/qalileo/internal/config"
	"github.com/qalileo/qalileo/internal/domain"
	"github.com/qalileo/qalileo/internal/provision"
	"github.com/qalileo/qalileo/internal/resolver"
	"github.com/qalileo/qalileo/internal/service"
	"github.com/qalileo/qalileo/internal/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App holds the router and runtime metrics for lifecycle management.
type App struct {
	Router       *chi.Mux
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

// NewApp wires stores, resolver, services and handlers into a router.
// rdb may be nil, in which case directory lookups skip the cache layer.
func NewApp(db *pgxpool.Pool, rdb *redis.Client, provider provision.Provider, baseHostname string, logger *zap.Logger) *App {
	// Stores, optionally wrapped in the redis read-through cache
	var tenantStore domain.TenantStore = store.NewTenantStore(db)
	var domainStore domain.DomainStore = store.NewDomainStore(db)
	docStore := store.NewDocumentationStore(db)

	if rdb != nil {
		tenantStore = store.NewCachedTenantStore(tenantStore, rdb, logger)
		domainStore = store.NewCachedDomainStore(domainStore, rdb, logger)
		logger.Info("directory lookup caching enabled")
	}

	res := resolver.New(tenantStore, domainStore, baseHostname)

	// Services
	tenantSvc := service.NewTenantService(tenantStore, logger)
	domainSvc := service.NewDomainService(domainStore, tenantStore, provider, baseHostname, logger)
	docsSvc := service.NewDocsService(docStore, logger)

	// Handlers
	tenantHandler := handlers.NewTenantHandler(tenantSvc)
	domainHandler := handlers.NewDomainHandler(domainSvc)
	docsHandler := handlers.NewDocsHandler(docsSvc)
	siteHandler := handlers.NewSiteHandler(docsSvc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		startTime: time.Now(),
	}

	// Metrics collector for middleware
	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters: the session must be established
	// before routing decides the request's scope)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))
	r.Use(mw.SessionAuth(config.SessionSecret()))

	// Probes stay outside tenant routing so they answer on any host,
	// including hosts that do not resolve yet.
	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())
	r.Get("/v1/domains/verify", domainHandler.Verify)

	r.Group(func(r chi.Router) {
		r.Use(mw.TenantRouting(res, logger))

		// Tenant onboarding needs a session but no existing membership
		r.Post("/v1/tenants", tenantHandler.Create)

		// Staff routes, platform host only
		r.Route("/v1", func(r chi.Router) {
			r.Route("/tenants/me", func(r chi.Router) {
				r.Get("/", tenantHandler.Get)
				r.Put("/", tenantHandler.Update)
				r.Post("/staff", tenantHandler.AddStaff)
				r.Put("/staff/{userID}", tenantHandler.UpdateStaffRole)
				r.Delete("/staff/{userID}", tenantHandler.RemoveStaff)
				r.Post("/transfer", tenantHandler.TransferOwnership)
			})

			r.Route("/domains", func(r chi.Router) {
				r.Post("/", domainHandler.Register)
				r.Get("/", domainHandler.List)
				r.Post("/{id}/refresh", domainHandler.Refresh)
				r.Delete("/{id}", domainHandler.Remove)
			})

			r.Route("/docs", func(r chi.Router) {
				r.Get("/", docsHandler.List)
				r.Post("/", docsHandler.Create)
				r.Route("/{slug}", func(r chi.Router) {
					r.Get("/", docsHandler.Get)
					r.Put("/", docsHandler.Update)
					r.Put("/status", docsHandler.SetStatus)
					r.Delete("/", docsHandler.Delete)
				})
			})
		})

		// Public site. Tenant-host requests arrive here after the routing
		// middleware rewrote their path under the tenant slug.
		r.Route("/{tenantSlug}", func(r chi.Router) {
			r.Get("/", siteHandler.List)
			r.Get("/{docSlug}", siteHandler.Get)
		})
	})

	return app
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.TenantStore        = (*store.TenantStore)(nil)
	_ domain.TenantStore        = (*store.CachedTenantStore)(nil)
	_ domain.DomainStore        = (*store.DomainStore)(nil)
	_ domain.DomainStore        = (*store.CachedDomainStore)(nil)
	_ domain.DocumentationStore = (*store.DocumentationStore)(nil)
	_ provision.Provider        = (*provision.VercelClient)(nil)
	_ provision.Provider        = (*provision.MockProvider)(nil)
)

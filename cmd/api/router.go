package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-apotek/internal/app"
	"github.com/noah-isme/backend-apotek/internal/auth"
	"github.com/noah-isme/backend-apotek/internal/billing"
	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/config"
	"github.com/noah-isme/backend-apotek/internal/dashboard"
	"github.com/noah-isme/backend-apotek/internal/health"
	"github.com/noah-isme/backend-apotek/internal/inventory"
	"github.com/noah-isme/backend-apotek/internal/obs"
	"github.com/noah-isme/backend-apotek/internal/prescription"
	"github.com/noah-isme/backend-apotek/internal/queue"
	"github.com/noah-isme/backend-apotek/internal/ratelimit"
	"github.com/noah-isme/backend-apotek/internal/security"
)

type routerDeps struct {
	cfg            *config.Config
	logger         zerolog.Logger
	tracingEnabled bool
	deps           *app.Dependencies
	auth           *auth.Service
	inventory      *inventory.Service
	prescriptions  *prescription.Service
	billing        *billing.Service
	dashboard      *dashboard.Service
	probes         []health.Probe
}

func newRouter(d routerDeps) (http.Handler, error) {
	cfg := d.cfg

	authLimit, err := ratelimit.FixedWindow(d.deps.LimiterStore, cfg.RateLimitAuth)
	if err != nil {
		return nil, err
	}
	writeLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: d.deps.Redis, Prefix: "apotek:rl:"},
		Config: ratelimit.Config{
			Key:    ratelimit.PrincipalOrIP("bills"),
			Window: cfg.RateLimitWriteWindow,
			Max:    cfg.RateLimitWriteMax,
		},
		OnError: func(err error) {
			d.logger.Warn().Err(err).Msg("write rate limiter unavailable")
		},
	}
	idem := common.Idem{R: d.deps.Redis, TTL: cfg.IdempotencyTTL}

	authMW := auth.Middleware{Service: d.auth}
	authHandler := &auth.Handler{Service: d.auth}
	medicineHandler := &inventory.Handler{Svc: d.inventory}
	prescriptionHandler := &prescription.Handler{Svc: d.prescriptions}
	billHandler := &billing.Handler{Svc: d.billing}
	dashboardHandler := &dashboard.Handler{Svc: d.dashboard}
	queueAdmin := &queue.AdminHandler{
		Inspector: d.deps.Inspector,
		Queue:     queue.DefaultQueue,
		Logger:    obs.Component(d.logger, "queue-admin"),
	}

	staffWriters := auth.RequireRole(auth.RoleStaff, auth.RolePharmacist, auth.RoleAdmin)
	pharmacy := auth.RequireRole(auth.RolePharmacist, auth.RoleAdmin)
	adminOnly := auth.RequireRole(auth.RoleAdmin)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if d.tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if cfg.MetricsEnabled {
		httpMetrics := obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBucketsMS), nil)
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.logger}.Middleware)
	hsts := cfg.HSTSMaxAge
	if hsts == 0 && cfg.IsProduction() {
		hsts = 365 * 24 * time.Hour
	}
	r.Use(security.Headers{HSTS: hsts}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: len(cfg.CORSAllowedOrigins) > 0,
		MaxAge:           300,
	}))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(security.BodyLimit{Max: cfg.MaxBodyBytes}.Middleware)

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	healthHandler := health.Handler{Probes: d.probes}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/auth", func(a chi.Router) {
			a.With(authLimit).Post("/register", authHandler.Register)
			a.With(authLimit).Post("/login", authHandler.Login)
			a.With(authMW.RequireAuth).Get("/me", authHandler.Me)
		})

		v.Group(func(p chi.Router) {
			p.Use(authMW.RequireAuth)

			p.Route("/bills", func(b chi.Router) {
				b.Get("/", billHandler.List)
				b.With(staffWriters, writeLimit.Middleware, idem.Middleware).Post("/", billHandler.Create)
				b.Get("/{id}", billHandler.Get)
				b.With(staffWriters, writeLimit.Middleware).Put("/{id}", billHandler.Update)
				b.With(pharmacy).Delete("/{id}", billHandler.Cancel)
			})

			p.Route("/medicines", func(m chi.Router) {
				m.Get("/", medicineHandler.List)
				m.Get("/alerts/low-stock", medicineHandler.LowStock)
				m.Get("/alerts/expiring", medicineHandler.Expiring)
				m.Get("/{id}", medicineHandler.Get)
				m.With(staffWriters).Post("/", medicineHandler.Create)
				m.With(staffWriters).Put("/{id}", medicineHandler.Update)
				m.With(staffWriters).Patch("/{id}/stock", medicineHandler.AdjustStock)
				m.With(pharmacy).Delete("/{id}", medicineHandler.Delete)
			})

			p.Route("/prescriptions", func(rx chi.Router) {
				rx.Get("/", prescriptionHandler.List)
				rx.With(staffWriters).Post("/", prescriptionHandler.Create)
				rx.Get("/{id}", prescriptionHandler.Get)
				rx.With(staffWriters).Put("/{id}", prescriptionHandler.Update)
				rx.With(staffWriters).Patch("/{id}/status", prescriptionHandler.UpdateStatus)
				rx.With(pharmacy).Delete("/{id}", prescriptionHandler.Delete)
			})

			p.Route("/dashboard", func(ds chi.Router) {
				ds.Get("/stats", dashboardHandler.Stats)
				ds.Get("/sales-chart", dashboardHandler.SalesChart)
				ds.Get("/top-medicines", dashboardHandler.TopMedicines)
				ds.Get("/activities", dashboardHandler.Activities)
			})

			p.Route("/admin/queue", func(q chi.Router) {
				q.Use(adminOnly)
				q.Get("/stats", queueAdmin.Stats)
				q.Get("/dlq", queueAdmin.ListDLQ)
				q.Post("/dlq/replay", queueAdmin.ReplayDLQ)
			})
		})
	})

	return r, nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

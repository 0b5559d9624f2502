package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/crucial707/asset-custody/internal/acta"
	"github.com/crucial707/asset-custody/internal/config"
	"github.com/crucial707/asset-custody/internal/handlers"
	"github.com/crucial707/asset-custody/internal/ledger"
	"github.com/crucial707/asset-custody/internal/middleware"
	"github.com/crucial707/asset-custody/internal/models"
	"github.com/crucial707/asset-custody/internal/repo"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newRouter wires repositories, the ledger and handlers into the HTTP API.
func newRouter(database *sql.DB, cfg config.Config) http.Handler {
	// ==========================
	// Repositories and services
	// ==========================
	assetRepo := repo.NewAssetRepo(database)
	collaboratorRepo := repo.NewCollaboratorRepo(database)
	movementRepo := repo.NewMovementRepo(database)
	userRepo := repo.NewUserRepo(database)
	auditRepo := repo.NewAuditRepo(database)
	custody := ledger.New(database)

	authHandler := &handlers.AuthHandler{
		UserRepo:     userRepo,
		Secret:       []byte(cfg.JWTSecret),
		TTL:          cfg.TokenTTL(),
		SecureCookie: cfg.TLSCertFile != "",
	}
	userHandler := &handlers.UserHandler{Repo: userRepo, AuditRepo: auditRepo}
	assetHandler := &handlers.AssetHandler{Repo: assetRepo, Movements: movementRepo, Ledger: custody, AuditRepo: auditRepo}
	collaboratorHandler := &handlers.CollaboratorHandler{Repo: collaboratorRepo, Movements: movementRepo, Ledger: custody, AuditRepo: auditRepo}
	movementHandler := &handlers.MovementHandler{Repo: movementRepo, Ledger: custody}
	actaHandler := &handlers.ActaHandler{
		Repo:          repo.NewActaRepo(database),
		Collaborators: collaboratorRepo,
		Assets:        assetRepo,
		Ledger:        custody,
		Renderer:      &acta.Renderer{Dir: cfg.ActaDir},
		AuditRepo:     auditRepo,
	}
	peripheralHandler := &handlers.PeripheralHandler{Repo: repo.NewPeripheralRepo(database), AuditRepo: auditRepo}
	reportHandler := &handlers.ReportHandler{Repo: repo.NewReportRepo(database)}
	auditHandler := &handlers.AuditHandler{Repo: auditRepo}

	loginLimiter := middleware.LoginRateLimiter(cfg.LoginRatePerMin, cfg.LoginRateBurst)
	if err := loginLimiter.TrustProxies(cfg.TrustedProxies); err != nil {
		slog.Warn("ignoring TRUSTED_PROXIES", "err", err)
	}

	// ==========================
	// Router
	// ==========================
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.TLSCertFile != ""))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := database.PingContext(ctx); err != nil {
			handlers.JSONError(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ready"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.With(loginLimiter.Middleware).Post("/auth/login", authHandler.Login)
	r.Post("/auth/logout", authHandler.Logout)

	editors := middleware.RequireRole(models.RoleAdmin, models.RoleStatus)
	admins := middleware.RequireRole(models.RoleAdmin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTMiddleware([]byte(cfg.JWTSecret)))

		r.Get("/auth/me", authHandler.Me)

		r.Route("/assets", func(r chi.Router) {
			r.Get("/", assetHandler.ListAssets)
			r.With(editors).Post("/", assetHandler.CreateAsset)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", assetHandler.GetAsset)
				r.With(editors).Put("/", assetHandler.UpdateAsset)
				r.With(admins).Delete("/", assetHandler.DeleteAsset)
				r.Get("/history", assetHandler.AssetHistory)
				r.Get("/movements", assetHandler.AssetMovements)
				r.Get("/assignments", assetHandler.AssetAssignments)
				r.With(editors).Post("/state", assetHandler.SetAssetState)
			})
		})

		r.Route("/collaborators", func(r chi.Router) {
			r.Get("/", collaboratorHandler.ListCollaborators)
			r.With(editors).Post("/", collaboratorHandler.CreateCollaborator)
			r.Get("/autocomplete", collaboratorHandler.Autocomplete)
			r.Get("/search", collaboratorHandler.Search)
			r.Get("/projects", collaboratorHandler.Projects)
			r.Get("/supervisors", collaboratorHandler.Supervisors)
			r.Get("/options", collaboratorHandler.Options)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", collaboratorHandler.GetCollaborator)
				r.With(editors).Put("/", collaboratorHandler.UpdateCollaborator)
				r.Get("/history", collaboratorHandler.History)
				r.With(editors).Post("/activate", collaboratorHandler.Activate)
				r.With(editors).Post("/deactivate", collaboratorHandler.Deactivate)
			})
		})

		r.Route("/movements", func(r chi.Router) {
			r.Get("/", movementHandler.ListMovements)
			r.With(editors).Post("/", movementHandler.CreateMovement)
			r.Get("/asset/{id}", movementHandler.ListByAsset)
		})

		r.Route("/actas", func(r chi.Router) {
			r.Get("/", actaHandler.ListActas)
			r.With(editors).Post("/", actaHandler.CreateActa)
			r.Get("/{id}", actaHandler.GetActa)
			r.Get("/{id}/download", actaHandler.DownloadActa)
		})

		r.Route("/peripherals", func(r chi.Router) {
			r.Get("/", peripheralHandler.ListPeripherals)
			r.With(editors).Post("/", peripheralHandler.CreatePeripheral)
			r.Get("/{id}/moves", peripheralHandler.ListMoves)
			r.With(editors).Post("/{id}/moves", peripheralHandler.MoveStock)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleReport))
			r.Get("/kpis", reportHandler.KPIs)
			r.Get("/exports", reportHandler.ListExports)
			r.Get("/export/{name}", reportHandler.Export)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(admins)
			r.Get("/", userHandler.ListUsers)
			r.Post("/", userHandler.CreateUser)
			r.Get("/{id}", userHandler.GetUser)
			r.Put("/{id}", userHandler.UpdateUser)
			r.Delete("/{id}", userHandler.DeleteUser)
		})

		r.With(admins).Get("/audit", auditHandler.ListAudit)
	})

	return r
}

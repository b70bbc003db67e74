package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/fleetshop-backend/api/controllers"
	"github.com/angelmondragon/fleetshop-backend/api/middleware"
	"github.com/angelmondragon/fleetshop-backend/internal/auth"
	"github.com/angelmondragon/fleetshop-backend/internal/checklists"
	"github.com/angelmondragon/fleetshop-backend/internal/drafts"
	"github.com/angelmondragon/fleetshop-backend/internal/locations"
	"github.com/angelmondragon/fleetshop-backend/internal/parts"
	"github.com/angelmondragon/fleetshop-backend/internal/servicerecords"
	"github.com/angelmondragon/fleetshop-backend/internal/suppliers"
	"github.com/angelmondragon/fleetshop-backend/internal/vehicles"
	"github.com/angelmondragon/fleetshop-backend/pkg/auth/session"
	"github.com/angelmondragon/fleetshop-backend/pkg/config"
	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	"github.com/angelmondragon/fleetshop-backend/pkg/enums"
	"github.com/angelmondragon/fleetshop-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/fleetshop-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// KeyValueStore backs idempotency replay and login throttling.
type KeyValueStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type partImporter interface {
	Create(ctx context.Context, part *models.Part) (*models.Part, error)
}

// Deps carries everything the HTTP surface is wired to.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Store    KeyValueStore
	Sessions sessionManager
	Gatherer prometheus.Gatherer
	Ready    []controllers.Dependency

	Auth           auth.Service
	Register       auth.RegisterService
	Vehicles       vehicles.Service
	Suppliers      suppliers.Service
	Locations      locations.Service
	Parts          parts.Service
	PartImporter   partImporter
	Checklists     checklists.Service
	ServiceRecords servicerecords.Service
	Drafts         drafts.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	store := d.Store

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Ready...))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/api/public/ping", controllers.Ping("public"))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, store, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(d.Sessions, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Sessions, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		r.Use(idempotency(store, logg))

		r.Get("/ping", controllers.Ping("private"))
		r.Get("/me", controllers.CurrentUser(d.Auth, logg))

		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/", controllers.VehicleList(d.Vehicles, logg))
			r.Route("/{vehicleID}", func(r chi.Router) {
				r.Get("/", controllers.VehicleGet(d.Vehicles, logg))
				r.Get("/checklists/{serviceType}", controllers.ChecklistGet(d.Checklists, logg))
				r.Get("/service-records", controllers.ServiceRecordList(d.ServiceRecords, logg))
			})
		})
		r.Get("/service-records/{recordID}", controllers.ServiceRecordGet(d.ServiceRecords, logg))

		r.Route("/parts", func(r chi.Router) {
			r.Get("/", controllers.PartList(d.Parts, logg))
			r.Get("/{partID}", controllers.PartGet(d.Parts, logg))
			r.Get("/{partID}/invoice", controllers.PartInvoiceURL(d.Parts, logg))
		})
		r.Get("/suppliers", controllers.SupplierList(d.Suppliers, logg))
		r.Get("/suppliers/{supplierID}", controllers.SupplierGet(d.Suppliers, logg))
		r.Get("/locations", controllers.LocationList(d.Locations, logg))
		r.Get("/locations/{locationID}", controllers.LocationGet(d.Locations, logg))

		r.Route("/drafts", func(r chi.Router) {
			r.Post("/", controllers.DraftOpen(d.Drafts, logg))
			r.Route("/{draftID}", func(r chi.Router) {
				r.Get("/", controllers.DraftGet(d.Drafts, logg))
				r.Patch("/", controllers.DraftUpdate(d.Drafts, logg))
				r.Delete("/", controllers.DraftCancel(d.Drafts, logg))
				r.Put("/service-type", controllers.DraftSetServiceType(d.Drafts, logg))
				r.Post("/tasks/toggle", controllers.DraftToggleTask(d.Drafts, logg))
				r.Post("/parts", controllers.DraftReservePart(d.Drafts, logg))
				r.Delete("/parts/{partID}", controllers.DraftReleasePart(d.Drafts, logg))
				r.Post("/submit", controllers.DraftSubmit(d.Drafts, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
		r.Use(idempotency(store, logg))

		r.Get("/ping", controllers.Ping("admin"))
		r.Post("/auth/register", controllers.AuthRegister(d.Register, logg))

		r.Route("/vehicles", func(r chi.Router) {
			r.Post("/", controllers.VehicleCreate(d.Vehicles, logg))
			r.Patch("/{vehicleID}", controllers.VehicleUpdate(d.Vehicles, logg))
			r.Delete("/{vehicleID}", controllers.VehicleDelete(d.Vehicles, logg))
			r.Put("/{vehicleID}/checklists/{serviceType}", controllers.ChecklistPut(d.Checklists, logg))
		})
		r.Delete("/service-records/{recordID}", controllers.ServiceRecordDelete(d.ServiceRecords, logg))

		r.Route("/parts", func(r chi.Router) {
			r.Post("/", controllers.PartCreate(d.Parts, logg))
			r.Post("/import", controllers.PartImport(d.PartImporter, logg))
			r.Patch("/{partID}", controllers.PartUpdate(d.Parts, logg))
			r.Delete("/{partID}", controllers.PartDelete(d.Parts, logg))
			r.Post("/{partID}/invoice", controllers.PartAttachInvoice(d.Parts, cfg.GCS.MaxUploadBytes(), logg))
		})
		r.Route("/suppliers", func(r chi.Router) {
			r.Post("/", controllers.SupplierCreate(d.Suppliers, logg))
			r.Put("/{supplierID}", controllers.SupplierUpdate(d.Suppliers, logg))
			r.Delete("/{supplierID}", controllers.SupplierDelete(d.Suppliers, logg))
		})
		r.Route("/locations", func(r chi.Router) {
			r.Post("/", controllers.LocationCreate(d.Locations, logg))
			r.Put("/{locationID}", controllers.LocationUpdate(d.Locations, logg))
			r.Delete("/{locationID}", controllers.LocationDelete(d.Locations, logg))
		})
	})

	return r
}

func idempotency(store KeyValueStore, logg *logger.Logger) func(http.Handler) http.Handler {
	if store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.Idempotency(store, logg)
}

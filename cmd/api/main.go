package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/fleetshop-backend/api/controllers"
	"github.com/angelmondragon/fleetshop-backend/api/routes"
	"github.com/angelmondragon/fleetshop-backend/internal/auth"
	"github.com/angelmondragon/fleetshop-backend/internal/checklists"
	"github.com/angelmondragon/fleetshop-backend/internal/drafts"
	"github.com/angelmondragon/fleetshop-backend/internal/locations"
	"github.com/angelmondragon/fleetshop-backend/internal/parts"
	"github.com/angelmondragon/fleetshop-backend/internal/servicerecords"
	"github.com/angelmondragon/fleetshop-backend/internal/suppliers"
	"github.com/angelmondragon/fleetshop-backend/internal/users"
	"github.com/angelmondragon/fleetshop-backend/internal/vehicles"
	"github.com/angelmondragon/fleetshop-backend/pkg/auth/session"
	"github.com/angelmondragon/fleetshop-backend/pkg/config"
	"github.com/angelmondragon/fleetshop-backend/pkg/db"
	"github.com/angelmondragon/fleetshop-backend/pkg/logger"
	"github.com/angelmondragon/fleetshop-backend/pkg/metrics"
	"github.com/angelmondragon/fleetshop-backend/pkg/migrate"
	"github.com/angelmondragon/fleetshop-backend/pkg/pubsub"
	"github.com/angelmondragon/fleetshop-backend/pkg/redis"
	"github.com/angelmondragon/fleetshop-backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithField(context.Background(), "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	ready := []controllers.Dependency{
		{Name: "database", Pinger: dbClient},
		{Name: "redis", Pinger: redisClient},
	}

	var blob *gcs.Client
	if strings.TrimSpace(cfg.GCS.BucketName) != "" {
		blob, err = gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		requireResource(ctx, logg, "gcs", err)
		defer func() {
			if err := blob.Close(); err != nil {
				logg.Error(ctx, "error closing gcs client", err)
			}
		}()
		ready = append(ready, controllers.Dependency{Name: "gcs", Pinger: blob})
	} else {
		logg.Warn(ctx, "gcs bucket not configured, invoice uploads disabled")
		ready = append(ready, controllers.Dependency{Name: "gcs"})
	}

	var events pubsub.EventPublisher = pubsub.NoopPublisher{}
	if strings.TrimSpace(cfg.PubSub.InventoryTopic) != "" {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		requireResource(ctx, logg, "pubsub", err)
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(ctx, "error closing pubsub client", err)
			}
		}()
		events = pubsub.NewEventPublisher(psClient.InventoryPublisher())
		ready = append(ready, controllers.Dependency{Name: "pubsub", Pinger: psClient})
	} else {
		logg.Warn(ctx, "inventory topic not configured, low-stock alerts are logged only")
		ready = append(ready, controllers.Dependency{Name: "pubsub"})
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	draftMetrics := metrics.NewDraftMetrics(registry)

	gormDB := dbClient.DB()
	userRepo := users.NewRepository(gormDB)
	vehicleRepo := vehicles.NewRepository(gormDB)
	partRepo := parts.NewRepository(gormDB)
	recordRepo := servicerecords.NewRepository(gormDB)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: &cfg.Password,
	})
	requireResource(ctx, logg, "auth service", err)

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	requireResource(ctx, logg, "register service", err)

	vehicleService, err := vehicles.NewService(vehicleRepo)
	requireResource(ctx, logg, "vehicle service", err)

	supplierService, err := suppliers.NewService(suppliers.NewRepository(gormDB))
	requireResource(ctx, logg, "supplier service", err)

	locationService, err := locations.NewService(locations.NewRepository(gormDB))
	requireResource(ctx, logg, "location service", err)

	partParams := parts.ServiceParams{
		Repo:           partRepo,
		MaxUploadBytes: cfg.GCS.MaxUploadBytes(),
		Logger:         logg,
	}
	if blob != nil {
		partParams.Blob = blob
	}
	partService, err := parts.NewService(partParams)
	requireResource(ctx, logg, "part service", err)

	checklistService, err := checklists.NewService(checklists.NewRepository(gormDB))
	requireResource(ctx, logg, "checklist service", err)

	recordService, err := servicerecords.NewService(recordRepo)
	requireResource(ctx, logg, "service record service", err)

	draftStore, draftLocker := draftBackends(ctx, cfg, logg, redisClient)
	draftService, err := drafts.NewService(drafts.ServiceParams{
		Store:      draftStore,
		Locker:     draftLocker,
		Parts:      partRepo,
		Vehicles:   vehicleRepo,
		Records:    recordRepo,
		Checklists: checklistService,
		Identity:   authService,
		Notifier:   parts.NewLowStockNotifier(events, logg),
		Metrics:    draftMetrics,
		Logger:     logg,
	})
	requireResource(ctx, logg, "draft service", err)

	handler := routes.NewRouter(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		Store:          redisClient,
		Sessions:       sessionManager,
		Gatherer:       registry,
		Ready:          ready,
		Auth:           authService,
		Register:       registerService,
		Vehicles:       vehicleService,
		Suppliers:      supplierService,
		Locations:      locationService,
		Parts:          partService,
		PartImporter:   partRepo,
		Checklists:     checklistService,
		ServiceRecords: recordService,
		Drafts:         draftService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithField(ctx, "addr", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}()

	logg.Info(ctx, "starting api server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

// draftBackends picks where draft sessions live. Redis keeps drafts across
// restarts and instances; memory is for single-process local runs.
func draftBackends(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *redis.Client) (drafts.SessionStore, drafts.Locker) {
	if cfg.FeatureFlags.UseMemoryDrafts {
		logg.Warn(ctx, "draft sessions held in process memory")
		return drafts.NewMemoryStore(cfg.Drafts.SessionTTL), drafts.NewMutexLocker()
	}
	return drafts.NewRedisStore(client, cfg.Drafts.SessionTTL),
		drafts.NewRedisLocker(client, cfg.Drafts.LockTTL, cfg.Drafts.LockRetries, cfg.Drafts.LockRetryWait)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

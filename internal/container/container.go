// Package container builds the application graph once at startup and hands
// the constructed components to the router and the process lifecycle.
package container

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-tracker/config"
	"github.com/oksasatya/go-task-tracker/internal/application"
	"github.com/oksasatya/go-task-tracker/internal/domain/repository"
	"github.com/oksasatya/go-task-tracker/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/go-task-tracker/internal/infrastructure/postgres"
	"github.com/oksasatya/go-task-tracker/internal/infrastructure/search"
	handlers "github.com/oksasatya/go-task-tracker/internal/interface/http"
	"github.com/oksasatya/go-task-tracker/internal/metrics"
	"github.com/oksasatya/go-task-tracker/pkg/attachment"
	"github.com/oksasatya/go-task-tracker/pkg/helpers"
	"github.com/oksasatya/go-task-tracker/pkg/mailer"
)

// Infra carries the already-connected clients. Any of them may be nil.
type Infra struct {
	Pool   *pgxpool.Pool
	Redis  *redis.Client
	GCS    *storage.Client
	ES     *elasticsearch.Client
	Sender mailer.Sender
}

// Container is the app-level set of shared components.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger
	Redis  *redis.Client

	JWT         *helpers.JWTManager
	Attachments *attachment.Store
	Users       repository.UserRepository
	Tasks       repository.TaskRepository

	AuthService *application.AuthService
	TaskService *application.TaskService
	Reminders   *application.ReminderScheduler

	AuthHandler   *handlers.AuthHandler
	TaskHandler   *handlers.TaskHandler
	HealthHandler *handlers.HealthHandler

	// Metrics and Registry are nil when METRICS_ENABLED=false.
	Metrics  *metrics.Collector
	Registry *prometheus.Registry
}

// Build wires repositories, storage, services and handlers from cfg and infra.
func Build(ctx context.Context, cfg *config.Config, logger *logrus.Logger, infra Infra) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger, Redis: infra.Redis}

	switch cfg.DBDriver {
	case "memory":
		c.Users, c.Tasks = memory.NewUserRepository(), memory.NewTaskRepository()
	case "postgres":
		if infra.Pool == nil {
			return nil, fmt.Errorf("DB_DRIVER=postgres requires a database pool")
		}
		c.Users, c.Tasks = pginfra.NewUserRepository(infra.Pool), pginfra.NewTaskRepository(infra.Pool)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}

	backend, err := newBackend(cfg, infra.GCS)
	if err != nil {
		return nil, err
	}
	c.Attachments = attachment.NewStore(backend)

	var verifier application.AssertionVerifier
	if cfg.GoogleClientID != "" {
		gv, err := application.NewGoogleVerifier(ctx, cfg.GoogleClientID)
		if err != nil {
			return nil, fmt.Errorf("google verifier: %w", err)
		}
		verifier = gv
	} else {
		logger.Warn("GOOGLE_CLIENT_ID not set; Google sign-in disabled")
	}

	var indexer application.TaskIndexer
	if infra.ES != nil {
		ti := search.NewTaskIndexer(infra.ES, cfg.ESTasksIndex, logger)
		if err := ti.EnsureIndex(ctx); err != nil {
			logger.WithError(err).Warn("search index not ready; documents will be indexed with dynamic mapping")
		}
		indexer = ti
	}

	c.JWT = helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL, cfg.AppName)
	c.AuthService = application.NewAuthService(c.Users, c.JWT, c.Attachments, verifier, logger)
	c.TaskService = application.NewTaskService(c.Tasks, c.Attachments, indexer, logger)

	var ledger application.ReminderLedger
	if infra.Redis != nil {
		ledger = application.NewRedisReminderLedger(infra.Redis)
	} else {
		ledger = application.NewMemoryReminderLedger()
	}
	c.Reminders = application.NewReminderScheduler(c.Tasks, c.Users, infra.Sender, ledger, application.ReminderConfig{
		Schedule:    cfg.ReminderSchedule(),
		HorizonDays: cfg.ReminderHorizonDays,
		SendTimeout: cfg.ReminderSendTimeout,
		SendRate:    cfg.ReminderSendRate,
		Location:    cfg.ReminderLocation(),
		AppName:     cfg.AppName,
	}, logger)

	if cfg.MetricsEnabled {
		c.Registry = prometheus.NewRegistry()
		c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		c.Metrics = metrics.NewCollector(c.Registry)
		c.Reminders.WithMetrics(c.Metrics)
	}

	c.AuthHandler = handlers.NewAuthHandler(c.AuthService, logger, cfg.CookieDomain, cfg.CookieSecure)
	c.TaskHandler = handlers.NewTaskHandler(c.TaskService, logger)
	c.HealthHandler = handlers.NewHealthHandler(healthChecks(infra))
	return c, nil
}

func newBackend(cfg *config.Config, gcs *storage.Client) (attachment.Backend, error) {
	switch cfg.StorageDriver {
	case "local":
		b, err := attachment.NewLocalBackend(cfg.UploadRoot)
		if err != nil {
			return nil, fmt.Errorf("upload root: %w", err)
		}
		return b, nil
	case "gcs":
		if gcs == nil || cfg.GCSBucket == "" {
			return nil, fmt.Errorf("STORAGE_DRIVER=gcs requires GCS_BUCKET and a client")
		}
		return attachment.NewGCSBackend(gcs, cfg.GCSBucket), nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}

func healthChecks(infra Infra) map[string]handlers.Pinger {
	checks := map[string]handlers.Pinger{}
	if infra.Pool != nil {
		checks["postgres"] = infra.Pool.Ping
	}
	if infra.Redis != nil {
		rdb := infra.Redis
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}

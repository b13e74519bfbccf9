package main

import (
	"context"
	"time"

	"github.com/chronobill/chronobill/internal/api"
	"github.com/chronobill/chronobill/internal/api/cron"
	v1 "github.com/chronobill/chronobill/internal/api/v1"
	"github.com/chronobill/chronobill/internal/cache"
	"github.com/chronobill/chronobill/internal/config"
	"github.com/chronobill/chronobill/internal/domain/customer"
	"github.com/chronobill/chronobill/internal/httpclient"
	"github.com/chronobill/chronobill/internal/idempotency"
	"github.com/chronobill/chronobill/internal/integration/directory"
	"github.com/chronobill/chronobill/internal/logger"
	"github.com/chronobill/chronobill/internal/postgres"
	"github.com/chronobill/chronobill/internal/repository"
	"github.com/chronobill/chronobill/internal/sentry"
	"github.com/chronobill/chronobill/internal/service"
	"github.com/chronobill/chronobill/internal/types"
	"github.com/chronobill/chronobill/internal/validator"
	"github.com/chronobill/chronobill/internal/webhook"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// @title ChronoBill API
// @version 1.0
// @description Recurring billing scheduler service
// @BasePath /v1
// @schemes http https

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Monitoring
			sentry.NewSentryService,

			// Cache
			provideCache,

			// Postgres
			postgres.NewDB,

			// HTTP Client
			httpclient.NewDefaultClient,

			// Idempotency
			idempotency.NewGenerator,

			// Repositories
			repository.NewPlanRepository,
			repository.NewInvoiceRepository,
			repository.NewLedgerRepository,

			// Customer directory
			provideCustomerDirectory,
		),
	)

	// Webhook module (must be initialised before services)
	opts = append(opts, webhook.Module)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewInvoiceComposer,
			service.NewPlanService,
			service.NewInvoiceService,
			service.NewSchedulerService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			startApp,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideCache() cache.Cache {
	return cache.NewInMemoryCache()
}

// provideCustomerDirectory selects the directory backend: the external HTTP
// directory when configured, otherwise the local customers table.
func provideCustomerDirectory(
	cfg *config.Configuration,
	db *postgres.DB,
	client httpclient.Client,
	c cache.Cache,
	log *logger.Logger,
) customer.Directory {
	if cfg.Directory.BaseURL != "" {
		return directory.NewDirectory(client, c, cfg, log)
	}
	return repository.NewCustomerDirectory(db, log)
}

func provideHandlers(
	logger *logger.Logger,
	planService service.PlanService,
	invoiceService service.InvoiceService,
	schedulerService service.SchedulerService,
) api.Handlers {
	return api.Handlers{
		Plan:      v1.NewPlanHandler(planService, logger),
		Invoice:   v1.NewInvoiceHandler(invoiceService, logger),
		Scheduler: cron.NewSchedulerHandler(schedulerService, logger),
	}
}

func provideRouter(handlers api.Handlers, logger *logger.Logger) *gin.Engine {
	return api.NewRouter(handlers, logger)
}

func startApp(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	webhookService *webhook.WebhookService,
	schedulerService service.SchedulerService,
	shutdowner fx.Shutdowner,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeServer
	}

	switch mode {
	case types.ModeServer:
		startAPIServer(lc, r, cfg, log)
		startWebhookService(lc, webhookService, log)
	case types.ModeScheduler:
		startWebhookService(lc, webhookService, log)
		runSchedulerOnce(lc, schedulerService, shutdowner, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server")
			return nil
		},
	})
}

func startWebhookService(
	lc fx.Lifecycle,
	webhookService *webhook.WebhookService,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return webhookService.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return webhookService.Stop()
		},
	})
}

// runSchedulerOnce executes a single scheduler pass and shuts the process
// down, for one-shot cron deployments.
func runSchedulerOnce(
	lc fx.Lifecycle,
	schedulerService service.SchedulerService,
	shutdowner fx.Shutdowner,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if _, err := schedulerService.RunOnce(context.Background()); err != nil {
					log.Errorw("scheduler run failed", "error", err)
				}
				if err := shutdowner.Shutdown(); err != nil {
					log.Errorw("failed to shut down", "error", err)
				}
			}()
			return nil
		},
	})
}

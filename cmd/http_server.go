package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/socialagro/social-agro-backend/api"
	"github.com/socialagro/social-agro-backend/internal"
	"github.com/socialagro/social-agro-backend/internal/auth"
	authRepo "github.com/socialagro/social-agro-backend/internal/auth/postgres"
	"github.com/socialagro/social-agro-backend/internal/cache"
	"github.com/socialagro/social-agro-backend/internal/client"
	clientRepo "github.com/socialagro/social-agro-backend/internal/client/postgres"
	"github.com/socialagro/social-agro-backend/internal/core/events"
	"github.com/socialagro/social-agro-backend/internal/messaging/kafka"
	"github.com/socialagro/social-agro-backend/internal/metrics"
	"github.com/socialagro/social-agro-backend/internal/payment"
	paymentRepo "github.com/socialagro/social-agro-backend/internal/payment/postgres"
	"github.com/socialagro/social-agro-backend/internal/paymentgateway"
	"github.com/socialagro/social-agro-backend/internal/schedule"
	scheduleRepo "github.com/socialagro/social-agro-backend/internal/schedule/postgres"
	"github.com/socialagro/social-agro-backend/internal/transport"
	"github.com/socialagro/social-agro-backend/internal/transport/rest"
	"github.com/socialagro/social-agro-backend/pkg/logger"
	"github.com/socialagro/social-agro-backend/pkg/tracing"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests and Mercado Pago notifications`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

// Dependencies is everything built from the config that the server and the
// operator commands share.
type Dependencies struct {
	Config     *internal.Config
	DB         *sqlx.DB
	Gorm       *gorm.DB
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Tracer     trace.TracerProvider
	EventBus   *events.EventBus
	Cache      *cache.LatestPaymentCache
	Publisher  *kafka.Publisher
	Gateway    *paymentgateway.Client
	Payments   *payment.Service
	Reconciler *payment.Reconciler
}

func startHTTPServer() {
	deps, err := initializeDependencies(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	log := deps.Logger

	if _, err := api.Load(context.Background()); err != nil {
		log.Error("invalid OpenAPI document", "error", err)
		os.Exit(1)
	}

	dispatcher := payment.NewDispatcher(deps.Reconciler, payment.DispatcherConfig{
		MaxWorkers: deps.Config.Payment.WebhookWorkers,
		QueueSize:  deps.Config.Payment.WebhookQueueSize,
		JobTimeout: deps.Config.Payment.RequestTimeout * 2,
	}, deps.Metrics, log)
	dispatcher.Start()

	router := chi.NewRouter()
	setupRoutes(deps, router, dispatcher)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	log.Info("Starting HTTP server",
		"address", addr,
		"mercadopago_configured", deps.Gateway.Configured(),
		"cache_enabled", deps.Cache != nil,
		"kafka_enabled", deps.Publisher != nil)

	server := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(router, "http.server", otelhttp.WithTracerProvider(deps.Tracer)),
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	exitCode := 0
	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down...", "signal", sig)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			exitCode = 1
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", "error", err)
	}
	if err := dispatcher.Shutdown(ctx); err != nil {
		log.Error("Webhook dispatcher shutdown error", "error", err)
	}
	deps.Close(ctx)

	log.Info("Server stopped")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func setupRoutes(deps *Dependencies, router *chi.Mux, queue payment.JobQueue) {
	cfg := deps.Config
	base := transport.NewBaseHandler(deps.Logger)

	admins := authRepo.NewAdminRepository(deps.Gorm)
	clients := clientRepo.NewClientRepository(deps.Gorm)
	schedules := scheduleRepo.NewScheduleRepository(deps.DB)
	notifications := paymentRepo.NewNotificationRepository(deps.Gorm)

	tokenGen := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.AccessTokenDuration)
	authService := auth.NewService(admins, clients, tokenGen, cfg.Security)
	clientService := client.NewService(clients, cfg.Security.BCryptCost, deps.Logger)
	scheduleService := schedule.NewService(schedules, deps.Logger)

	health := rest.NewHealthHandler(deps.DB.DB)
	if deps.Cache != nil {
		health.WithCheck("redis", deps.Cache)
	}

	var metricsRegistry *metrics.Metrics
	if cfg.Observability.Metrics.Enabled {
		metricsRegistry = deps.Metrics
	}

	rest.RegisterAllRoutes(router, deps.DB.DB, rest.Handlers{
		Auth:     auth.NewHandler(base, authService),
		Client:   client.NewHandler(base, clientService),
		Schedule: schedule.NewHandler(base, scheduleService),
		Payment:  payment.NewHandler(base, deps.Payments),
		Webhook:  payment.NewWebhookHandler(base, queue, notifications, deps.Logger),
		Health:   health,
	}, rest.RouterConfig{
		AllowedOrigins: cfg.Server.Origins(),
		MetricsPath:    cfg.Observability.Metrics.Path,
		Metrics:        metricsRegistry,
	}, deps.Logger)
}

func initializeDependencies(path string) (*Dependencies, error) {
	config, err := loadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	deps := &Dependencies{
		Config:   config,
		DB:       db,
		Gorm:     gormDB,
		Logger:   log,
		Metrics:  metrics.New(),
		Tracer:   tracing.Noop(),
		EventBus: events.NewEventBus(log),
	}

	if config.Observability.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.Config{
			ServiceName:  config.Observability.Tracing.ServiceName,
			Endpoint:     config.Observability.Tracing.JaegerURL,
			SamplingRate: config.Observability.Tracing.SamplingRate,
		})
		if err != nil {
			log.Warn("tracing disabled", "error", err)
		} else {
			deps.Tracer = tp
		}
	}

	if config.Cache.Enabled {
		deps.Cache = cache.NewLatestPaymentCache(cache.NewClient(cache.Options{
			Addr:     config.Cache.Addr,
			Password: config.Cache.Password,
			DB:       config.Cache.DB,
		}), config.Cache.TTL, log)
		payment.NewEventHandler(deps.Cache, log).RegisterEventHandlers(deps.EventBus)
	}

	if config.Messaging.Kafka.Enabled {
		publisher, err := kafka.NewPublisher(config.Messaging.Kafka.Brokers, config.Messaging.Kafka.Topic, log)
		if err != nil {
			log.Warn("kafka publisher disabled", "error", err)
		} else {
			deps.Publisher = publisher
			publisher.RegisterEventHandlers(deps.EventBus)
		}
	}

	deps.Gateway = paymentgateway.NewClient(paymentgateway.Config{
		BaseURL:        config.Payment.APIBaseURL,
		AccessToken:    config.Payment.AccessToken,
		RequestTimeout: config.Payment.RequestTimeout,
	}, deps.Metrics, log)

	payments := paymentRepo.NewPaymentRepository(gormDB)

	deps.Payments = payment.NewService(config.Payment, payments, deps.Gateway, log).
		WithPublisher(deps.EventBus).
		WithMetrics(deps.Metrics)
	if deps.Cache != nil {
		deps.Payments.WithCache(deps.Cache)
	}

	deps.Reconciler = payment.NewReconciler(config.Payment, payments, deps.Gateway, log).
		WithPublisher(deps.EventBus).
		WithMetrics(deps.Metrics)

	return deps, nil
}

// Close drains event handlers and releases every connection.
func (d *Dependencies) Close(ctx context.Context) {
	if err := d.EventBus.Wait(ctx); err != nil {
		d.Logger.Warn("event handlers still running at shutdown", "error", err)
	}
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			d.Logger.Error("Kafka producer close error", "error", err)
		}
	}
	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if err := tracing.Shutdown(ctx, d.Tracer); err != nil {
		d.Logger.Error("Tracer shutdown error", "error", err)
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx pool with gorm.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
	})
}

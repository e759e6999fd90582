// Command sparkier runs the Sparkier core API server. It also hosts the
// admin CLI: `sparkier admin <command>`.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/nats-io/nats.go/jetstream"

	sphttp "github.com/sparkier-io/sparkier/internal/adapter/http"
	spnats "github.com/sparkier-io/sparkier/internal/adapter/nats"
	"github.com/sparkier-io/sparkier/internal/adapter/natskv"
	"github.com/sparkier-io/sparkier/internal/adapter/otel"
	"github.com/sparkier-io/sparkier/internal/adapter/postgres"
	"github.com/sparkier-io/sparkier/internal/adapter/ristretto"
	"github.com/sparkier-io/sparkier/internal/adapter/tiered"
	"github.com/sparkier-io/sparkier/internal/adapter/ws"
	"github.com/sparkier-io/sparkier/internal/config"
	"github.com/sparkier-io/sparkier/internal/logger"
	"github.com/sparkier-io/sparkier/internal/middleware"
	"github.com/sparkier-io/sparkier/internal/port/notifier"
	"github.com/sparkier-io/sparkier/internal/resilience"
	"github.com/sparkier-io/sparkier/internal/service"

	// Register the notifier factories.
	_ "github.com/sparkier-io/sparkier/internal/adapter/email"
	_ "github.com/sparkier-io/sparkier/internal/adapter/slack"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"auth_enabled", cfg.Auth.Enabled,
	)

	ctx := context.Background()

	// --- Telemetry ---
	shutdownOtel, err := otel.Setup(ctx, cfg.Logging.Service, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(shutdownCtx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	var metrics *otel.Metrics
	if cfg.Telemetry.Enabled {
		metrics, err = otel.NewMetrics()
		if err != nil {
			return fmt.Errorf("otel metrics: %w", err)
		}
	}

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	queue, err := spnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	idempotencyKV, err := queue.KeyValue(ctx, cfg.Idempotency.Bucket, cfg.Idempotency.TTL)
	if err != nil {
		return fmt.Errorf("idempotency bucket: %w", err)
	}

	// Booking intents live in a shared KV bucket so a visitor who clicks on
	// one instance and signs up on another still gets their booking back.
	intentKV, err := queue.KeyValue(ctx, "sparkier_intents", cfg.Intake.IntentTTL)
	if err != nil {
		return fmt.Errorf("intent bucket: %w", err)
	}

	// Catalog cache: in-process ristretto in front of the shared KV bucket.
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("ristretto: %w", err)
	}
	catalogKV, err := queue.KeyValue(ctx, "sparkier_catalog", cfg.Cache.CatalogTTL)
	if err != nil {
		return fmt.Errorf("catalog bucket: %w", err)
	}
	catalogCache := tiered.New(l1, natskv.New(catalogKV), cfg.Cache.CatalogTTL)

	// --- Services ---

	store := postgres.NewStore(pool)
	authSvc := service.NewAuthService(store, &cfg.Auth)
	catalogSvc := service.NewCatalogService(store, catalogCache, queue, cfg.Cache.CatalogTTL)
	intents := service.NewIntentHolder(natskv.New(intentKV), cfg.Intake.IntentTTL)
	intakeSvc := service.NewIntakeService(store, catalogSvc, intents, queue)
	requestSvc := service.NewRequestService(store, queue)

	authSvc.StartTokenCleanup(ctx, time.Hour)

	hub := ws.NewHub(func(r *http.Request) string {
		if u := middleware.UserFromContext(r.Context()); u != nil {
			return u.ID
		}
		return ""
	})

	emailNotifier, err := notifier.New("email", map[string]string{
		"host":     cfg.SMTP.Host,
		"port":     strconv.Itoa(cfg.SMTP.Port),
		"from":     cfg.SMTP.From,
		"password": cfg.SMTP.Password,
	})
	if err != nil {
		return fmt.Errorf("email notifier: %w", err)
	}
	notifiers := []notifier.Notifier{emailNotifier}

	if cfg.Slack.WebhookURL != "" {
		slackNotifier, err := notifier.New("slack", map[string]string{
			"webhook_url": cfg.Slack.WebhookURL,
		})
		if err != nil {
			return fmt.Errorf("slack notifier: %w", err)
		}
		notifiers = append(notifiers, slackNotifier)
	}

	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	notificationSvc := service.NewNotificationService(store, queue,
		notifiers, breaker, hub,
		cfg.Intake.DemoConsultantID)
	if err := notificationSvc.Start(ctx); err != nil {
		return fmt.Errorf("notification service: %w", err)
	}
	defer notificationSvc.Stop()

	// --- HTTP ---

	handlers := &sphttp.Handlers{
		Auth:     authSvc,
		Catalog:  catalogSvc,
		Intake:   intakeSvc,
		Requests: requestSvc,
		Hub:      hub,
		Metrics:  metrics,
		Ready: func() error {
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			if !queue.IsConnected() {
				return errors.New("nats disconnected")
			}
			return nil
		},
	}

	router := newRouter(cfg, authSvc, handlers, idempotencyKV)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := queue.Drain(); err != nil {
		slog.Warn("nats drain", "error", err)
	}
	slog.Info("shutdown complete")
	return nil
}

func newRouter(cfg *config.Config, authSvc *service.AuthService, handlers *sphttp.Handlers, idempotencyKV jetstream.KeyValue) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(sphttp.Logger)
	r.Use(sphttp.SecurityHeaders)
	r.Use(sphttp.CORS(cfg.Server.CORSOrigin))

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	r.Use(limiter.Handler)

	r.Use(middleware.Auth(authSvc, cfg.Auth.Enabled))

	sphttp.MountRoutes(r, handlers, idempotencyKV)
	return r
}

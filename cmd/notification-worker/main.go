// Package main is the entrypoint for the PitStop notification worker.
//
// The worker consumes CustomerRegistered, MaintenanceJobPlanned,
// MaintenanceJobFinished and DayHasPassed events, keeps the customer and
// maintenance-job projections, and emails customers.
//
// Startup:
//  1. Load configuration (env, .env, SSM).
//  2. Open the projection store (PostgreSQL pool or in-memory).
//  3. Build the email provider, delivery gateway and metrics sink.
//  4. Build the dispatcher and hand it to the transport named by WORKER_MODE:
//     lambda (SQS event source), poller (long-poll SQS plus a health and
//     metrics listener) or http (local).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"pitstop/internal/config"
	"pitstop/internal/db"
	"pitstop/internal/external"
	"pitstop/internal/notifications/core"
	"pitstop/internal/notifications/dispatcher"
	"pitstop/internal/notifications/email"
	"pitstop/internal/transport/httpapi"
	"pitstop/internal/transport/sqsconsumer"
	"pitstop/internal/types"
)

const shutdownTimeout = 10 * time.Second

// slogAdapter lets *slog.Logger satisfy types.Logger, whose With returns
// the interface type.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

var _ types.Logger = (*slogAdapter)(nil)

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// secretProvider returns the SSM provider outside local runs. Region and
// endpoint are read straight from the environment because Config is not
// loaded yet.
func secretProvider() config.SecretProvider {
	if os.Getenv("APP_ENV") == "local" {
		return nil
	}
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "eu-west-1"
	}
	return config.NewSSMProvider(region, os.Getenv("AWS_ENDPOINT_URL"))
}

func loadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWS.Region)}
	if cfg.AWS.EndpointURL != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.AWS.EndpointURL))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// poolProbe reports the PostgreSQL pool on /health.
type poolProbe struct {
	pool *pgxpool.Pool
}

func (p poolProbe) Name() string                    { return "projection_store" }
func (p poolProbe) Check(ctx context.Context) error { return p.pool.Ping(ctx) }

// openStore returns the projection store, an optional health probe and a
// close function.
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (types.ProjectionStore, []httpapi.HealthProbe, func(), error) {
	if cfg.Store == "memory" {
		logger.Warn("using in-memory projection store; state is lost on exit")
		return db.NewMemoryProjectionStore(), nil, func() {}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL.Unmask())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("ping database: %w", err)
	}
	if err := db.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	return db.NewProjectionRepository(pool), []httpapi.HealthProbe{poolProbe{pool: pool}}, pool.Close, nil
}

// newMetrics picks the metrics sink. The returned handler is non-nil only
// for the Prometheus backend and serves its registry.
func newMetrics(cfg *config.Config, awsCfg aws.Config, logger types.Logger) (core.NotificationMetrics, http.Handler) {
	if !cfg.Observability.EnableMetrics {
		return core.NoopMetrics{}, nil
	}
	if cfg.Observability.MetricsBackend == config.MetricsPrometheus {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		return core.NewPrometheusMetrics(reg, logger), promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}
	if cfg.Environment == "local" {
		return core.NoopMetrics{}, nil
	}
	return core.NewCloudWatchMetrics(cloudwatch.NewFromConfig(awsCfg), cfg.Observability.MetricNamespace, logger), nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("notification worker failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig(secretProvider())
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel).With(
		"service", cfg.Service,
		"env", cfg.Environment,
		"version", cfg.Build.Version,
	)
	typedLogger := &slogAdapter{logger: logger}

	logger.Info("notification worker initializing",
		"mode", cfg.Worker.Mode,
		"projection_store", cfg.Database.Store,
		"email_provider", cfg.Email.Provider,
		"timezone", cfg.Worker.Timezone,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	location, err := cfg.Worker.Location()
	if err != nil {
		return err
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("load AWS config: %w", err)
	}

	store, probes, closeStore, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	provider, err := external.NewEmailProvider(external.EmailProviderConfig{
		Provider:       cfg.Email.Provider,
		SendGridAPIKey: cfg.Email.SendGridAPIKey.Unmask(),
		SESConfigSet:   cfg.Email.SESConfigurationSet,
		HTTPTimeout:    cfg.Email.HTTPTimeout,
	}, awsCfg, logger)
	if err != nil {
		return fmt.Errorf("email provider: %w", err)
	}

	gateway := email.NewGateway(email.GatewayConfig{
		Provider:   provider,
		SenderName: cfg.Email.FromName,
		Logger:     typedLogger,
	})

	metrics, metricsHandler := newMetrics(cfg, awsCfg, typedLogger)

	d, err := dispatcher.New(dispatcher.Config{
		Store:    store,
		Gateway:  gateway,
		Logger:   typedLogger,
		Metrics:  metrics,
		Location: location,
	})
	if err != nil {
		return err
	}

	srv, err := httpapi.NewServer(d, logger, probes...)
	if err != nil {
		return err
	}
	if metricsHandler != nil {
		srv.MountMetrics(cfg.Observability.MetricsPath, metricsHandler)
	}

	switch cfg.Worker.Mode {
	case config.ModeLambda:
		logger.Info("starting lambda runtime")
		lambda.StartWithOptions(sqsconsumer.NewHandler(d, typedLogger).Handle, lambda.WithContext(ctx))
		return nil

	case config.ModePoller:
		poller := sqsconsumer.NewPoller(sqsconsumer.PollerConfig{
			Client:      sqs.NewFromConfig(awsCfg),
			QueueURL:    cfg.AWS.NotificationQueue,
			Events:      d,
			Logger:      typedLogger,
			WaitSeconds: cfg.Worker.PollWaitSeconds,
			MaxMessages: cfg.Worker.PollMaxMessages,
		})
		// The HTTP listener serves health and metrics next to the poller.
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return poller.Run(gctx) })
		g.Go(func() error { return serveHTTP(gctx, cfg.Worker.LocalHTTPPort, srv.Handler(), logger) })
		return g.Wait()

	case config.ModeHTTP:
		return serveHTTP(ctx, cfg.Worker.LocalHTTPPort, srv.Handler(), logger)

	default:
		return fmt.Errorf("unknown WORKER_MODE %q", cfg.Worker.Mode)
	}
}

// serveHTTP runs handler until ctx is cancelled, then drains in-flight
// requests.
func serveHTTP(ctx context.Context, port string, handler http.Handler, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              ":" + strings.TrimPrefix(port, ":"),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http transport listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http transport")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

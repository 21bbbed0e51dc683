// Package main is the day ticker: it publishes one DayHasPassed event to the
// notification queue, which makes the worker send the day's maintenance
// reminders.
//
// Modes:
//   - TICK_SCHEDULE set: long-running, publishes on the cron schedule in
//     WORKER_TIMEZONE until SIGINT/SIGTERM.
//   - APP_ENV=local: publishes once and exits.
//   - otherwise: Lambda handler for an EventBridge schedule.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"

	"pitstop/internal/notifications/core"
	"pitstop/internal/types"
)

type tickerConfig struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"oneof=local dev staging prod"`
	QueueURL    string `envconfig:"SQS_NOTIFICATIONS" validate:"required,url"`
	Region      string `envconfig:"AWS_REGION" default:"eu-west-1"`
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL" validate:"omitempty,url"`
	// Schedule is a five-field cron expression or descriptor ("@midnight").
	Schedule string `envconfig:"TICK_SCHEDULE"`
	Timezone string `envconfig:"WORKER_TIMEZONE" default:"UTC" validate:"timezone"`
}

func loadTickerConfig() (tickerConfig, error) {
	_ = godotenv.Load()

	var cfg tickerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("process environment: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("validate configuration: %w", err)
	}
	if cfg.Schedule != "" {
		if _, err := cronParser.Parse(cfg.Schedule); err != nil {
			return cfg, fmt.Errorf("invalid TICK_SCHEDULE %q: %w", cfg.Schedule, err)
		}
	}
	return cfg, nil
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// runScheduled publishes on every firing of schedule until ctx is done. A
// failed publish is logged and the next firing proceeds.
func runScheduled(ctx context.Context, ticker *Ticker, schedule string, loc *time.Location) error {
	c := cron.New(cron.WithParser(cronParser), cron.WithLocation(loc))
	_, err := c.AddFunc(schedule, func() {
		_ = ticker.Handle(ctx, events.CloudWatchEvent{ID: "cron", Time: time.Now().In(loc)})
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", schedule, err)
	}

	ticker.logger.Info("day ticker scheduled", "schedule", schedule, "timezone", loc.String())
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	ticker.logger.Info("day ticker stopped")
	return nil
}

type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

// eventPublisher is satisfied by *core.EventPublisher.
type eventPublisher interface {
	Publish(ctx context.Context, event types.Event) (string, error)
}

// Ticker publishes DayHasPassed on every invocation.
type Ticker struct {
	publisher eventPublisher
	logger    *slog.Logger
}

// Handle is invoked by the EventBridge schedule.
func (t *Ticker) Handle(ctx context.Context, trigger events.CloudWatchEvent) error {
	messageID, err := t.publisher.Publish(ctx, types.DayHasPassed{})
	if err != nil {
		t.logger.Error("failed to publish DayHasPassed", "schedule_event_id", trigger.ID, "error", err)
		return err
	}
	t.logger.Info("DayHasPassed published", "schedule_event_id", trigger.ID, "message_id", messageID)
	return nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "pitstop-day-ticker")

	cfg, err := loadTickerConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.EndpointURL != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.EndpointURL))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	ticker := &Ticker{
		publisher: core.NewEventPublisher(sqs.NewFromConfig(awsCfg), cfg.QueueURL, &slogAdapter{logger: logger}),
		logger:    logger,
	}

	switch {
	case cfg.Schedule != "":
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			logger.Error("invalid timezone", "error", err)
			os.Exit(1)
		}
		sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := runScheduled(sigCtx, ticker, cfg.Schedule, loc); err != nil {
			logger.Error("day ticker failed", "error", err)
			os.Exit(1)
		}

	case cfg.Environment == "local":
		if err := ticker.Handle(ctx, events.CloudWatchEvent{ID: "local"}); err != nil {
			os.Exit(1)
		}

	default:
		lambda.Start(ticker.Handle)
	}
}

// Package config loads the notification worker's configuration once at
// startup. Values resolve through a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// A missing required value or an invalid format fails startup.
package config

import (
	"fmt"
	"time"

	"pitstop/internal/types"
)

// SecretString is an alias for types.SecretString so secrets in Config are
// redacted in logs and JSON.
type SecretString = types.SecretString

// Metrics backends.
const (
	MetricsCloudWatch = "cloudwatch"
	MetricsPrometheus = "prometheus"
)

// Worker modes.
const (
	ModeLambda = "lambda"
	ModePoller = "poller"
	ModeHTTP   = "http"
)

// Config is the top-level configuration of the notification worker.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"OTEL_SERVICE_NAME" default:"pitstop-notification-worker"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Database      DatabaseConfig
	AWS           AWSConfig
	Email         EmailConfig
	Worker        WorkerConfig
	Observability ObservabilityConfig

	// Injected via ldflags, not Env.
	Build BuildInfo
}

// DatabaseConfig selects the projection store and tunes the pgx pool.
type DatabaseConfig struct {
	Store string `envconfig:"PROJECTION_STORE" default:"postgres" validate:"oneof=postgres memory"`
	// Resolved from SSM or Env. Only needed for the postgres store.
	URL SecretString `envconfig:"DATABASE_URL" validate:"required_if=Store postgres"`

	MaxConns          int32         `envconfig:"DB_MAX_CONNS" default:"4" validate:"min=1"`
	MinConns          int32         `envconfig:"DB_MIN_CONNS" default:"0" validate:"min=0"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds the region, queue and LocalStack endpoint.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"eu-west-1"`
	// NotificationQueue is required in poller mode and for the day ticker.
	NotificationQueue string `envconfig:"SQS_NOTIFICATIONS" validate:"omitempty,url"`
	// LocalStack support (empty in prod).
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL" validate:"omitempty,url"`
}

// EmailConfig selects the mail provider. The From address is fixed by the
// composer; only the display name is configurable.
type EmailConfig struct {
	Provider            string        `envconfig:"EMAIL_PROVIDER" default:"ses" validate:"oneof=ses sendgrid stub"`
	SendGridAPIKey      SecretString  `envconfig:"SENDGRID_API_KEY" validate:"required_if=Provider sendgrid"`
	SESConfigurationSet string        `envconfig:"SES_CONFIGURATION_SET"`
	FromName            string        `envconfig:"EMAIL_FROM_NAME" default:"PitStop"`
	HTTPTimeout         time.Duration `envconfig:"EMAIL_HTTP_TIMEOUT" default:"10s"`
}

// WorkerConfig controls how events reach the dispatcher.
type WorkerConfig struct {
	Mode            string `envconfig:"WORKER_MODE" default:"lambda" validate:"oneof=lambda poller http"`
	Timezone        string `envconfig:"WORKER_TIMEZONE" default:"UTC" validate:"required,timezone"`
	LocalHTTPPort   string `envconfig:"LOCAL_HTTP_PORT" default:"8080" validate:"numeric"`
	PollWaitSeconds int32  `envconfig:"POLL_WAIT_SECONDS" default:"20" validate:"min=0,max=20"`
	PollMaxMessages int32  `envconfig:"POLL_MAX_MESSAGES" default:"10" validate:"min=1,max=10"`
}

// Location resolves Timezone. DayHasPassed reads "today" in this zone.
func (w WorkerConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_TIMEZONE %q: %w", w.Timezone, err)
	}
	return loc, nil
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"PitStop"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"true"`
	// MetricsBackend selects push (CloudWatch) or scrape (Prometheus). The
	// Prometheus registry is served on MetricsPath of the HTTP listener.
	MetricsBackend string `envconfig:"METRICS_BACKEND" default:"cloudwatch" validate:"oneof=cloudwatch prometheus"`
	MetricsPath    string `envconfig:"METRICS_PATH" default:"/metrics" validate:"startswith=/"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	ErrMissingEnv    ConfigErrorType = "MISSING_ENV"
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	ErrValidation    ConfigErrorType = "VALIDATION_FAILED"
	ErrParsing       ConfigErrorType = "PARSING_FAILED"
)

// ConfigError is returned by LoadConfig.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

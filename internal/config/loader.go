package config

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ssmParamSuffix marks pointer variables: DATABASE_URL_SSM_PARAM=/prod/pitstop/db
// resolves DATABASE_URL from that SSM path.
const ssmParamSuffix = "_SSM_PARAM"

// localEnv is the APP_ENV value that bypasses SSM resolution.
const localEnv = "local"

// loaderDeps holds the environment accessors so tests need not mutate the
// process environment for SSM resolution.
type loaderDeps struct {
	lookupEnv func(key string) (string, bool)
	setEnv    func(key, value string) error
	environ   func() []string
	dotenv    func() error
}

func defaultDeps() loaderDeps {
	return loaderDeps{
		lookupEnv: os.LookupEnv,
		setEnv:    os.Setenv,
		environ:   os.Environ,
		dotenv:    func() error { return godotenv.Load() },
	}
}

// LoadConfig loads and validates the worker configuration:
//  1. Pin the process zone to UTC.
//  2. Load .env if present; it never overrides the real environment.
//  3. Outside APP_ENV=local, resolve *_SSM_PARAM pointers via provider.
//  4. Populate Config from envconfig tags and attach build info.
//  5. Validate struct tags, then the cross-field rules.
//
// provider may be nil when no SSM pointers are set.
func LoadConfig(provider SecretProvider) (*Config, error) {
	return loadConfigWithDeps(provider, defaultDeps())
}

func loadConfigWithDeps(provider SecretProvider, deps loaderDeps) (*Config, error) {
	time.Local = time.UTC

	_ = deps.dotenv()

	if appEnv, _ := deps.lookupEnv("APP_ENV"); appEnv != localEnv {
		if err := resolveSSMParams(provider, deps); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}
	cfg.Build = NewBuildInfo()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}
	if err := cfg.validateModes(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validateModes checks rules that span sections.
func (c *Config) validateModes() error {
	if c.Worker.Mode == ModePoller && c.AWS.NotificationQueue == "" {
		return &ConfigError{
			Type:    ErrMissingEnv,
			Message: "SQS_NOTIFICATIONS is required when WORKER_MODE=poller",
		}
	}
	if c.Worker.Mode == ModeLambda && c.Observability.EnableMetrics && c.Observability.MetricsBackend == MetricsPrometheus {
		return &ConfigError{
			Type:    ErrValidation,
			Message: "METRICS_BACKEND=prometheus needs a long-running WORKER_MODE (poller or http)",
		}
	}
	if c.Environment == "prod" && c.Email.Provider == "stub" {
		return &ConfigError{
			Type:    ErrValidation,
			Message: "EMAIL_PROVIDER=stub is not allowed in prod",
		}
	}
	return nil
}

// resolveSSMParams fetches every *_SSM_PARAM pointer whose target variable
// is not already set and injects the values into the environment, so the
// priority Env > Dotenv > SSM holds.
func resolveSSMParams(provider SecretProvider, deps loaderDeps) error {
	pathToTarget := make(map[string]string)
	for _, entry := range deps.environ() {
		key, path, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasSuffix(key, ssmParamSuffix) || path == "" {
			continue
		}
		target := strings.TrimSuffix(key, ssmParamSuffix)
		if _, exists := deps.lookupEnv(target); exists {
			continue
		}
		pathToTarget[path] = target
	}

	if len(pathToTarget) == 0 {
		return nil
	}

	paths := make([]string, 0, len(pathToTarget))
	for p := range pathToTarget {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	if provider == nil {
		return &ConfigError{
			Type:    ErrSSMResolution,
			Message: fmt.Sprintf("a SecretProvider is required to resolve %s", strings.Join(targets(paths, pathToTarget), ", ")),
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resolved, err := provider.GetParametersBatch(ctx, paths)
	if err != nil {
		return &ConfigError{
			Type:    ErrSSMResolution,
			Message: fmt.Sprintf("failed to resolve %d SSM parameters", len(paths)),
			Err:     err,
		}
	}

	var missing []string
	for _, p := range paths {
		value, ok := resolved[p]
		if !ok {
			missing = append(missing, pathToTarget[p])
			continue
		}
		if err := deps.setEnv(pathToTarget[p], value); err != nil {
			return &ConfigError{
				Type:    ErrSSMResolution,
				Message: "failed to set resolved value for " + pathToTarget[p],
				Err:     err,
			}
		}
	}
	if len(missing) > 0 {
		return &ConfigError{
			Type:    ErrSSMResolution,
			Message: "SSM parameters not found for: " + strings.Join(missing, ", "),
		}
	}
	return nil
}

func targets(paths []string, pathToTarget map[string]string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = pathToTarget[p]
	}
	return out
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/suparena/blogstore/datastore/ddb"
	"github.com/suparena/blogstore/datastore/s3blob"
	"github.com/suparena/blogstore/errors"
	"github.com/suparena/blogstore/resilience"
)

var validate = validator.New()

// Config is read once at startup and not modified afterwards.
type Config struct {
	ConnectionString  string            `env:"BLOGSTORE_CONNECTION_STRING" validate:"required"`
	RegistryFile      string            `env:"BLOGSTORE_REGISTRY_FILE" env-default:"locations.yaml"`
	ResourceOverrides map[string]string `env:"BLOGSTORE_RESOURCE_OVERRIDES"`
	Environment       string            `env:"BLOGSTORE_ENV" env-default:"development" validate:"oneof=development production"`
	LogLevel          string            `env:"BLOGSTORE_LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	MetricsNamespace  string            `env:"BLOGSTORE_METRICS_NAMESPACE" env-default:"blogstore" validate:"required"`

	Retry   RetrySettings
	Breaker BreakerSettings
	Table   TableSettings
	Blob    BlobSettings
}

type RetrySettings struct {
	// MaxRetries is the number of retries after the first attempt; 0 disables retrying.
	MaxRetries   int           `env:"BLOGSTORE_RETRY_MAX_RETRIES" env-default:"3" validate:"gte=0"`
	InitialDelay time.Duration `env:"BLOGSTORE_RETRY_INITIAL_DELAY" env-default:"100ms" validate:"gt=0"`
	MaxDelay     time.Duration `env:"BLOGSTORE_RETRY_MAX_DELAY" env-default:"5s" validate:"gtefield=InitialDelay"`
}

type BreakerSettings struct {
	MaxFailures  uint32        `env:"BLOGSTORE_BREAKER_MAX_FAILURES" env-default:"3" validate:"gt=0"`
	ResetTimeout time.Duration `env:"BLOGSTORE_BREAKER_RESET_TIMEOUT" env-default:"60s" validate:"gt=0"`
}

type TableSettings struct {
	CreateTimeout   time.Duration `env:"BLOGSTORE_TABLE_CREATE_TIMEOUT" env-default:"2m" validate:"gt=0"`
	DefaultPageSize int32         `env:"BLOGSTORE_TABLE_PAGE_SIZE" env-default:"100" validate:"gt=0"`
}

type BlobSettings struct {
	CopyTimeout       time.Duration `env:"BLOGSTORE_BLOB_COPY_TIMEOUT" env-default:"30s" validate:"gt=0"`
	CopyPollInterval  time.Duration `env:"BLOGSTORE_BLOB_COPY_POLL_INTERVAL" env-default:"500ms" validate:"gt=0"`
	GetAllConcurrency int           `env:"BLOGSTORE_BLOB_GETALL_CONCURRENCY" env-default:"8" validate:"gt=0"`
}

// Load reads the given .env files (missing files are skipped), then the
// process environment, applies defaults and validates the result. Variables
// already set in the environment win over .env values.
func Load(envFiles ...string) (*Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, errors.NewConfigurationError("", fmt.Sprintf("failed to read environment: %v", err))
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, errors.NewConfigurationError("", err.Error())
	}
	if _, err := ParseConnectionString(cfg.ConnectionString); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Usage describes every supported variable.
func Usage() string {
	text, err := cleanenv.GetDescription(&Config{}, nil)
	if err != nil {
		return err.Error()
	}
	return text
}

// Credential returns the parsed default connection string.
func (c *Config) Credential() Credential {
	cred, _ := ParseConnectionString(c.ConnectionString)
	return cred
}

// RetryConfig maps the settings onto the executor's retry policy, where a
// zero MaxRetries means the default and a negative one means no retries.
func (c *Config) RetryConfig() resilience.RetryConfig {
	maxRetries := c.Retry.MaxRetries
	if maxRetries == 0 {
		maxRetries = -1
	}
	return resilience.RetryConfig{
		MaxRetries:   maxRetries,
		InitialDelay: c.Retry.InitialDelay,
		MaxDelay:     c.Retry.MaxDelay,
	}
}

func (c *Config) BreakerConfig() resilience.BreakerConfig {
	return resilience.BreakerConfig{
		MaxFailures:  c.Breaker.MaxFailures,
		ResetTimeout: c.Breaker.ResetTimeout,
	}
}

func (c *Config) TableConfig(logger *zap.Logger) ddb.Config {
	return ddb.Config{
		Logger:          logger,
		CreateTimeout:   c.Table.CreateTimeout,
		DefaultPageSize: c.Table.DefaultPageSize,
	}
}

func (c *Config) BlobConfig(logger *zap.Logger) s3blob.Config {
	return s3blob.Config{
		Logger:            logger,
		Region:            c.Credential().Region,
		CopyTimeout:       c.Blob.CopyTimeout,
		CopyPollInterval:  c.Blob.CopyPollInterval,
		GetAllConcurrency: c.Blob.GetAllConcurrency,
		DefaultPageSize:   c.Table.DefaultPageSize,
	}
}

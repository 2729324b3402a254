/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package blogstore

import (
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/suparena/blogstore/config"
	"github.com/suparena/blogstore/metrics"
	"github.com/suparena/blogstore/registry"
)

// NewFromConfig wires a Dispatcher from loaded settings: the registry file
// with its resource overrides, an AWSConnector on the configured connection
// string, and the resilience, table and blob settings.
func NewFromConfig(cfg *config.Config, logger *zap.Logger, sink metrics.Sink, tp trace.TracerProvider) (*Dispatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("starting blogstore", GetVersionInfo().Fields()...)
	locations, err := registry.LoadFile(cfg.RegistryFile, cfg.ResourceOverrides)
	if err != nil {
		return nil, err
	}
	return NewDispatcher(locations, NewAWSConnector(cfg.ConnectionString, logger), Options{
		Logger:         logger,
		Metrics:        sink,
		TracerProvider: tp,
		Retry:          cfg.RetryConfig(),
		Breaker:        cfg.BreakerConfig(),
		Table:          cfg.TableConfig(logger),
		Blob:           cfg.BlobConfig(logger),
	})
}

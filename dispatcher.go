/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package blogstore

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/suparena/blogstore/datastore/ddb"
	"github.com/suparena/blogstore/datastore/s3blob"
	"github.com/suparena/blogstore/errors"
	"github.com/suparena/blogstore/metrics"
	"github.com/suparena/blogstore/registry"
	"github.com/suparena/blogstore/resilience"
	"github.com/suparena/blogstore/storagemodels"
)

const tracerName = "github.com/suparena/blogstore"

// Operation is a generic CRUD operation token.
type Operation string

const (
	OpGet      Operation = "get"
	OpGetPaged Operation = "getPaged"
	OpSet      Operation = "set"
	OpUpdate   Operation = "update"
	OpDelete   Operation = "delete"
	OpCopy     Operation = "copy" // blob only
	OpMove     Operation = "move" // blob only
)

// Options configures a Dispatcher. Zero values select defaults.
type Options struct {
	Logger         *zap.Logger
	Metrics        metrics.Sink
	TracerProvider trace.TracerProvider
	Retry          resilience.RetryConfig
	Breaker        resilience.BreakerConfig
	Table          ddb.Config
	Blob           s3blob.Config
}

// Dispatcher routes generic CRUD requests to table and blob clients. It is
// safe for concurrent use.
type Dispatcher struct {
	locations *registry.Locations
	connector Connector
	exec      *resilience.Executor
	metrics   metrics.Sink
	tracer    trace.Tracer
	logger    *zap.Logger
	tableCfg  ddb.Config
	blobCfg   s3blob.Config
	clients   *clientCache
}

// NewDispatcher creates a dispatcher over locations. One circuit breaker is
// kept per store operation name and shared by all requests.
func NewDispatcher(locations *registry.Locations, connector Connector, opts Options) (*Dispatcher, error) {
	if locations == nil || len(locations.Names()) == 0 {
		return nil, errors.NewConfigurationError("", "no storage locations configured")
	}
	if connector == nil {
		return nil, errors.NewConfigurationError("", "connector is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sink := opts.Metrics
	if sink == nil {
		sink = metrics.NopSink{}
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	breakerCfg := opts.Breaker
	onStateChange := breakerCfg.OnStateChange
	breakerCfg.OnStateChange = func(name string, from, to resilience.State) {
		sink.IncCounter("breaker_" + name + "." + to.String())
		if onStateChange != nil {
			onStateChange(name, from, to)
		}
	}

	tableCfg := opts.Table
	if tableCfg.Logger == nil {
		tableCfg.Logger = logger
	}
	blobCfg := opts.Blob
	if blobCfg.Logger == nil {
		blobCfg.Logger = logger
	}

	return &Dispatcher{
		locations: locations,
		connector: connector,
		exec:      resilience.NewExecutor(opts.Retry, breakerCfg, logger),
		metrics:   sink,
		tracer:    tp.Tracer(tracerName),
		logger:    logger.Named("dispatcher"),
		tableCfg:  tableCfg,
		blobCfg:   blobCfg,
		clients:   newClientCache(),
	}, nil
}

// BreakerStates reports the state of every breaker created so far.
func (d *Dispatcher) BreakerStates() map[string]resilience.State {
	return d.exec.Breakers.States()
}

// HandleCrudOperation resolves entityType and runs op against its table or
// blob store. Every operation returns a PagedResult; single-record reads
// return zero or one item and writes return the written record.
//
// Unknown entity types, unsupported operations and missing keys fail with a
// ConfigurationError before any store call.
func HandleCrudOperation[T any](ctx context.Context, d *Dispatcher, op Operation, entityType string, opts ...storagemodels.OperationOption) (*storagemodels.PagedResult[T], error) {
	options := storagemodels.NewOperationOptions(opts...)
	recordName := registry.RecordTypeName[T]()
	metricName := string(op) + "_" + recordName

	ctx, span := d.tracer.Start(ctx, "blogstore."+string(op), trace.WithAttributes(
		attribute.String("blogstore.entity_type", entityType),
		attribute.String("blogstore.record_type", recordName),
	))
	defer span.End()

	start := time.Now()
	result, err := dispatch[T](ctx, d, op, entityType, recordName, options)
	d.metrics.ObserveValue(metricName+".duration_seconds", time.Since(start).Seconds())

	if err != nil {
		d.metrics.IncCounter(metricName + ".error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		fields := []zap.Field{
			zap.String("operation", string(op)),
			zap.String("entity_type", entityType),
			zap.String("record_type", recordName),
			zap.Stringer("kind", errors.KindOf(err)),
			zap.Error(err),
		}
		if errors.IsCallerError(err) {
			d.logger.Warn("operation rejected", fields...)
		} else {
			d.logger.Error("operation failed", fields...)
		}
		return nil, err
	}

	d.metrics.IncCounter(metricName + ".success")
	d.metrics.ObserveValue(metricName+".result_count", float64(result.Len()))
	span.SetAttributes(
		attribute.Int("blogstore.result_count", result.Len()),
		attribute.Bool("blogstore.has_more", result.HasMore()),
	)
	return result, nil
}

func dispatch[T any](ctx context.Context, d *Dispatcher, op Operation, entityType, recordName string, o storagemodels.OperationOptions) (*storagemodels.PagedResult[T], error) {
	loc, err := d.locations.Lookup(entityType)
	if err != nil {
		return nil, err
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("blogstore.resource", loc.Resource),
		attribute.Stringer("blogstore.kind", loc.Kind),
	)

	switch loc.Kind {
	case registry.KindTable:
		return dispatchTable[T](ctx, d, op, entityType, recordName, loc, o)
	case registry.KindBlob:
		return dispatchBlob[T](ctx, d, op, entityType, loc, o)
	default:
		return nil, errors.NewConfigurationError(entityType, fmt.Sprintf("unsupported storage kind %s", loc.Kind))
	}
}

// recordFrom extracts the payload as a T.
func recordFrom[T any](entityType string, data any) (T, error) {
	var zero T
	switch v := data.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
	}
	if data == nil {
		return zero, errors.NewConfigurationError(entityType, "operation requires data")
	}
	return zero, errors.NewConfigurationError(entityType, fmt.Sprintf("data is %T, want %s", data, registry.RecordTypeName[T]()))
}

func unsupported(entityType string, op Operation, kind registry.Kind) error {
	return errors.NewConfigurationError(entityType, fmt.Sprintf("operation %q is not supported for %s storage", op, kind))
}

func (d *Dispatcher) connect(ctx context.Context, credential string) (*Connection, error) {
	conn, err := d.connector.Connect(ctx, credential)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return conn, nil
}

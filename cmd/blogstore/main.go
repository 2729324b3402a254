/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/suparena/blogstore"
	"github.com/suparena/blogstore/blogmodels"
	"github.com/suparena/blogstore/config"
	"github.com/suparena/blogstore/metrics"
	"github.com/suparena/blogstore/storagemodels"
)

var (
	versionFlag = flag.Bool("version", false, "Show version information")
	vFlag       = flag.Bool("v", false, "Show version information (short)")
	envFile     = flag.String("env", ".env", "Optional .env file")
	recordFlag  = flag.String("record", "post", "Record type: post, comment or image")
	entityFlag  = flag.String("entity", "", "Entity type from the location registry")
	opFlag      = flag.String("op", "get", "Operation: get, getPaged, set, update, delete, copy, move")
	pkFlag      = flag.String("pk", "", "Table partition key")
	rkFlag      = flag.String("rk", "", "Table row key")
	nameFlag    = flag.String("name", "", "Blob name")
	destFlag    = flag.String("dest", "", "Copy/move destination blob name")
	prefixFlag  = flag.String("prefix", "", "Blob listing prefix")
	dataFlag    = flag.String("data", "", "JSON file holding the record for set/update")
	pageSize    = flag.Int("page-size", 0, "Page size for getPaged")
	tokenFlag   = flag.String("token", "", "Continuation token from a previous page")
	timeoutFlag = flag.Duration("timeout", 0, "Copy/move timeout")
	metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address and keep running")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(), "\nEnvironment:\n%s\n", config.Usage())
	}
	flag.Parse()

	if *versionFlag || *vFlag {
		info := blogstore.GetVersionInfo()
		fmt.Printf("blogstore version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		fmt.Printf("Go version: %s\n", info.GoVersion)
		if info.Modified {
			fmt.Println("Built from a modified working tree")
		}
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	logger, err := cfg.Logger()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	sink := metrics.NewPrometheusSink(cfg.MetricsNamespace)
	d, err := blogstore.NewFromConfig(cfg, logger, sink, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch *recordFlag {
	case "post":
		err = execute[blogmodels.Post](ctx, d)
	case "comment":
		err = execute[blogmodels.Comment](ctx, d)
	case "image":
		err = execute[blogmodels.Image](ctx, d)
	default:
		err = fmt.Errorf("unknown record type %q", *recordFlag)
	}
	if err != nil {
		return err
	}

	if *metricsAddr != "" {
		return serveMetrics(ctx, sink, *metricsAddr, logger)
	}
	return nil
}

func execute[T any](ctx context.Context, d *blogstore.Dispatcher) error {
	opts := []storagemodels.OperationOption{
		storagemodels.WithTableKey(*pkFlag, *rkFlag),
		storagemodels.WithBlobName(*nameFlag),
		storagemodels.WithDestination(*destFlag),
		storagemodels.WithPrefix(*prefixFlag),
		storagemodels.WithPageSize(int32(*pageSize)),
		storagemodels.WithContinuationToken(*tokenFlag),
		storagemodels.WithCopyTimeout(*timeoutFlag),
	}
	if *dataFlag != "" {
		raw, err := os.ReadFile(*dataFlag)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", *dataFlag, err)
		}
		record := new(T)
		if err := json.Unmarshal(raw, record); err != nil {
			return fmt.Errorf("failed to parse %s: %w", *dataFlag, err)
		}
		opts = append(opts, storagemodels.WithData(record))
	}

	result, err := blogstore.HandleCrudOperation[T](ctx, d, blogstore.Operation(*opFlag), *entityFlag, opts...)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func serveMetrics(ctx context.Context, sink *metrics.PrometheusSink, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(sink.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Copyright 2025 The vfscore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package monitor wires up the OpenTelemetry exporters: a Prometheus
// bridge served over HTTP for metrics, and an optional stdout exporter
// for traces. Both install global providers; everything else in the
// process records through otel's package-level accessors and stays
// oblivious to whether an exporter is live.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/vfscore/vfscore/internal/cfg"
	"github.com/vfscore/vfscore/internal/common"
	"github.com/vfscore/vfscore/internal/logger"
)

// SetupOTelMetricExporters installs a global MeterProvider backed by the
// Prometheus bridge and starts serving /metrics on the configured port.
// A zero port leaves the default no-op provider in place.
func SetupOTelMetricExporters(ctx context.Context, c *cfg.Config) (common.ShutdownFn, error) {
	if c.Metrics.PrometheusPort <= 0 {
		return nil, nil
	}

	promRegistry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(promRegistry), prometheus.WithoutUnits())
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(meterProvider)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", c.Metrics.PrometheusPort),
		Handler: mux,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Prometheus exposition server failed: %v", err)
		}
	}()
	logger.Infof("Prometheus metrics served on port %d", c.Metrics.PrometheusPort)

	return common.JoinShutdownFunc(
		func(ctx context.Context) error { return server.Shutdown(ctx) },
		meterProvider.Shutdown,
	), nil
}

// SetupTracing installs a global TracerProvider according to the
// configured tracing mode. Only "stdout" is supported; anything else
// leaves the default no-op provider in place.
func SetupTracing(ctx context.Context, c *cfg.Config) (common.ShutdownFn, error) {
	if c.Monitoring.ExperimentalTracingMode != "stdout" {
		return nil, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("creating stdout trace exporter: %w", err)
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
	)
	otel.SetTracerProvider(tracerProvider)

	return tracerProvider.Shutdown, nil
}

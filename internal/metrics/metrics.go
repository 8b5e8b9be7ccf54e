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

// Package metrics defines the instruments the VFS facade records into, and
// their OpenTelemetry implementation. The facade depends only on
// MetricHandle, so tests and metric-less deployments run against the no-op
// implementation without pulling in an SDK.
package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// FSOpKey annotates the VFS operation processed.
	FSOpKey = "fs_op"

	// FSErrCategoryKey groups errors by taxonomy kind to bound the
	// cardinality of the error counter.
	FSErrCategoryKey = "fs_error_category"
)

// The default time buckets for latency metrics, in microseconds.
var defaultLatencyDistribution = metric.WithExplicitBucketBoundaries(1, 2, 3, 4, 5, 6, 8, 10, 13, 16, 20, 25, 30, 40, 50, 65, 80, 100, 130, 160, 200, 250, 300, 400, 500, 650, 800, 1000, 2000, 5000, 10000, 20000, 50000, 100000)

// FSOpsErrorCategory pairs an operation name with the error kind it
// failed with.
type FSOpsErrorCategory struct {
	FSOps         string
	ErrorCategory string
}

// MetricHandle is the set of instruments the facade records into.
type MetricHandle interface {
	OpsCount(ctx context.Context, inc int64, fsOp string)
	OpsLatency(ctx context.Context, latency time.Duration, fsOp string)
	OpsErrorCount(ctx context.Context, inc int64, attr FSOpsErrorCategory)
}

var (
	fsOpsMeter = otel.Meter("fs_op")

	fsOpsAttributeSet,
	fsOpsErrorCategoryAttributeSet sync.Map
)

func loadOrStoreAttributeOption[K comparable](mp *sync.Map, key K, attrSetGenFunc func() attribute.Set) metric.MeasurementOption {
	attrSet, ok := mp.Load(key)
	if ok {
		return attrSet.(metric.MeasurementOption)
	}
	v, _ := mp.LoadOrStore(key, metric.WithAttributeSet(attrSetGenFunc()))
	return v.(metric.MeasurementOption)
}

func getFSOpsAttributeSet(fsOp string) metric.MeasurementOption {
	return loadOrStoreAttributeOption(&fsOpsAttributeSet, fsOp, func() attribute.Set {
		return attribute.NewSet(attribute.String(FSOpKey, fsOp))
	})
}

func getFSOpsErrorCategoryAttributeSet(attr FSOpsErrorCategory) metric.MeasurementOption {
	return loadOrStoreAttributeOption(&fsOpsErrorCategoryAttributeSet, attr, func() attribute.Set {
		return attribute.NewSet(attribute.String(FSOpKey, attr.FSOps), attribute.String(FSErrCategoryKey, attr.ErrorCategory))
	})
}

// otelMetrics records into instruments owned by the globally installed
// MeterProvider.
type otelMetrics struct {
	fsOpsCount      metric.Int64Counter
	fsOpsErrorCount metric.Int64Counter
	fsOpsLatency    metric.Float64Histogram
}

// NewOTelMetrics builds a MetricHandle against the global MeterProvider.
// Call it after the provider has been installed; instruments created
// against the default no-op provider never record anything.
func NewOTelMetrics() (MetricHandle, error) {
	fsOpsCount, err1 := fsOpsMeter.Int64Counter("fs/ops_count", metric.WithDescription("The cumulative number of ops processed by the file system."))
	fsOpsErrorCount, err2 := fsOpsMeter.Int64Counter("fs/ops_error_count", metric.WithDescription("The cumulative number of errors generated by file system operations."))
	fsOpsLatency, err3 := fsOpsMeter.Float64Histogram("fs/ops_latency", metric.WithDescription("The cumulative distribution of file system operation latencies"), metric.WithUnit("us"), defaultLatencyDistribution)
	for _, err := range []error{err1, err2, err3} {
		if err != nil {
			return nil, err
		}
	}
	return &otelMetrics{
		fsOpsCount:      fsOpsCount,
		fsOpsErrorCount: fsOpsErrorCount,
		fsOpsLatency:    fsOpsLatency,
	}, nil
}

func (o *otelMetrics) OpsCount(ctx context.Context, inc int64, fsOp string) {
	o.fsOpsCount.Add(ctx, inc, getFSOpsAttributeSet(fsOp))
}

func (o *otelMetrics) OpsLatency(ctx context.Context, latency time.Duration, fsOp string) {
	o.fsOpsLatency.Record(ctx, float64(latency.Microseconds()), getFSOpsAttributeSet(fsOp))
}

func (o *otelMetrics) OpsErrorCount(ctx context.Context, inc int64, attr FSOpsErrorCategory) {
	o.fsOpsErrorCount.Add(ctx, inc, getFSOpsErrorCategoryAttributeSet(attr))
}

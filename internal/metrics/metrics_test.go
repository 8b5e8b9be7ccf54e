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

package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func record(h MetricHandle) {
	ctx := context.Background()
	h.OpsCount(ctx, 1, "Open")
	h.OpsCount(ctx, 1, "Open")
	h.OpsCount(ctx, 1, "Read")
	h.OpsLatency(ctx, 250*time.Microsecond, "Open")
	h.OpsErrorCount(ctx, 1, FSOpsErrorCategory{FSOps: "Open", ErrorCategory: "NOT_FOUND"})
}

func TestOTelMetricsRecord(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	// Instruments bind to the provider at construction, so the handle
	// must be built after the provider is installed.
	h, err := NewOTelMetrics()
	require.NoError(t, err)

	record(h)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := make(map[string]bool)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
			if m.Name == "fs/ops_count" {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				var total int64
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
				assert.Equal(t, int64(3), total)
			}
		}
	}
	assert.True(t, found["fs/ops_count"])
	assert.True(t, found["fs/ops_error_count"])
	assert.True(t, found["fs/ops_latency"])
}

// The no-op handle must accept every instrument call without side
// effects; it is what the facade runs against when metrics are disabled.
func TestNoopMetrics(t *testing.T) {
	assert.NotPanics(t, func() { record(NewNoopMetrics()) })
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for pipeline operations.
var (
	tracer = otel.Tracer("autoforge.pipeline")
	meter  = otel.Meter("autoforge.pipeline")
)

// Metrics for pipeline runs.
var (
	runLatency  metric.Float64Histogram
	runsTotal   metric.Int64Counter
	runAttempts metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		runLatency, err = meter.Float64Histogram(
			"pipeline_run_duration_seconds",
			metric.WithDescription("Duration of pipeline runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runsTotal, err = meter.Int64Counter(
			"pipeline_runs_total",
			metric.WithDescription("Total number of pipeline runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runAttempts, err = meter.Int64Histogram(
			"pipeline_run_attempts",
			metric.WithDescription("Code generation attempts per run"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startRunSpan creates a span for one pipeline run.
func startRunSpan(ctx context.Context, traceID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Coordinator.Run",
		trace.WithAttributes(
			attribute.String("pipeline.trace_id", traceID),
		),
	)
}

// finishRunSpan stamps the terminal outcome and records run metrics.
func finishRunSpan(ctx context.Context, span trace.Span, run *RunRecord, duration time.Duration) {
	span.SetAttributes(
		attribute.String("pipeline.final_status", string(run.FinalStatus)),
		attribute.Int("pipeline.attempts", len(run.Attempts)),
	)

	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("status", string(run.FinalStatus)),
		attribute.String("language", run.Language.String()),
	)
	runLatency.Record(ctx, duration.Seconds(), attrs)
	runsTotal.Add(ctx, 1, attrs)
	runAttempts.Record(ctx, int64(len(run.Attempts)), attrs)
}

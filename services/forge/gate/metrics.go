// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gate

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for gate operations.
var (
	tracer = otel.Tracer("autoforge.gate")
	meter  = otel.Meter("autoforge.gate")
)

// Metrics for gate operations.
var (
	validateLatency metric.Float64Histogram
	validateTotal   metric.Int64Counter
	checksFailed    metric.Int64Counter
	issuesFound     metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		validateLatency, err = meter.Float64Histogram(
			"gate_validate_duration_seconds",
			metric.WithDescription("Duration of gate validations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		validateTotal, err = meter.Int64Counter(
			"gate_validations_total",
			metric.WithDescription("Total number of gate validations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		checksFailed, err = meter.Int64Counter(
			"gate_checks_failed_total",
			metric.WithDescription("Total number of failed checks across validations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		issuesFound, err = meter.Int64Histogram(
			"gate_issues_found",
			metric.WithDescription("Number of issues found per validation"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startValidateSpan creates a span for a gate validation.
func startValidateSpan(ctx context.Context, language string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Gate.Validate",
		trace.WithAttributes(
			attribute.String("gate.language", language),
		),
	)
}

// setValidateSpanResult sets result attributes on a validation span.
func setValidateSpanResult(span trace.Span, valid bool, issueCount int) {
	span.SetAttributes(
		attribute.Bool("gate.valid", valid),
		attribute.Int("gate.issue_count", issueCount),
	)
}

// recordValidateMetrics records metrics for one gate validation.
func recordValidateMetrics(ctx context.Context, language string, duration time.Duration, report *Report) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("language", language),
		attribute.Bool("valid", report.Valid),
	)

	validateLatency.Record(ctx, duration.Seconds(), attrs)
	validateTotal.Add(ctx, 1, attrs)
	issuesFound.Record(ctx, int64(len(report.Issues)), metric.WithAttributes(
		attribute.String("language", language),
	))

	for _, name := range report.CheckNames() {
		c := report.Checks[name]
		if c.Status == StatusFail || c.Status == StatusError {
			checksFailed.Add(ctx, 1, metric.WithAttributes(
				attribute.String("language", language),
				attribute.String("check", name),
				attribute.String("status", c.Status.String()),
			))
		}
	}
}

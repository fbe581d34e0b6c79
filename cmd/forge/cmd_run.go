// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/autoforge/pkg/ux"
	"github.com/AleutianAI/autoforge/services/forge/gate"
	"github.com/AleutianAI/autoforge/services/forge/llm"
	"github.com/AleutianAI/autoforge/services/forge/pipeline"
	storage "github.com/AleutianAI/autoforge/services/forge/storage/badger"
	"github.com/AleutianAI/autoforge/services/forge/telemetry"
	"github.com/AleutianAI/autoforge/services/forge/tools"
)

// runPipeline executes the full pipeline for one requirement document.
func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Init(ctx, telemetry.DefaultConfig())
	if err != nil {
		ux.Error(fmt.Sprintf("telemetry init failed: %v", err))
		os.Exit(ExitError)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	requirement, err := os.ReadFile(args[0])
	if err != nil {
		ux.Error(fmt.Sprintf("cannot read requirement: %v", err))
		os.Exit(ExitError)
	}

	backend, err := llm.NewClient(providerName)
	if err != nil {
		ux.Error(fmt.Sprintf("cannot create generation backend: %v", err))
		os.Exit(ExitError)
	}

	var gateOpts []gate.Option
	if minLines > 0 {
		gateOpts = append(gateOpts, gate.WithMinLines(minLines))
	}
	g := gate.New(tools.NewExecRunner(), gateOpts...)

	var coordOpts []pipeline.Option
	if maxAttempts > 0 {
		coordOpts = append(coordOpts, pipeline.WithMaxAttempts(maxAttempts))
	}
	coordinator := pipeline.New(llm.NewAuditor(backend), llm.NewArchitect(backend), g, coordOpts...)

	ux.Title("forge run")
	ux.Info(fmt.Sprintf("requirement: %s", args[0]))
	ux.Info(fmt.Sprintf("provider: %s", providerName))

	run, err := coordinator.Run(ctx, requirement)
	if err != nil {
		ux.Error(fmt.Sprintf("pipeline infrastructure failed: %v", err))
		os.Exit(ExitError)
	}

	if err := writeRunOutputs(run); err != nil {
		ux.Error(fmt.Sprintf("cannot write outputs: %v", err))
		os.Exit(ExitError)
	}
	persistRun(ctx, run)
	printRun(run)

	if !run.Accepted() {
		os.Exit(ExitRejected)
	}
	return nil
}

// writeRunOutputs writes the artifacts and the audit report to the output
// directory. The audit report is written for rejected runs too.
func writeRunOutputs(run *pipeline.RunRecord) error {
	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	auditJSON, err := run.Audit.JSON()
	if err != nil {
		return fmt.Errorf("render audit report: %w", err)
	}
	auditPath := filepath.Join(outputDir, "audit_report.json")
	if err := os.WriteFile(auditPath, auditJSON, 0640); err != nil {
		return fmt.Errorf("write audit report: %w", err)
	}
	ux.Muted(fmt.Sprintf("audit report: %s", auditPath))

	traceYAML, err := run.Audit.YAML()
	if err != nil {
		return fmt.Errorf("render trace: %w", err)
	}
	tracePath := filepath.Join(outputDir, "trace.yaml")
	if err := os.WriteFile(tracePath, traceYAML, 0640); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	ux.Muted(fmt.Sprintf("trace: %s", tracePath))

	if run.TestArtifact.Content != "" {
		testPath := filepath.Join(outputDir, "test_implementation.py")
		if err := os.WriteFile(testPath, []byte(run.TestArtifact.Content), 0640); err != nil {
			return fmt.Errorf("write test artifact: %w", err)
		}
		ux.Muted(fmt.Sprintf("tests: %s", testPath))
	}

	if run.AcceptedArtifact != nil {
		implPath := filepath.Join(outputDir, "implementation"+run.Language.FileExtension())
		if err := os.WriteFile(implPath, []byte(run.AcceptedArtifact.Content), 0640); err != nil {
			return fmt.Errorf("write implementation: %w", err)
		}
		ux.Muted(fmt.Sprintf("implementation: %s", implPath))
	}
	return nil
}

// persistRun saves the sealed run to the local ledger. Ledger failures are
// reported but never change the run outcome.
func persistRun(ctx context.Context, run *pipeline.RunRecord) {
	if storeDir == "" {
		return
	}

	store, err := storage.OpenStore(storage.DefaultConfig(expandHome(storeDir)))
	if err != nil {
		ux.Warning(fmt.Sprintf("run ledger unavailable: %v", err))
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Run ledger close failed", slog.String("error", err.Error()))
		}
	}()

	if err := store.Save(ctx, run); err != nil {
		ux.Warning(fmt.Sprintf("cannot persist run: %v", err))
		return
	}
	ux.Muted(fmt.Sprintf("ledger: %s", run.TraceID))
}

// printRun renders the per-attempt history and the terminal verdict.
func printRun(run *pipeline.RunRecord) {
	fmt.Println()
	ux.Info(fmt.Sprintf("trace: %s", run.TraceID))
	for _, attempt := range run.Attempts {
		if attempt.Report == nil {
			ux.CheckLine(fmt.Sprintf("attempt %d", attempt.Index), ux.IconError, attempt.GenerationError)
			continue
		}
		icon := ux.IconError
		detail := fmt.Sprintf("%d issue(s)", len(attempt.Report.Issues))
		if attempt.Report.Valid {
			icon = ux.IconSuccess
			detail = "valid"
		}
		ux.CheckLine(fmt.Sprintf("attempt %d", attempt.Index), icon, detail)
	}

	for _, issue := range run.Issues {
		ux.CheckLine(string(ux.IconBullet), ux.IconWarning, issue)
	}
	ux.RunSummary(run.Accepted(), len(run.Attempts), len(run.Issues))
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

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
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/autoforge/pkg/logging"
	"github.com/AleutianAI/autoforge/pkg/ux"
)

// Exit codes shared by all subcommands.
const (
	ExitSuccess  = 0
	ExitRejected = 1
	ExitError    = 2
)

// --- Global Command Variables ---
var (
	logLevel     string
	logDir       string
	plainOutput  bool
	providerName string
	outputDir    string
	storeDir     string
	maxAttempts  int
	minLines     int
	languageName string

	rootCmd = &cobra.Command{
		Use:   "forge",
		Short: "Adversarial code generation with multi-stage validation",
		Long: `Forge turns YAML service requirements into validated implementations.
An Auditor role writes tests first, an Architect role writes code against
them, and a validation gate arbitrates every attempt.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ux.SetPlain(plainOutput || ux.IsPlain())
			logger := logging.New(logging.Config{
				Level:   logging.ParseLevel(logLevel),
				LogDir:  logDir,
				Service: "forge",
			})
			logger.SetAsDefault()
		},
	}

	runCmd = &cobra.Command{
		Use:   "run [requirement.yaml]",
		Short: "Run the full pipeline for one requirement document",
		Args:  cobra.ExactArgs(1),
		RunE:  runPipeline, // Defined in cmd_run.go
	}

	validateCmd = &cobra.Command{
		Use:   "validate [implementation] [test]",
		Short: "Validate an existing implementation against its tests",
		Args:  cobra.ExactArgs(2),
		RunE:  runValidate, // Defined in cmd_validate.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Minimum log level (debug/info/warn/error)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Directory for JSON log files (disabled when empty)")
	rootCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false, "Plain machine-readable output")

	runCmd.Flags().StringVar(&providerName, "provider", getEnvString("FORGE_PROVIDER", "openai"), "Generation backend (openai/mock)")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "forge-out", "Directory for generated artifacts and reports")
	runCmd.Flags().StringVar(&storeDir, "store", "~/.autoforge/runs", "BadgerDB directory for the run ledger (empty disables)")
	runCmd.Flags().IntVar(&maxAttempts, "max-attempts", getEnvInt("FORGE_MAX_RETRIES", 0), "Override the code generation attempt bound")
	runCmd.Flags().IntVar(&minLines, "min-lines", 0, "Override the implementation size floor")

	validateCmd.Flags().StringVarP(&languageName, "language", "l", "", "Implementation language (required)")
	validateCmd.Flags().IntVar(&minLines, "min-lines", 0, "Override the implementation size floor")
	_ = validateCmd.MarkFlagRequired("language")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}

// getEnvString returns the environment value or a fallback.
func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the environment value as an int or a fallback.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command forge drives requirement documents through the adversarial
// generation pipeline.
//
// Usage:
//
//	forge run requirement.yaml
//	forge run requirement.yaml --provider mock --output ./out
//	forge validate impl.py test_impl.py --language python
//
// With OpenAI generation:
//
//	OPENAI_API_KEY=... forge run requirement.yaml --provider openai
//
// Telemetry is off by default; OTEL_TRACES_EXPORTER=stdout and
// OTEL_METRICS_EXPORTER=stdout enable the stdout exporters.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitError)
	}
}

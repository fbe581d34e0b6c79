// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import "errors"

// Sentinel errors for generation backends. Generation errors are not
// validation failures: the coordinator treats them as attempt-level faults.
var (
	// ErrGeneration indicates the backend call failed.
	ErrGeneration = errors.New("generation failed")

	// ErrEmptyOutput indicates the backend returned no usable text.
	ErrEmptyOutput = errors.New("generation returned empty output")

	// ErrMissingAPIKey indicates backend credentials are not configured.
	ErrMissingAPIKey = errors.New("API key not configured")

	// ErrUnknownProvider indicates an unrecognized backend name.
	ErrUnknownProvider = errors.New("unknown LLM provider")
)

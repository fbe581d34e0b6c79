// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the text generation capability behind the two
// adversarial roles: the Auditor writes tests, the Architect writes
// implementations that must satisfy them.
package llm

import "context"

// GenerationParams tunes one generation request.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`

	// SystemPrompt frames the request. Empty means backend default.
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// Client is the standard interface for any text generation backend.
// Remote APIs and local models are treated identically through it.
type Client interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// float32Ptr is a convenience for building params.
func float32Ptr(v float32) *float32 {
	return &v
}

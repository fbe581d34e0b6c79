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

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/autoforge/services/forge/artifact"
	"github.com/AleutianAI/autoforge/services/forge/spec"
)

// =============================================================================
// ROLES
// =============================================================================

// Role identifies one of the two adversarial generation roles.
type Role string

const (
	// RoleAuditor writes strict tests first. Low-variance generation.
	RoleAuditor Role = "auditor"

	// RoleArchitect writes implementations that must pass the Auditor's
	// tests. Higher-variance generation.
	RoleArchitect Role = "architect"
)

// Determinism bias per role.
const (
	auditorTemperature   = 0.1
	architectTemperature = 0.3
)

// auditorSystemPrompt frames test generation: strict, exhaustive, tests only.
const auditorSystemPrompt = `You are the Auditor, a skeptical test author for safety-critical services.
Write comprehensive, strict pytest tests covering every business rule, edge
case, and failure mode. Output only executable test code.`

// architectSystemPrompt frames implementation generation.
const architectSystemPrompt = `You are the Architect, an implementation expert for safety-critical services.
Write production-quality code that passes every provided test, compiles
cleanly, and handles all failure modes. Output only executable code.`

// =============================================================================
// GENERATION CONTEXT
// =============================================================================

// Context carries the Architect's inputs: the current test artifact and the
// structured issue list accumulated from prior failed attempts. The issue
// list is the sole feedback channel between the gate and generation.
type Context struct {
	// Test is the Auditor's test artifact. Zero for the Auditor itself.
	Test artifact.Artifact

	// PriorIssues are gate findings from earlier rejected attempts.
	PriorIssues []string
}

// =============================================================================
// ROLE CLIENT
// =============================================================================

// RoleClient binds a generation backend to one adversarial role.
//
// Thread Safety: Safe for concurrent use if the underlying Client is.
type RoleClient struct {
	client      Client
	role        Role
	temperature float32
}

// NewAuditor creates the test-writing role on the given backend.
func NewAuditor(client Client) *RoleClient {
	return &RoleClient{client: client, role: RoleAuditor, temperature: auditorTemperature}
}

// NewArchitect creates the implementation-writing role on the given backend.
func NewArchitect(client Client) *RoleClient {
	return &RoleClient{client: client, role: RoleArchitect, temperature: architectTemperature}
}

// Role returns the client's role.
func (rc *RoleClient) Role() Role {
	return rc.role
}

// Produce generates one artifact for the spec.
//
// Description:
//
//	Builds the role-specific prompt, invokes the backend with the role's
//	determinism bias, and strips markdown code fences from the response.
//	Empty output is a generation error, never an empty artifact.
//
// Inputs:
//
//	ctx - Context for cancellation and timeout
//	s - The service spec
//	genCtx - Test artifact and prior issues (Architect only)
//
// Outputs:
//
//	artifact.Artifact - The produced artifact with role and language tags
//	error - Wraps ErrGeneration or ErrEmptyOutput on backend failure
//
// Thread Safety: Safe for concurrent use.
func (rc *RoleClient) Produce(ctx context.Context, s *spec.Spec, genCtx Context) (artifact.Artifact, error) {
	prompt := rc.buildPrompt(s, genCtx)

	params := GenerationParams{
		Temperature:  float32Ptr(rc.temperature),
		SystemPrompt: rc.systemPrompt(),
	}

	slog.Debug("Generating artifact",
		slog.String("role", string(rc.role)),
		slog.String("service", s.Name),
		slog.Int("prior_issues", len(genCtx.PriorIssues)),
	)

	response, err := rc.client.Generate(ctx, prompt, params)
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("%s: %w", rc.role, err)
	}

	code := ExtractCode(response)
	if strings.TrimSpace(code) == "" {
		return artifact.Artifact{}, fmt.Errorf("%s: %w", rc.role, ErrEmptyOutput)
	}

	return artifact.Artifact{
		Content:  code,
		Language: rc.artifactLanguage(s),
		Role:     rc.artifactRole(),
	}, nil
}

// systemPrompt returns the role framing.
func (rc *RoleClient) systemPrompt() string {
	if rc.role == RoleAuditor {
		return auditorSystemPrompt
	}
	return architectSystemPrompt
}

// artifactRole maps the generation role to the artifact tag.
func (rc *RoleClient) artifactRole() artifact.Role {
	if rc.role == RoleAuditor {
		return artifact.RoleTest
	}
	return artifact.RoleImplementation
}

// artifactLanguage picks the artifact's language tag. Tests are always
// Python (pytest drives the dynamic gate); implementations follow the spec.
func (rc *RoleClient) artifactLanguage(s *spec.Spec) spec.Language {
	if rc.role == RoleAuditor {
		return spec.LangPython
	}
	return s.Language
}

// buildPrompt assembles the user prompt for the role.
func (rc *RoleClient) buildPrompt(s *spec.Spec, genCtx Context) string {
	var b strings.Builder

	if rc.role == RoleAuditor {
		b.WriteString("Generate pytest tests for the following service requirement.\n\n")
		b.WriteString(s.Summary())
		return b.String()
	}

	b.WriteString("Generate the ")
	b.WriteString(s.Language.String())
	b.WriteString(" implementation for the following service requirement.\n\n")
	b.WriteString(s.Summary())

	if len(genCtx.PriorIssues) > 0 {
		b.WriteString("\nIssues found in previous attempts; all must be resolved:\n")
		for _, issue := range genCtx.PriorIssues {
			b.WriteString("- ")
			b.WriteString(issue)
			b.WriteString("\n")
		}
	}

	if genCtx.Test.Content != "" {
		b.WriteString("\nTests the implementation must pass:\n")
		b.WriteString(genCtx.Test.Content)
		b.WriteString("\n")
	}

	return b.String()
}

// =============================================================================
// CODE EXTRACTION
// =============================================================================

// ExtractCode strips markdown code fences from a model response.
//
// Responses without fences pass through unchanged.
func ExtractCode(response string) string {
	if !strings.Contains(response, "```") {
		return response
	}

	var codeLines []string
	inBlock := false
	for _, line := range strings.Split(response, "\n") {
		if strings.HasPrefix(line, "```") {
			inBlock = !inBlock
			continue
		}
		if inBlock {
			codeLines = append(codeLines, line)
		}
	}
	return strings.Join(codeLines, "\n")
}

// NewClient constructs a backend by provider name.
//
// Inputs:
//
//	provider - "openai" or "mock"
//
// Outputs:
//
//	Client - The backend
//	error - ErrUnknownProvider for unrecognized names
func NewClient(provider string) (Client, error) {
	switch strings.ToLower(provider) {
	case "openai":
		return NewOpenAIClient()
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
}

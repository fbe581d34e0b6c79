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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/autoforge/services/forge/artifact"
	"github.com/AleutianAI/autoforge/services/forge/spec"
)

func testSpec(lang spec.Language) *spec.Spec {
	return &spec.Spec{
		Name:     "BMSDiagnosticService",
		Language: lang,
		Methods:  []spec.MethodSpec{{Name: "GetBatteryStatus", Description: "read pack state"}},
		Rules:    []spec.RuleSpec{{ID: "BR-001", Text: "reject balance while charging"}},
	}
}

func TestAuditorProducesPythonTests(t *testing.T) {
	mock := NewMockClient("```python\nimport pytest\n\ndef test_status():\n    assert True\n```")
	auditor := NewAuditor(mock)

	art, err := auditor.Produce(context.Background(), testSpec(spec.LangCpp), Context{})
	require.NoError(t, err)

	// Tests are always Python regardless of the implementation language.
	assert.Equal(t, spec.LangPython, art.Language)
	assert.Equal(t, artifact.RoleTest, art.Role)
	assert.Contains(t, art.Content, "def test_status")
	assert.NotContains(t, art.Content, "```")
}

func TestArchitectFollowsSpecLanguage(t *testing.T) {
	mock := NewMockClient("```cpp\nint main() { return 0; }\n```")
	architect := NewArchitect(mock)

	art, err := architect.Produce(context.Background(), testSpec(spec.LangCpp), Context{})
	require.NoError(t, err)

	assert.Equal(t, spec.LangCpp, art.Language)
	assert.Equal(t, artifact.RoleImplementation, art.Role)
}

func TestArchitectPromptCarriesFeedback(t *testing.T) {
	mock := NewMockClient("int main() { return 0; }")
	architect := NewArchitect(mock)

	genCtx := Context{
		Test:        artifact.Artifact{Content: "import pytest\ndef test_a(): pass"},
		PriorIssues: []string{"test failed: test_a", "compilation error: missing ';'"},
	}
	_, err := architect.Produce(context.Background(), testSpec(spec.LangCpp), genCtx)
	require.NoError(t, err)

	prompts := mock.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "BMSDiagnosticService")
	assert.Contains(t, prompts[0], "- test failed: test_a")
	assert.Contains(t, prompts[0], "- compilation error: missing ';'")
	assert.Contains(t, prompts[0], "def test_a(): pass")
}

func TestAuditorPromptOmitsFeedbackSections(t *testing.T) {
	mock := NewMockClient("def test_a(): pass")
	auditor := NewAuditor(mock)

	_, err := auditor.Produce(context.Background(), testSpec(spec.LangPython), Context{})
	require.NoError(t, err)

	prompts := mock.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "pytest tests")
	assert.NotContains(t, prompts[0], "previous attempts")
}

func TestProduceEmptyOutputIsError(t *testing.T) {
	mock := NewMockClient("```python\n```")
	auditor := NewAuditor(mock)

	_, err := auditor.Produce(context.Background(), testSpec(spec.LangPython), Context{})
	assert.ErrorIs(t, err, ErrEmptyOutput)
}

func TestProduceBackendFailure(t *testing.T) {
	backendErr := errors.New("connection refused")
	mock := NewMockClient().FailWith(backendErr)
	architect := NewArchitect(mock)

	_, err := architect.Produce(context.Background(), testSpec(spec.LangPython), Context{})
	assert.ErrorIs(t, err, backendErr)
}

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "fenced with language tag",
			response: "Here you go:\n```python\nx = 1\n```\nDone.",
			want:     "x = 1",
		},
		{
			name:     "unfenced passes through",
			response: "x = 1\ny = 2",
			want:     "x = 1\ny = 2",
		},
		{
			name:     "multiple blocks concatenate",
			response: "```\na = 1\n```\ntext\n```\nb = 2\n```",
			want:     "a = 1\nb = 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCode(tt.response))
		})
	}
}

func TestRoleAccessors(t *testing.T) {
	mock := NewMockClient()
	assert.Equal(t, RoleAuditor, NewAuditor(mock).Role())
	assert.Equal(t, RoleArchitect, NewArchitect(mock).Role())
}

func TestNewClientFactory(t *testing.T) {
	c, err := NewClient("mock")
	require.NoError(t, err)
	assert.IsType(t, &MockClient{}, c)

	_, err = NewClient("carrier-pigeon")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestMockClientCyclesResponses(t *testing.T) {
	mock := NewMockClient("one", "two")

	first, err := mock.Generate(context.Background(), "p1", GenerationParams{})
	require.NoError(t, err)
	second, err := mock.Generate(context.Background(), "p2", GenerationParams{})
	require.NoError(t, err)
	third, err := mock.Generate(context.Background(), "p3", GenerationParams{})
	require.NoError(t, err)

	assert.Equal(t, []string{"one", "two", "one"}, []string{first, second, third})
}

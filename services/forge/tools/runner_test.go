// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunnerExitOK(t *testing.T) {
	r := NewExecRunner()
	out, err := r.Run(context.Background(), Invocation{
		Command: "sh",
		Args:    []string{"-c", "echo hello; exit 0"},
	})
	require.NoError(t, err)
	assert.True(t, out.ExitOK)
	assert.False(t, out.Infrastructure())
	assert.Contains(t, out.Stdout, "hello")
}

func TestExecRunnerNonZeroExit(t *testing.T) {
	r := NewExecRunner()
	out, err := r.Run(context.Background(), Invocation{
		Command: "sh",
		Args:    []string{"-c", "echo bad >&2; exit 3"},
	})
	require.NoError(t, err)
	assert.False(t, out.ExitOK)
	assert.False(t, out.Infrastructure())
	assert.Contains(t, out.Stderr, "bad")
}

func TestExecRunnerNotFound(t *testing.T) {
	r := NewExecRunner()
	out, err := r.Run(context.Background(), Invocation{
		Command: "definitely-not-a-real-tool-7f3a",
	})
	require.NoError(t, err)
	assert.True(t, out.NotFound)
	assert.False(t, out.ExitOK)
}

func TestExecRunnerTimeout(t *testing.T) {
	r := NewExecRunner()
	out, err := r.Run(context.Background(), Invocation{
		Command: "sleep",
		Args:    []string{"5"},
		Timeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.True(t, out.TimedOut)
	assert.True(t, out.Infrastructure())
}

func TestExecRunnerCancelledContext(t *testing.T) {
	r := NewExecRunner()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, Invocation{
		Command: "sh",
		Args:    []string{"-c", "exit 0"},
	})
	assert.Error(t, err)
}

func TestExecRunnerNilContext(t *testing.T) {
	r := NewExecRunner()
	//nolint:staticcheck
	_, err := r.Run(nil, Invocation{Command: "sh"})
	assert.Error(t, err)
}

func TestExecRunnerAvailable(t *testing.T) {
	r := NewExecRunner()
	assert.True(t, r.Available("sh"))
	assert.False(t, r.Available("definitely-not-a-real-tool-7f3a"))
}

func TestScriptedRunner(t *testing.T) {
	r := NewScriptedRunner().
		Script("g++", Outcome{ExitOK: true}).
		Script("clang-tidy", Outcome{NotFound: true})

	assert.True(t, r.Available("g++"))
	assert.False(t, r.Available("clang-tidy"))
	assert.False(t, r.Available("cppcheck"))

	out, err := r.Run(context.Background(), Invocation{Command: "g++"})
	require.NoError(t, err)
	assert.True(t, out.ExitOK)

	out, err = r.Run(context.Background(), Invocation{Command: "cppcheck"})
	require.NoError(t, err)
	assert.True(t, out.NotFound)

	assert.Equal(t, []string{"g++", "cppcheck"}, r.CalledCommands())
	assert.Len(t, r.Calls(), 2)
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tools wraps external validation tool invocations.
//
// Every subprocess call goes through a Runner so the gate and the safety
// validator can be tested with scripted fakes instead of real toolchains.
// All invocations are bounded by a timeout and classified into one of four
// outcomes: success, failure, tool-not-found, or infrastructure error.
package tools

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// =============================================================================
// INVOCATION
// =============================================================================

// Invocation describes one external tool call.
//
// Thread Safety: Treat as immutable after creation.
type Invocation struct {
	// Command is the tool executable name (e.g., "g++", "pytest").
	Command string

	// Args are the arguments to pass to the tool.
	Args []string

	// Dir is the working directory for the call. Usually a scratch workspace.
	Dir string

	// Timeout bounds the wall-clock run time. Zero means DefaultTimeout.
	Timeout time.Duration
}

// DefaultTimeout bounds tool calls that don't specify their own.
const DefaultTimeout = 30 * time.Second

// =============================================================================
// OUTCOME
// =============================================================================

// Outcome is the classified result of one tool invocation.
//
// Exactly one of the four conditions holds:
//   - NotFound: the binary is not installed
//   - TimedOut: the call exceeded its timeout
//   - Crashed: the process could not be started or was killed
//   - otherwise ExitOK reflects the exit status
type Outcome struct {
	// ExitOK is true when the tool exited with status 0.
	ExitOK bool

	// NotFound is true when the tool binary was not found in PATH.
	NotFound bool

	// TimedOut is true when the invocation hit its deadline.
	TimedOut bool

	// Crashed is true when the process failed outside of a normal exit.
	Crashed bool

	// Stdout is the captured standard output.
	Stdout string

	// Stderr is the captured standard error.
	Stderr string

	// Duration is how long the invocation took.
	Duration time.Duration
}

// Infrastructure reports whether the outcome is an infrastructure problem
// (timeout or crash) rather than a verdict about the checked input.
func (o Outcome) Infrastructure() bool {
	return o.TimedOut || o.Crashed
}

// =============================================================================
// RUNNER
// =============================================================================

// Runner executes external validation tools.
//
// Implementations must be safe for concurrent use: one gate validation may
// fan checks out in parallel, and multiple runs may share a Runner.
type Runner interface {
	// Run executes the invocation and classifies the result.
	// The returned error is non-nil only for caller mistakes (nil context);
	// tool problems are reported through the Outcome.
	Run(ctx context.Context, inv Invocation) (Outcome, error)

	// Available reports whether the named tool binary is installed.
	Available(command string) bool
}

// ExecRunner runs tools as real subprocesses.
//
// Thread Safety: Safe for concurrent use.
type ExecRunner struct{}

// NewExecRunner creates a subprocess-backed runner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Available probes PATH for the tool binary.
func (r *ExecRunner) Available(command string) bool {
	_, err := exec.LookPath(command)
	return err == nil
}

// Run executes the tool with a hard timeout and captures its output.
//
// Description:
//
//	Probes for the binary first so a missing tool is reported as NotFound
//	rather than a crash. The subprocess inherits nothing from the caller
//	beyond environment and working directory.
//
// Inputs:
//
//	ctx - Context for cancellation; the invocation timeout is layered on top
//	inv - The tool invocation
//
// Outputs:
//
//	Outcome - Classified result with captured output
//	error - Non-nil only if ctx is nil
//
// Thread Safety: Safe for concurrent use.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (Outcome, error) {
	if ctx == nil {
		return Outcome{}, fmt.Errorf("ctx must not be nil")
	}

	if !r.Available(inv.Command) {
		slog.Debug("Tool not installed", slog.String("command", inv.Command))
		return Outcome{NotFound: true}, nil
	}

	timeout := inv.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, inv.Command, inv.Args...)
	if inv.Dir != "" {
		cmd.Dir = inv.Dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	out := Outcome{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: elapsed,
	}

	if cmdCtx.Err() == context.DeadlineExceeded {
		out.TimedOut = true
		slog.Warn("Tool timed out",
			slog.String("command", inv.Command),
			slog.Duration("timeout", timeout),
		)
		return out, nil
	}
	if ctx.Err() != nil {
		// Caller cancellation propagates as an error, not a tool verdict.
		return out, ctx.Err()
	}

	switch e := err.(type) {
	case nil:
		out.ExitOK = true
	case *exec.ExitError:
		_ = e // non-zero exit is a normal tool verdict
	default:
		out.Crashed = true
		slog.Warn("Tool crashed",
			slog.String("command", inv.Command),
			slog.String("error", err.Error()),
		)
	}

	return out, nil
}

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
	"sync"
)

// ScriptedRunner is an in-memory Runner for tests.
//
// Description:
//
//	Maps tool command names to fixed outcomes. Tools without an entry are
//	reported as not found, matching how a real runner degrades when a
//	binary is missing. Call order is recorded for assertions.
//
// Thread Safety: Safe for concurrent use.
type ScriptedRunner struct {
	mu       sync.Mutex
	outcomes map[string]Outcome
	calls    []Invocation
}

// NewScriptedRunner creates an empty scripted runner.
func NewScriptedRunner() *ScriptedRunner {
	return &ScriptedRunner{outcomes: make(map[string]Outcome)}
}

// Script sets the outcome returned for a command.
func (r *ScriptedRunner) Script(command string, out Outcome) *ScriptedRunner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[command] = out
	return r
}

// Available reports whether the command has a scripted outcome that is not
// a not-found outcome.
func (r *ScriptedRunner) Available(command string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out, ok := r.outcomes[command]
	return ok && !out.NotFound
}

// Run returns the scripted outcome and records the invocation.
func (r *ScriptedRunner) Run(ctx context.Context, inv Invocation) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, inv)
	out, ok := r.outcomes[inv.Command]
	if !ok {
		return Outcome{NotFound: true}, nil
	}
	return out, nil
}

// Calls returns a copy of the recorded invocations in call order.
func (r *ScriptedRunner) Calls() []Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	calls := make([]Invocation, len(r.calls))
	copy(calls, r.calls)
	return calls
}

// CalledCommands returns the command names in call order.
func (r *ScriptedRunner) CalledCommands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		names = append(names, c.Command)
	}
	return names
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gate

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// scratch is an isolated, disposable workspace for one gate invocation.
//
// Scratch directories are never shared across runs or attempts, and the
// cleanup runs on every exit path.
type scratch struct {
	dir string
}

// newScratch creates a fresh scratch workspace.
func newScratch() (*scratch, error) {
	dir, err := os.MkdirTemp("", "autoforge-gate-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScratchWorkspace, err)
	}
	return &scratch{dir: dir}, nil
}

// write places a file in the workspace and returns its absolute path.
func (s *scratch) write(name, content string) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("%w: writing %s: %v", ErrScratchWorkspace, name, err)
	}
	return path, nil
}

// cleanup removes the workspace. Safe to call on every exit path.
func (s *scratch) cleanup() {
	if err := os.RemoveAll(s.dir); err != nil {
		slog.Warn("Scratch cleanup failed",
			slog.String("dir", s.dir),
			slog.String("error", err.Error()),
		)
	}
}

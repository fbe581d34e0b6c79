// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package artifact defines the immutable text artifacts exchanged between the
// generation roles, the validation gate, and the pipeline coordinator.
package artifact

import (
	"strings"

	"github.com/AleutianAI/autoforge/services/forge/spec"
)

// Role tags what an artifact is for.
type Role string

const (
	// RoleTest marks an artifact produced by the Auditor.
	RoleTest Role = "test"

	// RoleImplementation marks an artifact produced by the Architect.
	RoleImplementation Role = "implementation"
)

// Artifact is an opaque generated text blob with a language and role tag.
//
// Thread Safety: Immutable once produced; safe for concurrent reads.
type Artifact struct {
	// Content is the generated source text.
	Content string `json:"content"`

	// Language is the target language the artifact was generated for.
	Language spec.Language `json:"language"`

	// Role tags the artifact as test or implementation.
	Role Role `json:"role"`
}

// IsZero reports whether the artifact is empty.
func (a Artifact) IsZero() bool {
	return a.Content == "" && a.Role == ""
}

// NonBlankLines counts lines containing at least one non-whitespace character.
//
// The validation gate's size floor is defined over this count.
func (a Artifact) NonBlankLines() int {
	n := 0
	for _, line := range strings.Split(a.Content, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

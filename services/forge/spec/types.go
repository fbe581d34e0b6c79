// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package spec

import (
	"fmt"
	"strings"
)

// =============================================================================
// TARGET LANGUAGE
// =============================================================================

// Language is the closed set of target languages a service can be generated in.
//
// Unknown language tags are rejected when a requirement is parsed, not deep in
// the validation chain.
type Language int

const (
	// LangUnknown is the zero value; never valid in a parsed Spec.
	LangUnknown Language = iota

	// LangPython targets CPython services validated with pylint and pytest.
	LangPython

	// LangCpp targets C++17 services validated with g++, clang-tidy, and cppcheck.
	LangCpp

	// LangJava targets Java services validated with javac.
	LangJava

	// LangRust targets Rust services validated with rustc.
	LangRust

	// LangKotlin targets Kotlin services. Kotlin has no validation strategy;
	// the gate rejects it at the dispatch boundary.
	LangKotlin
)

// String returns the canonical lowercase name of the language.
func (l Language) String() string {
	switch l {
	case LangPython:
		return "python"
	case LangCpp:
		return "cpp"
	case LangJava:
		return "java"
	case LangRust:
		return "rust"
	case LangKotlin:
		return "kotlin"
	default:
		return "unknown"
	}
}

// FileExtension returns the implementation file extension including the dot.
func (l Language) FileExtension() string {
	switch l {
	case LangPython:
		return ".py"
	case LangCpp:
		return ".cpp"
	case LangJava:
		return ".java"
	case LangRust:
		return ".rs"
	case LangKotlin:
		return ".kt"
	default:
		return ".txt"
	}
}

// ParseLanguage converts a requirement language tag to a Language.
//
// Description:
//
//	Accepts the aliases seen in requirement documents ("py", "c++", "rs")
//	in addition to canonical names. Matching is case-insensitive.
//
// Inputs:
//
//	tag - The language tag from the requirement document
//
// Outputs:
//
//	Language - The parsed language
//	error - ErrUnknownLanguage if the tag is not in the closed set
func ParseLanguage(tag string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "python", "py":
		return LangPython, nil
	case "cpp", "c++", "cxx":
		return LangCpp, nil
	case "java":
		return LangJava, nil
	case "rust", "rs":
		return LangRust, nil
	case "kotlin", "kt":
		return LangKotlin, nil
	default:
		return LangUnknown, fmt.Errorf("%w: %q", ErrUnknownLanguage, tag)
	}
}

// =============================================================================
// SPEC MODEL
// =============================================================================

// MethodSpec describes one service method from the requirement document.
type MethodSpec struct {
	// Name is the method name (e.g., "GetBatteryStatus").
	Name string `yaml:"name" validate:"required"`

	// Description is the human-readable behavior summary.
	Description string `yaml:"description"`

	// Returns describes the return payload, if any.
	Returns string `yaml:"returns"`
}

// EventSpec describes one service event from the requirement document.
type EventSpec struct {
	// Name is the event name (e.g., "LowBatteryWarning").
	Name string `yaml:"name" validate:"required"`

	// Trigger describes the condition that fires the event.
	Trigger string `yaml:"trigger"`
}

// RuleSpec describes one business rule the implementation must honor.
type RuleSpec struct {
	// ID is the rule identifier (e.g., "BR-001").
	ID string `yaml:"id"`

	// Text is the rule statement.
	Text string `yaml:"text" validate:"required"`
}

// Spec is the immutable in-memory form of a validated service requirement.
//
// Description:
//
//	Spec is produced by Parse and consumed by the generation roles and the
//	pipeline coordinator. Name and Language are always present; a document
//	missing either never produces a Spec.
//
// Thread Safety: Immutable after Parse; safe for concurrent reads.
type Spec struct {
	// Name is the service name (e.g., "BMSDiagnosticService").
	Name string

	// Language is the target implementation language.
	Language Language

	// Protocol is the service protocol tag (e.g., "someip"). May be empty.
	Protocol string

	// Methods are the service methods in document order.
	Methods []MethodSpec

	// Events are the service events in document order.
	Events []EventSpec

	// Rules are the business rules in document order.
	Rules []RuleSpec
}

// Summary renders the spec as a compact block for prompt assembly.
//
// The generation roles embed this in their prompts; it is not a wire format.
func (s *Spec) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "service: %s\nlanguage: %s\n", s.Name, s.Language)
	if s.Protocol != "" {
		fmt.Fprintf(&b, "protocol: %s\n", s.Protocol)
	}
	if len(s.Methods) > 0 {
		b.WriteString("methods:\n")
		for _, m := range s.Methods {
			fmt.Fprintf(&b, "  - %s: %s\n", m.Name, m.Description)
		}
	}
	if len(s.Events) > 0 {
		b.WriteString("events:\n")
		for _, e := range s.Events {
			fmt.Fprintf(&b, "  - %s: %s\n", e.Name, e.Trigger)
		}
	}
	if len(s.Rules) > 0 {
		b.WriteString("rules:\n")
		for _, r := range s.Rules {
			fmt.Fprintf(&b, "  - %s %s\n", r.ID, r.Text)
		}
	}
	return b.String()
}

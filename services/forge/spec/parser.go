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
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// document mirrors the on-disk requirement YAML layout.
type document struct {
	Service struct {
		Name     string `yaml:"name" validate:"required"`
		Language string `yaml:"language" validate:"required"`
		Protocol string `yaml:"protocol"`
	} `yaml:"service"`
	Methods []MethodSpec `yaml:"methods" validate:"dive"`
	Events  []EventSpec  `yaml:"events" validate:"dive"`
	Rules   []RuleSpec   `yaml:"rules" validate:"dive"`
}

// validate is shared across Parse calls; the validator is safe for concurrent use.
var validate = validator.New()

// Parse converts a requirement YAML document into a Spec.
//
// Description:
//
//	Decodes the document, checks structural invariants (service section,
//	name, language), and resolves the language tag against the closed set.
//	Every error returned here is structural: the caller must reject the run
//	without recording an attempt.
//
// Inputs:
//
//	data - Raw YAML requirement document
//
// Outputs:
//
//	*Spec - The parsed, validated spec
//	error - Structural error if the document is malformed
func Parse(data []byte) (*Spec, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStructural, err)
	}

	if doc.Service.Name == "" && doc.Service.Language == "" {
		return nil, ErrMissingService
	}
	if doc.Service.Name == "" {
		return nil, ErrMissingName
	}
	if doc.Service.Language == "" {
		return nil, ErrMissingLanguage
	}

	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStructural, err)
	}

	lang, err := ParseLanguage(doc.Service.Language)
	if err != nil {
		return nil, err
	}

	s := &Spec{
		Name:     doc.Service.Name,
		Language: lang,
		Protocol: doc.Service.Protocol,
		Methods:  doc.Methods,
		Events:   doc.Events,
		Rules:    doc.Rules,
	}

	slog.Debug("Parsed requirement",
		slog.String("service", s.Name),
		slog.String("language", s.Language.String()),
		slog.Int("methods", len(s.Methods)),
		slog.Int("events", len(s.Events)),
		slog.Int("rules", len(s.Rules)),
	)

	return s, nil
}

// ParseFile reads and parses a requirement YAML file.
//
// Inputs:
//
//	path - Path to the requirement document
//
// Outputs:
//
//	*Spec - The parsed spec
//	error - Structural error, or a wrapped I/O error if the file is unreadable
func ParseFile(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading requirement: %w", err)
	}
	return Parse(data)
}

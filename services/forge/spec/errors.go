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

import "errors"

// Sentinel errors for requirement parsing. All are structural: a run that hits
// one is rejected immediately and never retried.
var (
	// ErrStructural is the base class for malformed requirement documents.
	ErrStructural = errors.New("structural requirement error")

	// ErrMissingService indicates the document has no service section.
	ErrMissingService = errors.New("requirement must have a service section")

	// ErrMissingName indicates the service has no name.
	ErrMissingName = errors.New("service must have a name")

	// ErrMissingLanguage indicates the service has no target language.
	ErrMissingLanguage = errors.New("service must have a language")

	// ErrUnknownLanguage indicates a language tag outside the closed set.
	ErrUnknownLanguage = errors.New("unknown target language")
)

// IsStructural reports whether err belongs to the structural error taxonomy.
func IsStructural(err error) bool {
	return errors.Is(err, ErrStructural) ||
		errors.Is(err, ErrMissingService) ||
		errors.Is(err, ErrMissingName) ||
		errors.Is(err, ErrMissingLanguage) ||
		errors.Is(err, ErrUnknownLanguage)
}

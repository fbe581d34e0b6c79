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

import "errors"

// Sentinel errors for the validation gate.
var (
	// ErrInvalidInput indicates a nil context or empty artifact.
	ErrInvalidInput = errors.New("invalid input")

	// ErrScratchWorkspace indicates the scratch directory could not be created.
	ErrScratchWorkspace = errors.New("scratch workspace unavailable")
)

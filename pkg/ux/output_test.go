// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainToggle(t *testing.T) {
	orig := IsPlain()
	defer SetPlain(orig)

	SetPlain(true)
	assert.True(t, IsPlain())

	SetPlain(false)
	assert.False(t, IsPlain())
}

func TestIconRenderPlain(t *testing.T) {
	orig := IsPlain()
	defer SetPlain(orig)

	SetPlain(true)
	assert.Equal(t, "✓", IconSuccess.Render())
	assert.Equal(t, "✗", IconError.Render())
}

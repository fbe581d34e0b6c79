// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package asil

import (
	"regexp"
	"sync"
)

// PatternVersion tracks the heuristic pattern database version.
const PatternVersion = "2026.01"

// Category names used in evidence maps. Stable identifiers; consumers key
// audit records on them.
const (
	CategoryMemorySafety = "memory_safety"
	CategoryDeterminism  = "determinism"
	CategoryTiming       = "timing"
	CategoryDefensive    = "defensive_programming"
	CategoryBounds       = "bounds_checking"
)

// unsafeAPIs are raw-memory C/C++ calls that fail the memory safety category.
var unsafeAPIs = []string{
	"strcpy(", "strcat(", "sprintf(", "vsprintf(",
	"gets(", "strncpy(", "strncat(",
	"memcpy(", "memmove(", "malloc(", "free(",
	"realloc(", "alloca(",
}

// nonDeterministicAPIs fail the determinism category: unseeded randomness,
// wall-clock reads, and unmanaged thread or async launches.
var nonDeterministicAPIs = []string{
	"rand(", "srand(", "time(", "chrono::system_clock",
	"std::random_device", "std::mt19937",
	"std::thread", "std::async",
}

// unboundedLoops are lexical forms with no visible exit condition.
var unboundedLoops = []string{
	"while(true)", "while (true)", "for(;;)", "for (;;)",
}

// guardPattern matches defensive constructs. At least one must appear
// anywhere in the source: a conditional, assertion, error return, or throw.
type guardPattern struct {
	name    string
	pattern string

	re   *regexp.Regexp
	once sync.Once
}

// compiled returns the lazily compiled regex.
func (g *guardPattern) compiled() *regexp.Regexp {
	g.once.Do(func() {
		g.re = regexp.MustCompile(g.pattern)
	})
	return g.re
}

// defensivePatterns satisfy the defensive programming category.
var defensivePatterns = []*guardPattern{
	{name: "conditional", pattern: `\bif\s*\(`},
	{name: "assert", pattern: `\b(assert|static_assert)\s*\(`},
	{name: "throw", pattern: `\bthrow\b`},
	{name: "error_return", pattern: `\breturn\s+(false|nullptr|-1|std::nullopt|Err\()`},
	{name: "switch_default", pattern: `\bdefault\s*:`},
}

// boundsPatterns satisfy the bounds checking category: explicit length or
// size comparisons, checked accessors, or bounded containers.
var boundsPatterns = []*guardPattern{
	{name: "size_compare", pattern: `\.(size|length)\s*\(\s*\)`},
	{name: "checked_access", pattern: `\.at\s*\(`},
	{name: "sizeof", pattern: `\bsizeof\s*\(`},
	{name: "bounded_array", pattern: `\bstd::array\s*<`},
	{name: "index_guard", pattern: `\b(idx|index|i)\s*<\s*\w`},
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug generates URL-friendly slugs and checks slugs taken from
// request paths.
package slug

import (
	"regexp"
	"strings"
)

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, or space.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
	// validSlug is the set of slugs a category URL may carry.
	validSlug = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// MaxLen is the longest slug a category may have.
const MaxLen = 64

// Generate creates a URL-friendly slug from the given string.
// Example: "Hello, World! 2026" becomes "hello-world-2026".
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = strings.Join(strings.Fields(result), "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return result
}

// Valid reports whether s is a well-formed slug: latin letters, digits,
// hyphens and underscores, at most MaxLen characters.
func Valid(s string) bool {
	return len(s) <= MaxLen && validSlug.MatchString(s)
}

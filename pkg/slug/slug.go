// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slug turns arbitrary channel titles into safe file names.
//
// # Usage
//
// Each channel read for a digest is buffered into its own text file, named
// after the channel title (e.g., "World_News"). Titles are kept in their own
// script; only separators and path characters are replaced.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// multiUnderscore collapses multiple consecutive underscores into one.
	multiUnderscore = regexp.MustCompile(`_{2,}`)
)

// maxLength bounds the generated name, in runes.
const maxLength = 96

// FileName converts a channel title into a file-system-safe base name.
//
// # Transformation Pipeline
//
// 1. Normalizes to NFC so visually identical titles produce identical names.
// 2. Replaces every rune that is not a letter, digit, '-' or '.' with '_'.
// 3. Collapses repeated underscores and trims them from both ends.
// 4. Truncates to a bounded length and falls back when nothing is left.
func FileName(title, fallback string) string {
	// 1. Normalize composition
	result, _, _ := transform.String(norm.NFC, title)

	// 2. Replace separators and path characters
	result = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.' {
			return r
		}
		return '_'
	}, result)

	// 3. Clean up underscores and leading dots (no hidden files)
	result = multiUnderscore.ReplaceAllString(result, "_")
	result = strings.Trim(result, "_.")

	// 4. Bound the length
	if runes := []rune(result); len(runes) > maxLength {
		result = string(runes[:maxLength])
	}

	if result == "" {
		return fallback
	}
	return result
}

// Package textutil provides text processing utilities shared by the
// tokenizer and the dependency-distance heuristic.
package textutil

import (
	"regexp"
	"strings"
)

var tokenizeRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Tokenize extracts word tokens from text (Unicode-aware, matching Python's (?u)\b\w+\b).
func Tokenize(text string) []string {
	return tokenizeRe.FindAllString(text, -1)
}

var (
	newlineRe    = regexp.MustCompile(`[\n\r]`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// NormalizeWhitespaces replaces newlines and multiple whitespace with a single space.
func NormalizeWhitespaces(text string) string {
	text = newlineRe.ReplaceAllString(text, " ")
	return multiSpaceRe.ReplaceAllString(text, " ")
}

// Normalize lowercases text and normalizes whitespace.
func Normalize(text string) string {
	return NormalizeWhitespaces(strings.ToLower(text))
}

var clauseRe = regexp.MustCompile(`[,;:.!?]`)

// IsClauseBoundary reports whether the token ends a clause (trailing
// punctuation such as a comma or a full stop).
func IsClauseBoundary(token string) bool {
	if token == "" {
		return false
	}
	return clauseRe.MatchString(token[len(token)-1:])
}

// StripPunct removes leading and trailing punctuation from a token.
func StripPunct(token string) string {
	return strings.TrimFunc(token, func(r rune) bool {
		return strings.ContainsRune(`,;:.!?"'()[]{}`, r)
	})
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides text utility functions for the ircbridge daemon.
package util

import "strings"

// =============================================================================
// CHUNKING
// =============================================================================

// SplitWords splits text into chunks of at most max bytes, preferring to
// break on whitespace. When a chunk boundary falls inside a word, the split
// moves back to the last whitespace at or before the boundary; if the first
// max bytes contain no whitespace at all, the word is hard-cut exactly at max.
//
// Joining the result with single spaces reproduces the input with runs of
// whitespace collapsed — original inter-word spacing is not preserved.
// Text already within the budget is returned unchanged as a single chunk.
func SplitWords(text string, max int) []string {
	if max <= 0 || len(text) <= max {
		return []string{text}
	}

	var chunks []string
	rest := text
	for len(rest) > max {
		cut := max
		if i := lastSpace(rest[:max+1]); i > 0 {
			cut = i
		}
		chunks = append(chunks, rest[:cut])
		rest = strings.TrimLeft(rest[cut:], " \t")
	}
	if rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}

// SplitFixed slices text into chunks of exactly max bytes (the final chunk
// may be shorter). No word-boundary preference: this is used on the inbound
// path where the responder enforces a request size limit and the prompt is
// replayed chunk by chunk into the same conversation.
func SplitFixed(text string, max int) []string {
	if max <= 0 || len(text) <= max {
		return []string{text}
	}

	chunks := make([]string, 0, len(text)/max+1)
	rest := text
	for len(rest) > max {
		chunks = append(chunks, rest[:max])
		rest = rest[max:]
	}
	if rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}

// lastSpace returns the index of the last space or tab in s, or -1.
func lastSpace(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ' ' || s[i] == '\t' {
			return i
		}
	}
	return -1
}

// =============================================================================
// TEXT CLEANUP
// =============================================================================

// Flatten collapses a multi-line string into a single line suitable for a
// CRLF-framed protocol: carriage returns are dropped and newlines become
// single spaces.
func Flatten(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

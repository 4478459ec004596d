// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides text utility functions for the ircbridge daemon.
//
// This package contains the chunking helpers used on both the inbound
// (prompt) and outbound (reply) message paths, plus small text cleanup
// helpers.
//
// # Key Functions
//
// Chunking:
//   - SplitWords: Word-boundary splitting for outbound wire chunks
//   - SplitFixed: Fixed-width slicing for inbound prompt chunks
//
// Text Cleanup:
//   - Flatten: Collapse a multi-line reply into a single protocol-safe line
//
// # Usage
//
//	// Split a long reply into wire-legal fragments
//	chunks := util.SplitWords(reply, 400)
//
//	// Slice an oversized prompt into responder-sized requests
//	parts := util.SplitFixed(prompt, 500)
package util

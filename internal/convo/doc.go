// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package convo contains the per-identity conversation history store.
//
// Histories are keyed by the sender's nickname and hold role-tagged entries
// (user or assistant) up to a fixed cap. The system directive is never
// stored here — the responder prepends it fresh on every call, so it can
// never be evicted by pruning.
//
// The store is deliberately not thread-safe: in steady state it is touched
// only by the single dispatcher goroutine that processes protocol lines in
// arrival order.
package convo

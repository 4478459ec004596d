// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package bot contains the command dispatcher and run loop for ircbridge.
//
// The dispatcher interprets each protocol line the connection delivers —
// keep-alive PING, channel INVITE, and PRIVMSG addressing — and turns
// addressed messages into responder calls and paced, chunked replies.
//
// Everything runs on the single read-loop goroutine: dispatch, the
// responder call, and the inter-chunk pacing are all synchronous, so lines
// are processed strictly in arrival order and a slow responder blocks
// everything behind it, keep-alive replies included. Configuration
// snapshots from the watcher are drained between messages, never mid-line.
package bot

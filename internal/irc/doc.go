// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package irc implements the protocol connection manager and line framing
// for the ircbridge daemon.
//
// # Key Types
//
//   - Conn: owns the transport, performs the registration handshake, and
//     drives the fixed-delay reconnect loop
//   - LineFramer: turns a raw byte stream into complete CRLF-delimited lines
//   - Command: a protocol line split into its positional parts
//
// The connection is single-writer: all sends are serialized through
// Conn.Send, and Listen dispatches lines synchronously on one goroutine so
// messages are processed in strict arrival order.
package irc

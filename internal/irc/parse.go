// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package irc implements the protocol connection manager and line framing.
package irc

import "strings"

// maxParts bounds the positional split of a protocol line. The last part
// captures the remainder verbatim because trailing parameters may contain
// spaces.
const maxParts = 4

// Command is a protocol line split into at most four whitespace-delimited
// positional parts: prefix, verb, target, trailing. A line missing a
// recognized verb or short on parts is simply ignored by the dispatcher,
// never treated as an error.
type Command struct {
	Raw   string
	Parts []string
}

// Split parses a raw line into a Command.
func Split(line string) Command {
	return Command{Raw: line, Parts: strings.SplitN(line, " ", maxParts)}
}

// Verb returns the command verb (the second positional part), or "".
func (c Command) Verb() string {
	if len(c.Parts) > 1 {
		return c.Parts[1]
	}
	return ""
}

// Target returns the command target (the third positional part), or "".
func (c Command) Target() string {
	if len(c.Parts) > 2 {
		return c.Parts[2]
	}
	return ""
}

// Text returns the trailing parameter with its leading colon removed, or "".
func (c Command) Text() string {
	if len(c.Parts) > 3 {
		return strings.TrimPrefix(c.Parts[3], ":")
	}
	return ""
}

// Nick extracts the sender nickname from the prefix: everything before the
// first "!", minus the leading sigil.
func (c Command) Nick() string {
	if len(c.Parts) == 0 {
		return ""
	}
	prefix := strings.TrimPrefix(c.Parts[0], ":")
	if i := strings.IndexByte(prefix, '!'); i >= 0 {
		return prefix[:i]
	}
	return prefix
}

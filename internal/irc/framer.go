// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package irc implements the protocol connection manager and line framing.
package irc

import "bytes"

// lineDelimiter terminates every protocol line on the wire.
var lineDelimiter = []byte("\r\n")

// LineFramer converts a raw byte stream into complete CRLF-terminated
// protocol lines. A trailing partial line is buffered across Feed calls
// until its delimiter arrives, however many reads that takes.
type LineFramer struct {
	buf []byte
}

// NewLineFramer creates an empty framer.
func NewLineFramer() *LineFramer {
	return &LineFramer{}
}

// Feed appends chunk to the internal buffer and returns every complete line
// now available, in stream order and without the CRLF terminator. No line is
// ever returned twice.
func (f *LineFramer) Feed(chunk []byte) []string {
	f.buf = append(f.buf, chunk...)

	var lines []string
	for {
		i := bytes.Index(f.buf, lineDelimiter)
		if i < 0 {
			break
		}
		lines = append(lines, string(f.buf[:i]))
		f.buf = f.buf[i+len(lineDelimiter):]
	}
	return lines
}

// Pending returns the buffered partial line, if any.
func (f *LineFramer) Pending() string {
	return string(f.buf)
}

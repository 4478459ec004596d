// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package irc implements the protocol connection manager and line framing.
package irc

import (
	"testing"
)

func TestLineFramer_SingleCompleteLine(t *testing.T) {
	f := NewLineFramer()
	lines := f.Feed([]byte("PING :server1\r\n"))
	if len(lines) != 1 || lines[0] != "PING :server1" {
		t.Errorf("Feed() = %v, want [PING :server1]", lines)
	}
	if f.Pending() != "" {
		t.Errorf("Pending() = %q, want empty", f.Pending())
	}
}

func TestLineFramer_PartialLineRetained(t *testing.T) {
	f := NewLineFramer()
	if lines := f.Feed([]byte("PING :ser")); len(lines) != 0 {
		t.Errorf("incomplete line must not be emitted, got %v", lines)
	}
	if f.Pending() != "PING :ser" {
		t.Errorf("Pending() = %q, want %q", f.Pending(), "PING :ser")
	}

	lines := f.Feed([]byte("ver1\r\n"))
	if len(lines) != 1 || lines[0] != "PING :server1" {
		t.Errorf("Feed() = %v, want completed line", lines)
	}
}

func TestLineFramer_DelimiterSplitAcrossReads(t *testing.T) {
	f := NewLineFramer()
	if lines := f.Feed([]byte("hello\r")); len(lines) != 0 {
		t.Errorf("got %v before full delimiter", lines)
	}
	lines := f.Feed([]byte("\nworld\r\n"))
	if len(lines) != 2 || lines[0] != "hello" || lines[1] != "world" {
		t.Errorf("Feed() = %v, want [hello world]", lines)
	}
}

func TestLineFramer_AnySplitPatternYieldsSameLines(t *testing.T) {
	stream := ":alice!u@h PRIVMSG #chan :hi there\r\nPING :tok\r\n:bob!u@h PRIVMSG #chan :more\r\npartial tail"
	wantLines := []string{
		":alice!u@h PRIVMSG #chan :hi there",
		"PING :tok",
		":bob!u@h PRIVMSG #chan :more",
	}

	// Feed the identical stream in several different chunkings.
	for _, size := range []int{1, 2, 3, 7, 16, len(stream)} {
		f := NewLineFramer()
		var got []string
		for i := 0; i < len(stream); i += size {
			end := i + size
			if end > len(stream) {
				end = len(stream)
			}
			got = append(got, f.Feed([]byte(stream[i:end]))...)
		}

		if len(got) != len(wantLines) {
			t.Fatalf("chunk size %d: got %d lines, want %d", size, len(got), len(wantLines))
		}
		for i := range wantLines {
			if got[i] != wantLines[i] {
				t.Errorf("chunk size %d: line %d = %q, want %q", size, i, got[i], wantLines[i])
			}
		}
		if f.Pending() != "partial tail" {
			t.Errorf("chunk size %d: Pending() = %q, want %q", size, f.Pending(), "partial tail")
		}
	}
}

func TestLineFramer_EmptyLines(t *testing.T) {
	f := NewLineFramer()
	lines := f.Feed([]byte("\r\n\r\n"))
	if len(lines) != 2 || lines[0] != "" || lines[1] != "" {
		t.Errorf("Feed() = %v, want two empty lines", lines)
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package convo contains the per-identity conversation history store.
package convo

// Role identifies who produced a history entry.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// History bounds. Once a history fills to MaxEntries, each append keeps only
// the most recent RetainEntries so the oldest exchanges fall off first.
const (
	MaxEntries    = 20
	RetainEntries = 19
)

// Entry is a single role-tagged message in a conversation history.
type Entry struct {
	Role    Role
	Content string
}

// Store holds bounded conversation histories keyed by sender identity.
// Histories are created lazily on first append and live for the process
// lifetime; there is no explicit destruction.
type Store struct {
	histories map[string][]Entry
}

// NewStore creates an empty conversation store.
func NewStore() *Store {
	return &Store{histories: make(map[string][]Entry)}
}

// History returns the stored entries for identity in append order. The
// returned slice is a copy; mutating it does not affect the store.
func (s *Store) History(identity string) []Entry {
	h := s.histories[identity]
	out := make([]Entry, len(h))
	copy(out, h)
	return out
}

// Append records one entry for identity, pruning the oldest entries once
// the history reaches its cap.
func (s *Store) Append(identity string, role Role, content string) {
	h := append(s.histories[identity], Entry{Role: role, Content: content})
	if len(h) >= MaxEntries {
		h = h[len(h)-RetainEntries:]
	}
	s.histories[identity] = h
}

// Len returns the number of entries stored for identity.
func (s *Store) Len(identity string) int {
	return len(s.histories[identity])
}

// Identities returns the number of distinct conversations held.
func (s *Store) Identities() int {
	return len(s.histories)
}

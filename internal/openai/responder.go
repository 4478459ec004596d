// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openai provides the natural-language responder for ircbridge.
package openai

import (
	"context"

	"github.com/jeranaias/ircbridge/internal/config"
	"github.com/jeranaias/ircbridge/internal/convo"
)

// Settings is the slice of configuration a responder call reads. The
// dispatcher swaps in a new Settings between messages when the config file
// changes, so key/prompt/parameter updates apply to the very next call.
type Settings struct {
	APIKey      string
	Model       string
	AdminPrompt string
	Params      ChatParams
}

// SettingsFromConfig extracts the responder settings from a config
// snapshot. Applied at startup and again whenever the watcher publishes a
// replacement snapshot, so key, prompt, and parameter changes reach the
// very next responder call.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		AdminPrompt: cfg.AdminPrompt,
		Params: ChatParams{
			Temperature:      cfg.Chat.Temperature,
			MaxTokens:        cfg.Chat.MaxTokens,
			TopP:             cfg.Chat.TopP,
			FrequencyPenalty: cfg.Chat.FrequencyPenalty,
			PresencePenalty:  cfg.Chat.PresencePenalty,
			RequestTimeout:   cfg.Chat.Timeout(),
		},
	}
}

// Responder keeps per-identity conversation context and answers prompts via
// the chat completions API. The administrative directive is prepended fresh
// on every call and never stored in history, so pruning cannot evict it.
//
// Not thread-safe: all calls happen on the single dispatcher goroutine.
type Responder struct {
	client   *Client
	store    *convo.Store
	settings Settings
}

// NewResponder creates a responder around client and store.
func NewResponder(client *Client, store *convo.Store, settings Settings) *Responder {
	return &Responder{client: client, store: store, settings: settings}
}

// ApplySettings swaps the settings used by subsequent calls.
func (r *Responder) ApplySettings(s Settings) {
	r.settings = s
}

// Respond answers text for identity, threading the stored conversation
// context into the request. On success both the prompt and the reply are
// appended to the identity's history; on failure the history keeps whatever
// was appended by earlier successful calls and nothing else.
func (r *Responder) Respond(ctx context.Context, identity, text string) (string, error) {
	history := r.store.History(identity)

	messages := make([]ChatMessage, 0, len(history)+2)
	if r.settings.AdminPrompt != "" {
		messages = append(messages, ChatMessage{Role: string(convo.RoleSystem), Content: r.settings.AdminPrompt})
	}
	for _, entry := range history {
		messages = append(messages, ChatMessage{Role: string(entry.Role), Content: entry.Content})
	}
	messages = append(messages, ChatMessage{Role: string(convo.RoleUser), Content: text})

	reply, err := r.client.Complete(ctx, r.settings.APIKey, r.settings.Model, messages, r.settings.Params)
	if err != nil {
		return "", err
	}

	r.store.Append(identity, convo.RoleUser, text)
	r.store.Append(identity, convo.RoleAssistant, reply)
	return reply, nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openai provides the natural-language responder for the ircbridge
// daemon.
//
// Client speaks the OpenAI chat completions wire format over HTTPS. On top
// of it, Responder keeps per-identity conversation context and prepends the
// administrative directive to every call without ever storing it.
//
// There is no retry at this layer: a failed call surfaces as a typed error
// and the dispatcher decides what part of the reply to abandon.
package openai

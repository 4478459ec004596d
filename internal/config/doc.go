// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and hot reload for ircbridge.
//
// Supports both TOML and JSON configuration formats (chosen by file
// extension), with sensible defaults, environment variable overrides, and
// validation.
//
// Loaded configurations are treated as immutable snapshots. The Watcher
// re-reads the file on change and publishes replacement snapshots on a
// channel; consumers swap snapshots at safe points rather than mutating a
// shared instance. A malformed file on reload is logged and the previous
// snapshot stays in effect.
package config

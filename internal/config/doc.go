// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for nexus-tui.
//
// Configuration comes from ~/.nexus/config.toml with built-in defaults and
// environment variable overrides on top.
package config

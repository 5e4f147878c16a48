// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for alfred.
//
// Configuration is a TOML file with sensible defaults, environment variable
// overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - BackendConfig: Where the assistant backend lives and how hard to hit it
//   - StreamConfig: Prompt temperature, pacing, chat creation policy
//   - StorageConfig: Session identifier and history cache locations
//   - Watcher: Reloads the file when it changes on disk
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (ALFRED_*)
//   - ~/.alfred/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := api.NewClientWithConfig(&api.ClientConfig{
//	    BaseURL: cfg.Backend.URL,
//	    Timeout: cfg.Backend.Timeout(),
//	})
package config

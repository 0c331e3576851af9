// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for Parley binaries.
//
// Configuration is loaded from a single file specified by either the
// PARLEY_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search: deterministic, auditable configuration
// with no hidden overrides.
//
// Every field has a working default ([Default]), so running without a
// config file is fine — the file only overrides what it names.
package config

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for riskgate: atomic file
// writes for audit exports and display-width-aware string truncation for
// the operator views.
package util

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/riskgate/internal/audit"
	"github.com/jeranaias/riskgate/internal/gate"
	"github.com/jeranaias/riskgate/internal/review"
)

// =============================================================================
// MESSAGES
// =============================================================================

// turnDoneMsg carries the result of a full routing turn.
type turnDoneMsg struct {
	outcome *gate.Outcome
	err     error
}

// reviewDoneMsg carries the result of a review resolution.
type reviewDoneMsg struct {
	res *review.Resolution
	err error
}

// exportDoneMsg carries the result of an audit export.
type exportDoneMsg struct {
	path string
	err  error
}

// =============================================================================
// COMMANDS
// =============================================================================

// submitQueryCmd runs the full draft/evaluate/route pipeline off the UI
// goroutine.
func submitQueryCmd(engine *gate.Engine, query string) tea.Cmd {
	return func() tea.Msg {
		outcome, err := engine.SubmitQuery(context.Background(), query)
		return turnDoneMsg{outcome: outcome, err: err}
	}
}

// resolveReviewCmd completes the pending review with the supervisor's text.
func resolveReviewCmd(engine *gate.Engine, edited string) tea.Cmd {
	return func() tea.Msg {
		res, err := engine.ResolveReview(edited)
		return reviewDoneMsg{res: res, err: err}
	}
}

// exportLedgerCmd writes the full audit ledger to a timestamped JSON file.
func exportLedgerCmd(ledger *audit.Ledger, dir string) tea.Cmd {
	return func() tea.Msg {
		path, err := ledger.ExportToFile(dir)
		return exportDoneMsg{path: path, err: err}
	}
}
